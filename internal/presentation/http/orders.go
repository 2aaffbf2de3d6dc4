package httppresentation

import (
	"errors"
	"net/http"
	"strconv"

	appOrder "github.com/Zhima-Mochi/minishop-fashion/internal/application/order"
	"github.com/Zhima-Mochi/minishop-fashion/internal/session"
	"github.com/go-chi/chi/v5"
)

func actorFrom(r *http.Request) session.Session {
	s, _ := session.From(r.Context())
	return s
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !h.bind(w, r, &req, false) {
		return
	}

	res, err := h.orders.Place.Execute(r.Context(), appOrder.PlaceOrderInput{
		BuyerID:       actorFrom(r).UserID,
		Lines:         toLines(req.Items),
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if res.Intent != nil {
		writeJSON(w, http.StatusOK, newPaymentIntentResponse(res))
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(res.Order))
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if !h.bind(w, r, &req, false) {
		return
	}

	res, err := h.orders.Place.Execute(r.Context(), appOrder.PlaceOrderInput{
		BuyerID:       actorFrom(r).UserID,
		Lines:         toLines(req.Items),
		AddressID:     req.AddressID,
		PaymentMethod: "card",
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentIntentResponse(res))
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if !h.bind(w, r, &req, false) {
		return
	}

	res, err := h.orders.Finalize.Execute(r.Context(), appOrder.FinalizePaymentInput{
		BuyerID:           actorFrom(r).UserID,
		ProviderOrderID:   req.RazorpayOrderID,
		ProviderPaymentID: req.RazorpayPaymentID,
		Signature:         req.RazorpaySignature,
		Lines:             toLines(req.Items),
		AddressID:         req.AddressID,
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, newOrderResponse(res.Order))
}

func (h *Handler) handleListBuyerOrders(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if chi.URLParam(r, "buyer_id") != actor.UserID {
		writeError(w, http.StatusForbidden, errors.New("forbidden"))
		return
	}

	orders, err := h.orders.ListBuyer.Execute(r.Context(), appOrder.ListBuyerOrdersInput{
		BuyerID: actor.UserID,
		Status:  r.URL.Query().Get("status"),
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponses(orders))
}

func (h *Handler) handleListOwnerOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid page"))
		return
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid limit"))
		return
	}

	res, err := h.orders.ListOwner.Execute(r.Context(), appOrder.ListOwnerOrdersInput{
		OwnerID: actorFrom(r).UserID,
		Status:  q.Get("status"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ownerOrdersResponse{
		Orders: newOrderResponses(res.Orders),
		Pagination: paginationResponse{
			Page:        res.Page,
			Limit:       res.Limit,
			TotalOrders: res.TotalOrders,
			TotalPages:  res.TotalPages,
			HasMore:     res.HasMore,
		},
	})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get.Execute(r.Context(), appOrder.GetOrderInput{
		OrderID: chi.URLParam(r, "orderId"),
		Actor:   actorFrom(r),
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if !h.bind(w, r, &req, true) {
		return
	}

	res, err := h.orders.Cancel.Execute(r.Context(), appOrder.CancelOrderInput{
		OrderID: chi.URLParam(r, "orderId"),
		Reason:  req.Reason,
		Actor:   actorFrom(r),
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(res.Order))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !h.bind(w, r, &req, false) {
		return
	}

	in := appOrder.UpdateStatusInput{
		OrderID: chi.URLParam(r, "orderId"),
		Status:  req.Status,
		Reason:  req.Reason,
		Actor:   actorFrom(r),
	}
	if req.TrackingNumber != "" || req.Carrier != "" {
		in.Shipment = &appOrder.ShipmentInput{TrackingNumber: req.TrackingNumber, Carrier: req.Carrier}
	}

	o, err := h.orders.UpdateStatus.Execute(r.Context(), in)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) handleMarkRefunded(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.MarkRefunded.Execute(r.Context(), appOrder.MarkRefundedInput{
		OrderID: chi.URLParam(r, "orderId"),
		Actor:   actorFrom(r),
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

// queryInt treats an absent parameter as zero so the use case applies its default.
func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return n, nil
}
