package httppresentation

import (
	"time"

	appCart "github.com/Zhima-Mochi/minishop-fashion/internal/application/cart"
	appOrder "github.com/Zhima-Mochi/minishop-fashion/internal/application/order"
	domainCart "github.com/Zhima-Mochi/minishop-fashion/internal/domain/cart"
	domainOrder "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
)

type lineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func toLines(in []lineRequest) []appOrder.LineInput {
	out := make([]appOrder.LineInput, 0, len(in))
	for _, l := range in {
		out = append(out, appOrder.LineInput{ProductID: l.ProductID, Quantity: l.Quantity, Size: l.Size, Color: l.Color})
	}
	return out
}

// placeOrderRequest leaves items empty to check out the buyer's cart.
type placeOrderRequest struct {
	Items         []lineRequest `json:"items" validate:"omitempty,dive"`
	AddressID     string        `json:"address_id" validate:"required"`
	PaymentMethod string        `json:"payment_method" validate:"required,oneof=card cod"`
}

type createPaymentRequest struct {
	Items     []lineRequest `json:"items" validate:"omitempty,dive"`
	AddressID string        `json:"address_id" validate:"required"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string        `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string        `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string        `json:"razorpay_signature" validate:"required"`
	Items             []lineRequest `json:"items" validate:"omitempty,dive"`
	AddressID         string        `json:"address_id" validate:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type updateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Reason         string `json:"reason" validate:"max=200"`
}

type cartLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (c cartLineRequest) input(buyerID string) appCart.LineInput {
	return appCart.LineInput{BuyerID: buyerID, ProductID: c.ProductID, Quantity: c.Quantity, Size: c.Size, Color: c.Color}
}

type itemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Photo     string  `json:"photo,omitempty"`
}

type addressResponse struct {
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type paymentResponse struct {
	Method            string  `json:"method"`
	Status            string  `json:"status"`
	Amount            float64 `json:"amount"`
	RazorpayOrderID   string  `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string  `json:"razorpay_payment_id,omitempty"`
}

type shippingResponse struct {
	TrackingNumber    string    `json:"trackingNumber"`
	Carrier           string    `json:"carrier"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

type orderResponse struct {
	ID              string            `json:"_id"`
	BuyerID         string            `json:"buyer_id"`
	Items           []itemResponse    `json:"items"`
	ShippingAddress addressResponse   `json:"shippingAddress"`
	Payment         paymentResponse   `json:"payment"`
	Subtotal        float64           `json:"subtotal"`
	ShippingCost    float64           `json:"shippingCost"`
	Tax             float64           `json:"tax"`
	Total           float64           `json:"total"`
	Status          string            `json:"status"`
	CancelReason    string            `json:"cancelReason,omitempty"`
	Shipping        *shippingResponse `json:"shipping,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func newOrderResponse(o *domainOrder.Order) orderResponse {
	items := make([]itemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price.InexactFloat64(),
			Size:      it.Size,
			Color:     it.Color,
			Photo:     it.Photo,
		})
	}
	a := o.ShippingAddress
	resp := orderResponse{
		ID:      o.ID,
		BuyerID: o.BuyerID,
		Items:   items,
		ShippingAddress: addressResponse{
			Name: a.Name, Phone: a.Phone, Line1: a.Line1, Line2: a.Line2,
			City: a.City, State: a.State, PostalCode: a.PostalCode, Country: a.Country,
		},
		Payment: paymentResponse{
			Method:            string(o.Payment.Method),
			Status:            string(o.Payment.Status),
			Amount:            o.Payment.Amount.InexactFloat64(),
			RazorpayOrderID:   o.Payment.ProviderOrderID,
			RazorpayPaymentID: o.Payment.ProviderPaymentID,
		},
		Subtotal:     o.Totals.Subtotal.InexactFloat64(),
		ShippingCost: o.Totals.ShippingCost.InexactFloat64(),
		Tax:          o.Totals.Tax.InexactFloat64(),
		Total:        o.Totals.Total.InexactFloat64(),
		Status:       string(o.Status),
		CancelReason: o.CancelReason,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if s := o.Shipment; s != nil {
		resp.Shipping = &shippingResponse{TrackingNumber: s.TrackingNumber, Carrier: s.Carrier, EstimatedDelivery: s.EstimatedDelivery}
	}
	return resp
}

func newOrderResponses(orders []*domainOrder.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return out
}

type totalsResponse struct {
	Subtotal     float64 `json:"subtotal"`
	ShippingCost float64 `json:"shippingCost"`
	Tax          float64 `json:"tax"`
	Total        float64 `json:"total"`
}

// paymentIntentResponse is what the client checkout widget is opened with.
type paymentIntentResponse struct {
	RazorpayOrderID string         `json:"razorpay_order_id"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	Receipt         string         `json:"receipt"`
	KeyID           string         `json:"key_id"`
	Totals          totalsResponse `json:"totals"`
}

func newPaymentIntentResponse(res *appOrder.PlaceOrderResult) paymentIntentResponse {
	return paymentIntentResponse{
		RazorpayOrderID: res.Intent.ProviderOrderID,
		Amount:          res.Intent.AmountMinor,
		Currency:        res.Intent.Currency,
		Receipt:         res.Intent.Receipt,
		KeyID:           res.Intent.KeyID,
		Totals: totalsResponse{
			Subtotal:     res.Totals.Subtotal.InexactFloat64(),
			ShippingCost: res.Totals.ShippingCost.InexactFloat64(),
			Tax:          res.Totals.Tax.InexactFloat64(),
			Total:        res.Totals.Total.InexactFloat64(),
		},
	}
}

type paginationResponse struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

type ownerOrdersResponse struct {
	Orders     []orderResponse    `json:"orders"`
	Pagination paginationResponse `json:"pagination"`
}

type cartLineResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type cartResponse struct {
	BuyerID   string             `json:"buyer_id"`
	Items     []cartLineResponse `json:"items"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func newCartResponse(c *domainCart.Cart) cartResponse {
	items := make([]cartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, cartLineResponse{ProductID: l.ProductID, Quantity: l.Quantity, Size: l.Size, Color: l.Color})
	}
	return cartResponse{BuyerID: c.BuyerID, Items: items, UpdatedAt: c.UpdatedAt}
}
