package httppresentation

import "net/http"

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handler) handleAddCartLine(w http.ResponseWriter, r *http.Request) {
	var req cartLineRequest
	if !h.bind(w, r, &req, false) {
		return
	}
	c, err := h.carts.AddLine(r.Context(), req.input(actorFrom(r).UserID))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handler) handleUpdateCartLine(w http.ResponseWriter, r *http.Request) {
	var req cartLineRequest
	if !h.bind(w, r, &req, false) {
		return
	}
	c, err := h.carts.UpdateLine(r.Context(), req.input(actorFrom(r).UserID))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handler) handleRemoveCartLine(w http.ResponseWriter, r *http.Request) {
	var req cartLineRequest
	if !h.bind(w, r, &req, false) {
		return
	}
	c, err := h.carts.RemoveLine(r.Context(), req.input(actorFrom(r).UserID))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}
