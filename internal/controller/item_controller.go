package controller

import (
	"net/http"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/go-chi/chi/v5"
)

// ItemController serves listings. Reservation state is changed only by the
// reservation consumer, never over HTTP.
type ItemController struct {
	items item.Repository
}

func NewItemController(items item.Repository) *ItemController {
	return &ItemController{items: items}
}

// Create handles POST /api/v1/items
func (h *ItemController) Create(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := actor(w, r)
	if !ok {
		return
	}
	var req CreateItemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	it, err := item.NewItem(sellerID, req.Title, req.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.items.Create(r.Context(), it); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromItem(it))
}

// Get handles GET /api/v1/items/{id} and the internal lookup GET /internal/items/{id}.
func (h *ItemController) Get(w http.ResponseWriter, r *http.Request) {
	it, err := h.items.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromItem(it))
}
