package handler

import (
	"net/http"

	"github.com/goodfoods/reservation-platform/internal/matching"
	"github.com/goodfoods/reservation-platform/internal/model"
)

// RestaurantHandler serves catalog search.
type RestaurantHandler struct {
	engine *matching.Engine
}

// NewRestaurantHandler creates a new restaurant handler.
func NewRestaurantHandler(engine *matching.Engine) *RestaurantHandler {
	return &RestaurantHandler{engine: engine}
}

// Search handles POST /restaurants/search
func (h *RestaurantHandler) Search(w http.ResponseWriter, r *http.Request) {
	var criteria model.SearchCriteria
	if err := decodeBody(w, r, &criteria); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.engine.Search(criteria))
}
