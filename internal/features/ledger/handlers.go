// Package ledger — handlers.go обрабатывает HTTP-запросы кассовой
// книги: баланс, история движений и спонсорство произведения.
package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/catalog"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/httpapi"
)

// Handler обрабатывает запросы кассовой книги.
type Handler struct {
	service *Service
	catalog *catalog.Service
}

// NewHandler создаёт обработчик кассовой книги.
func NewHandler(service *Service, catalogService *catalog.Service) *Handler {
	return &Handler{service: service, catalog: catalogService}
}

// HandleBalance обрабатывает GET /user/cash/balance.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	balance, err := h.service.Balance(r.Context(), p.UserID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// HandleHistory обрабатывает GET /user/cash/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	transactions, err := h.service.History(r.Context(), p.UserID, limit)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

// HandleSponsor обрабатывает POST /products/{product_id}/sponsor —
// спонсорский взнос автору или произведению.
func (h *Handler) HandleSponsor(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		httpapi.WriteBadRequest(w, "некорректный product_id")
		return
	}

	var body struct {
		Amount      int64  `json:"amount"`
		SponsorType string `json:"sponsor_type"` // author | product
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	dt := r.Header.Get("X-Device-Type")
	if dt == "" {
		dt = "web"
	}

	err = h.service.Sponsor(r.Context(), p.UserID, body.Amount, body.SponsorType, ProductInfo{
		ProductID: product.ID,
		AuthorID:  product.AuthorID,
		Title:     product.Title,
	}, dt)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"sponsored": true})
}
