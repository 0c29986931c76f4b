// Package settlement — handlers.go обрабатывает HTTP-запросы расчётов:
// помесячные выплаты, прочие доходы и спонсорский контур.
package settlement

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/httpapi"
)

// CoverLinker выдаёт подписанную ссылку на объект хранилища.
type CoverLinker interface {
	URL(key string) string
}

// Handler обрабатывает запросы расчётов.
type Handler struct {
	service *Service
	covers  CoverLinker
}

// NewHandler создаёт обработчик расчётов.
func NewHandler(service *Service, covers CoverLinker) *Handler {
	return &Handler{service: service, covers: covers}
}

func productParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	return id, err == nil
}

// coverKey — ключ обложки произведения в хранилище.
func coverKey(productID int64) string {
	return fmt.Sprintf("covers/%d.jpg", productID)
}

// monthlyResponse — строка расчёта с подписанной ссылкой на обложку.
type monthlyResponse struct {
	*MonthlyView
	CoverURL string `json:"cover_url,omitempty"`
}

func (h *Handler) withCover(v *MonthlyView) *monthlyResponse {
	resp := &monthlyResponse{MonthlyView: v}
	if h.covers != nil {
		resp.CoverURL = h.covers.URL(coverKey(v.ProductID))
	}
	return resp
}

// HandleListMonthly обрабатывает GET /settlements?month=2006-01 —
// расчёты за месяц в пределах видимости роли.
func (h *Handler) HandleListMonthly(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	month := r.URL.Query().Get("month")
	if month == "" {
		httpapi.WriteBadRequest(w, "нужен month в формате 2006-01")
		return
	}

	rows, err := h.service.ListMonthly(r.Context(), month, p.Role, p.UserID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	out := make([]*monthlyResponse, 0, len(rows))
	for _, v := range rows {
		out = append(out, h.withCover(v))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"settlements": out})
}

// HandleGetMonthly обрабатывает
// GET /products/{product_id}/settlements/{month}.
func (h *Handler) HandleGetMonthly(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	productID, ok := productParam(r)
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный product_id")
		return
	}
	month := chi.URLParam(r, "month")

	view, err := h.service.GetMonthly(r.Context(), productID, month, p.Role, p.UserID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, h.withCover(view))
}

// HandleBuildMonth обрабатывает POST /admins/settlements/build —
// ручной пересбор расчётов за месяц.
func (h *Handler) HandleBuildMonth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Month string `json:"month"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil || body.Month == "" {
		httpapi.WriteBadRequest(w, "нужен month в формате 2006-01")
		return
	}

	count, err := h.service.BuildMonth(r.Context(), body.Month)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"rows": count})
}

// HandleSetTax обрабатывает PUT /admins/settlements/{product_id}/{month}/tax.
func (h *Handler) HandleSetTax(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	productID, ok := productParam(r)
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный product_id")
		return
	}
	month := chi.URLParam(r, "month")

	var body struct {
		TaxPrice int64 `json:"tax_price"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	if err := h.service.SetTaxOverride(r.Context(), productID, month, body.TaxPrice, p.Role); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"updated": true})
}

// HandleAddIncome обрабатывает POST /admins/income-records.
func (h *Handler) HandleAddIncome(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	var body struct {
		ProductID int64  `json:"product_id"`
		Month     string `json:"month"`
		Kind      string `json:"kind"`
		Amount    int64  `json:"amount"`
		Comment   string `json:"comment"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	rec := &IncomeRecord{
		ProductID: body.ProductID,
		Month:     body.Month,
		Kind:      body.Kind,
		Amount:    body.Amount,
		Comment:   body.Comment,
	}
	if err := h.service.AddIncomeRecord(r.Context(), rec, p.Role); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, rec)
}

// HandleListIncome обрабатывает
// GET /products/{product_id}/income-records?month=2006-01.
func (h *Handler) HandleListIncome(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	productID, ok := productParam(r)
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный product_id")
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		httpapi.WriteBadRequest(w, "нужен month в формате 2006-01")
		return
	}

	records, err := h.service.ListIncomeRecords(r.Context(), productID, month, p.Role, p.UserID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

// HandleGetSponsorship обрабатывает
// GET /products/{product_id}/sponsorship-settlement.
func (h *Handler) HandleGetSponsorship(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	productID, ok := productParam(r)
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный product_id")
		return
	}

	sum, err := h.service.GetSponsorship(r.Context(), productID, p.Role, p.UserID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, sum)
}

// HandleSponsorshipTransition обрабатывает
// POST /admins/sponsorship-settlement/{product_id}/{temp|complete}.
func (h *Handler) HandleSponsorshipTransition(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	productID, ok := productParam(r)
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный product_id")
		return
	}

	var sum *SponsorshipSummary
	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "temp":
		sum, err = h.service.BuildSponsorshipTemp(r.Context(), productID, p.Role)
	case "complete":
		sum, err = h.service.CompleteSponsorship(r.Context(), productID, p.Role)
	default:
		httpapi.WriteBadRequest(w, "неизвестное действие")
		return
	}

	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, sum)
}
