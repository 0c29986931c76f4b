// Package promotion — handlers.go обрабатывает HTTP-запросы акций:
// заявки авторов, админские переходы состояний и еженедельные
// выдачи по прямым акциям.
package promotion

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/httpapi"
)

// Handler обрабатывает запросы акций.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик акций.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

// applyRequest — тело заявки автора на акцию.
type applyRequest struct {
	ProductID    int64  `json:"product_id"`
	Type         string `json:"type"` // waiting-for-free | 6-9-path
	StartDate    string `json:"start_date"` // "2006-01-02"
	NumPerPerson int    `json:"num_per_person"`
}

// HandleApply обрабатывает POST /promotions/apply — заявку автора.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	var body applyRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteBadRequest(w, "некорректное тело запроса")
		return
	}
	startDate, err := time.Parse("2006-01-02", body.StartDate)
	if err != nil {
		httpapi.WriteBadRequest(w, "некорректная start_date, формат 2006-01-02")
		return
	}

	id, err := h.service.Apply(r.Context(), body.ProductID, p.UserID, body.Type, startDate, body.NumPerPerson)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"promotion_id": id})
}

// HandleCancel обрабатывает POST /promotions/{id}/cancel — отзыв
// заявки автором до приёмки.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	id, ok := urlID(r, "id")
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный id акции")
		return
	}
	if err := h.service.Cancel(r.Context(), id, p.UserID); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"status": StatusCancel})
}

// HandleTransition обрабатывает
// POST /admins/applied-promotion/{id}/{accept|deny|end}.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	id, ok := urlID(r, "id")
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный id акции")
		return
	}

	var err error
	var status string
	switch action := chi.URLParam(r, "action"); action {
	case "accept":
		var body struct {
			EndDate *string `json:"end_date"`
		}
		// Тело опционально
		_ = httpapi.DecodeJSON(r, &body)
		var endDate *time.Time
		if body.EndDate != nil {
			t, parseErr := time.Parse("2006-01-02", *body.EndDate)
			if parseErr != nil {
				httpapi.WriteBadRequest(w, "некорректная end_date, формат 2006-01-02")
				return
			}
			endDate = &t
		}
		err = h.service.Accept(r.Context(), id, p.UserID, endDate)
		status = StatusIng
	case "deny":
		err = h.service.Deny(r.Context(), id, p.UserID)
		status = StatusDeny
	case "end":
		err = h.service.End(r.Context(), id, p.UserID)
		status = StatusEnd
	default:
		httpapi.WriteBadRequest(w, "неизвестное действие")
		return
	}

	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"status": status})
}

// HandleClaimDirect обрабатывает
// POST /user/direct-promotion/{promotion_id}/issue — еженедельную
// выдачу билетов читателю предыдущего тома.
func (h *Handler) HandleClaimDirect(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	promotionID, ok := urlID(r, "promotion_id")
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный promotion_id")
		return
	}

	issued, err := h.service.ClaimReaderOfPrev(r.Context(), promotionID, p.UserID, p.ProfileID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"issued": issued})
}

// HandleListDirect обрабатывает GET /products/{product_id}/direct-promotions —
// прямые акции произведения глазами пользователя.
func (h *Handler) HandleListDirect(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	productID, ok := urlID(r, "product_id")
	if !ok {
		httpapi.WriteBadRequest(w, "некорректный product_id")
		return
	}

	views, err := h.service.ListDirectForUser(r.Context(), productID, p.UserID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"promotions": views})
}
