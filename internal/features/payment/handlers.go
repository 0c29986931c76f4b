// Package payment — handlers.go обрабатывает HTTP-запросы платежей:
// подтверждение пополнения от шлюза, покупки эпизодов и возвраты.
package payment

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/httpapi"
)

// Handler обрабатывает запросы платежей.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик платежей.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func deviceType(r *http.Request) string {
	if dt := r.Header.Get("X-Device-Type"); dt != "" {
		return dt
	}
	return "web"
}

// HandleCompleteCashOrder обрабатывает POST /orders/cash/complete —
// подтверждение пополнения после оплаты во внешнем шлюзе.
func (h *Handler) HandleCompleteCashOrder(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	var body struct {
		PaymentID string `json:"payment_id"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil || body.PaymentID == "" {
		httpapi.WriteBadRequest(w, "нужен payment_id")
		return
	}

	result, err := h.service.CompleteCashOrder(r.Context(), p.UserID, body.PaymentID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, result)
}

// HandlePurchaseEpisode обрабатывает
// POST /episodes/{episode_id}/purchase-with-cash.
func (h *Handler) HandlePurchaseEpisode(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	episodeID, err := strconv.ParseInt(chi.URLParam(r, "episode_id"), 10, 64)
	if err != nil {
		httpapi.WriteBadRequest(w, "некорректный episode_id")
		return
	}

	var body struct {
		ProfileID int64 `json:"profile_id"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	if err := h.service.PurchaseEpisode(r.Context(), p.UserID, body.ProfileID, episodeID, deviceType(r)); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"purchased": true})
}

// HandlePurchaseAll обрабатывает
// POST /products/{product_id}/purchase-all-with-cash.
func (h *Handler) HandlePurchaseAll(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		httpapi.WriteBadRequest(w, "некорректный product_id")
		return
	}

	var body struct {
		ProfileID int64 `json:"profile_id"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	result, err := h.service.PurchaseAllEpisodes(r.Context(), p.UserID, body.ProfileID, productID, deviceType(r))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, result)
}

// HandleRefundEpisode обрабатывает POST /admins/refunds/episode —
// возврат покупки эпизода оператором.
func (h *Handler) HandleRefundEpisode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID       int64 `json:"user_id"`
		EpisodeID    int64 `json:"episode_id"`
		InstrumentID int64 `json:"instrument_id"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	if err := h.service.RefundEpisodePurchase(r.Context(), body.UserID, body.EpisodeID, body.InstrumentID, deviceType(r)); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"refunded": true})
}

// HandleRefundTopUp обрабатывает POST /admins/refunds/topup —
// возврат пополнения оператором: отмена в шлюзе и обратные записи.
func (h *Handler) HandleRefundTopUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PaymentID string `json:"payment_id"`
		Reason    string `json:"reason"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil || body.PaymentID == "" {
		httpapi.WriteBadRequest(w, "нужен payment_id")
		return
	}

	if err := h.service.RefundTopUp(r.Context(), body.PaymentID, body.Reason); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"refunded": true})
}
