// Package giftbox — handlers.go обрабатывает HTTP-запросы подарочного
// ящика: список ожидающих подарков, получение, журнал и админская
// прямая выдача.
package giftbox

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/httpapi"
)

// Handler обрабатывает запросы подарочного ящика.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик подарков.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleListPending обрабатывает GET /user-giftbook — подарки,
// ожидающие получения.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	gifts, err := h.service.ListPending(r.Context(), p.UserID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"gifts": gifts})
}

// HandleReceive обрабатывает POST /user-giftbook/{id}/receive —
// материализует подарок в билеты кошелька.
func (h *Handler) HandleReceive(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	giftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpapi.WriteBadRequest(w, "некорректный id подарка")
		return
	}

	gift, err := h.service.Receive(r.Context(), giftID, p.UserID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, gift)
}

// HandleHistory обрабатывает GET /user-giftbook/log — журнал
// событий по подаркам пользователя.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.service.History(r.Context(), p.UserID, limit)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"log": entries})
}

// grantRequest — тело админской прямой выдачи.
type grantRequest struct {
	UserID     int64  `json:"user_id"`
	ProfileID  int64  `json:"profile_id"`
	ProductID  *int64 `json:"product_id"`
	EpisodeID  *int64 `json:"episode_id"`
	OwnType    string `json:"own_type"`
	TicketType string `json:"ticket_type"`
	Amount     int    `json:"amount"`
	Reason     string `json:"reason"`
}

// HandleAdminGrant обрабатывает POST /admins/giftbook/grant — прямую
// выдачу подарка пользователю администратором.
func (h *Handler) HandleAdminGrant(w http.ResponseWriter, r *http.Request) {
	var body grantRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	giftID, err := h.service.Issue(r.Context(), IssueSpec{
		UserID:          body.UserID,
		ProfileID:       body.ProfileID,
		Scope:           wallet.Scope{ProductID: body.ProductID, EpisodeID: body.EpisodeID},
		OwnType:         body.OwnType,
		TicketType:      body.TicketType,
		AcquisitionType: wallet.AcqAdminDirect,
		Amount:          body.Amount,
		Reason:          body.Reason,
	})
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"gift_id": giftID})
}
