// Package wallet — handlers.go обрабатывает HTTP-запросы кошелька:
// список применимых билетов, потребление и чтение эпизода.
package wallet

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/httpapi"
)

// Handler обрабатывает запросы кошелька билетов.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик кошелька.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// deviceType читает канал из заголовка, по умолчанию web.
func deviceType(r *http.Request) string {
	if dt := r.Header.Get("X-Device-Type"); dt != "" {
		return dt
	}
	return "web"
}

// HandleAvailableTickets обрабатывает
// GET /user-productbook/available-tickets?episode_id=…|product_id=…
// Билеты отдаются в порядке потребления.
func (h *Handler) HandleAvailableTickets(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	if raw := r.URL.Query().Get("episode_id"); raw != "" {
		episodeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpapi.WriteBadRequest(w, "некорректный episode_id")
			return
		}
		tickets, err := h.service.ListUsableForEpisode(r.Context(), p.UserID, episodeID)
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, map[string]any{"tickets": tickets})
		return
	}

	if raw := r.URL.Query().Get("product_id"); raw != "" {
		productID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpapi.WriteBadRequest(w, "некорректный product_id")
			return
		}
		tickets, err := h.service.ListUsableForProduct(r.Context(), p.UserID, productID)
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, map[string]any{"tickets": tickets})
		return
	}

	httpapi.WriteBadRequest(w, "нужен episode_id или product_id")
}

// HandleConsume обрабатывает POST /user-productbook/{id}/use — явное
// потребление арендного билета на эпизод из тела запроса.
func (h *Handler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	instrumentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpapi.WriteBadRequest(w, "некорректный id билета")
		return
	}

	var body struct {
		EpisodeID int64 `json:"episode_id"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil || body.EpisodeID == 0 {
		httpapi.WriteBadRequest(w, "нужен episode_id")
		return
	}

	if err := h.service.Consume(r.Context(), instrumentID, p.UserID, body.EpisodeID, deviceType(r)); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"consumed": true})
}

// HandleReadEpisode обрабатывает POST /episodes/{episode_id}/read —
// полную оркестровку чтения: бесплатный эпизод, own-доступ, билет
// или автовыдача по акции.
func (h *Handler) HandleReadEpisode(w http.ResponseWriter, r *http.Request) {
	p := httpapi.PrincipalFrom(r.Context())

	episodeID, err := strconv.ParseInt(chi.URLParam(r, "episode_id"), 10, 64)
	if err != nil {
		httpapi.WriteBadRequest(w, "некорректный episode_id")
		return
	}

	result, err := h.service.ReadEpisode(r.Context(), p.UserID, episodeID, deviceType(r))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, result)
}
