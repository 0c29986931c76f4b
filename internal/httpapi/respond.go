// Package httpapi — HTTP-слой сервиса: маршрутизация, middleware
// и преобразование доменных ошибок в стабильные строковые коды.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// errorBody — тело ответа при ошибке. Поле code — контрактная строка,
// клиенты матчатся по ней, не по message.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errMapping связывает доменную ошибку с HTTP-статусом и кодом.
type errMapping struct {
	status int
	code   string
}

// Конфликтные состояния отдаются как 400 со стабильным кодом,
// не как 409.
var errMap = map[error]errMapping{
	common.ErrTicketNotFound:        {http.StatusNotFound, "PRODUCTBOOK_NOT_FOUND"},
	common.ErrTicketForbidden:       {http.StatusForbidden, "FORBIDDEN_PRODUCTBOOK"},
	common.ErrTicketAlreadyUsed:     {http.StatusBadRequest, "ALREADY_USED_PRODUCTBOOK"},
	common.ErrTicketExpired:         {http.StatusBadRequest, "EXPIRED_PRODUCTBOOK"},
	common.ErrTicketNotApplicable:   {http.StatusBadRequest, "NOT_APPLICABLE_PRODUCTBOOK"},
	common.ErrTicketNotRental:       {http.StatusBadRequest, "NOT_RENTAL_PRODUCTBOOK"},
	common.ErrInvalidScope:          {http.StatusBadRequest, "INVALID_SCOPE"},
	common.ErrInsufficientBalance:   {http.StatusBadRequest, "INSUFFICIENT_CASH_BALANCE"},
	common.ErrInvalidAmount:         {http.StatusBadRequest, "INVALID_AMOUNT"},
	common.ErrSelfTransfer:          {http.StatusBadRequest, "SELF_TRANSFER"},
	common.ErrUserNotFound:          {http.StatusNotFound, "USER_NOT_FOUND"},
	common.ErrGiftNotFound:          {http.StatusNotFound, "GIFTBOOK_NOT_FOUND"},
	common.ErrGiftExpired:           {http.StatusBadRequest, "EXPIRED_GIFT"},
	common.ErrGiftAlreadyReceived:   {http.StatusBadRequest, "ALREADY_RECEIVED_GIFT"},
	common.ErrGiftForbidden:         {http.StatusForbidden, "FORBIDDEN_GIFT"},
	common.ErrPromotionNotFound:     {http.StatusNotFound, "PROMOTION_NOT_FOUND"},
	common.ErrPromotionNotActive:    {http.StatusBadRequest, "PROMOTION_NOT_ACTIVE"},
	common.ErrInvalidTransition:     {http.StatusBadRequest, "INVALID_PROMOTION_TRANSITION"},
	common.ErrWeeklyQuotaExceeded:   {http.StatusBadRequest, "WEEKLY_QUOTA_EXCEEDED"},
	common.ErrEpisodeNotFound:       {http.StatusNotFound, "EPISODE_NOT_FOUND"},
	common.ErrProductNotFound:       {http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	common.ErrFreeEpisode:           {http.StatusBadRequest, "FREE_EPISODE"},
	common.ErrAlreadyOwned:          {http.StatusBadRequest, "ALREADY_OWNED_EPISODE"},
	common.ErrPaymentNotFound:       {http.StatusNotFound, "PAYMENT_NOT_FOUND"},
	common.ErrPaymentNotPaid:        {http.StatusBadRequest, "PAYMENT_NOT_PAID"},
	common.ErrCompensationFailed:    {http.StatusInternalServerError, "PAYMENT_COMPLETED_BUT_PROCESS_FAILED"},
	common.ErrDBTransaction:         {http.StatusInternalServerError, "DB_TRANSACTION_ERROR"},
	common.ErrSettlementNotFound:    {http.StatusNotFound, "SETTLEMENT_NOT_FOUND"},
	common.ErrSettlementCompleted:   {http.StatusBadRequest, "SETTLEMENT_COMPLETED"},
	common.ErrSettlementForbidden:   {http.StatusForbidden, "FORBIDDEN_SETTLEMENT"},
	common.ErrUnauthorized:          {http.StatusUnauthorized, "UNAUTHORIZED"},
	common.ErrNotAdmin:              {http.StatusForbidden, "NOT_ADMIN"},
	common.ErrWrongPassword:         {http.StatusUnauthorized, "WRONG_PASSWORD"},
	common.ErrOrderNumberCollision:  {http.StatusInternalServerError, "ORDER_NUMBER_COLLISION"},
}

// WriteJSON пишет успешный JSON-ответ.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Ошибка сериализации ответа")
	}
}

// WriteError переводит доменную ошибку в HTTP-ответ. Неизвестные
// ошибки логируются и отдаются как 500 без деталей.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	for sentinel, m := range errMap {
		if errors.Is(err, sentinel) {
			WriteJSON(w, m.status, errorBody{Code: m.code, Message: sentinel.Error()})
			return
		}
	}

	// Недоступность БД отличается от прочих инфраструктурных сбоев
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		log.WithError(err).Error("База данных недоступна")
		WriteJSON(w, http.StatusServiceUnavailable, errorBody{Code: "DB_UNAVAILABLE", Message: "база данных недоступна"})
		return
	}

	log.WithFields(log.Fields{
		"path":   r.URL.Path,
		"method": r.Method,
	}).WithError(err).Error("Необработанная ошибка")
	WriteJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL_ERROR", Message: "внутренняя ошибка сервиса"})
}

// DecodeJSON разбирает JSON-тело запроса, лишние поля отклоняются.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// WriteBadRequest отдаёт 400 на некорректное тело или параметры запроса.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: message})
}
