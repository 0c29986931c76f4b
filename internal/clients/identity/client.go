// Package identity — клиент провайдера учётных записей.
// Сервис не хранит пользователей сам: bearer-токен интроспектируется
// здесь, в ответ приходит субъект с ролью.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// Роли субъектов.
const (
	RoleUser    = "user"
	RoleAuthor  = "author"
	RolePartner = "partner"
	RoleAdmin   = "admin"
)

// Principal — результат интроспекции токена.
type Principal struct {
	UserID    int64  `json:"user_id"`
	ProfileID int64  `json:"profile_id"`
	Role      string `json:"role"`
}

// Client ходит в провайдер учётных записей по HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New создаёт клиента провайдера.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Introspect проверяет bearer-токен и возвращает субъекта.
// Недействительный токен — ErrUnauthorized.
func (c *Client) Introspect(ctx context.Context, token string) (*Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/introspect", nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("провайдер учётных записей недоступен: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, common.ErrUnauthorized
	default:
		return nil, fmt.Errorf("провайдер вернул статус %d", resp.StatusCode)
	}

	var p Principal
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа провайдера: %w", err)
	}
	if p.Role == "" {
		p.Role = RoleUser
	}
	return &p, nil
}
