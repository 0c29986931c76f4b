// Package push — клиент пуш-уведомлений. Уведомления не участвуют
// в денежных транзакциях: отправка делается после коммита, сбой
// логируется и не влияет на результат операции.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Client отправляет пуш-уведомления через внешний шлюз.
type Client struct {
	baseURL   string
	serverKey string
	http      *http.Client
}

// New создаёт клиента пушей.
func New(baseURL, serverKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		serverKey: serverKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// message — тело запроса к шлюзу.
type message struct {
	UserID int64  `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// send отправляет одно уведомление.
func (c *Client) send(ctx context.Context, userID int64, title, body string) error {
	payload, err := json.Marshal(message{UserID: userID, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("ошибка сериализации уведомления: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/push", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Authorization", "key="+c.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("шлюз пушей недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("шлюз пушей вернул статус %d", resp.StatusCode)
	}
	return nil
}

// Notify отправляет уведомление пользователю. Сбой только логируется.
func (c *Client) Notify(ctx context.Context, userID int64, title, body string) {
	if err := c.send(ctx, userID, title, body); err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
		}).WithError(err).Warn("Не удалось отправить уведомление")
	}
}
