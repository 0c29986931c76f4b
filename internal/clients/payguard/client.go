// Package payguard — клиент внешнего платёжного шлюза.
// Сервис доверяет только шлюзу: подтверждение пополнения всегда
// начинается с чтения авторитетной записи платежа отсюда.
//
// Таймауты ограничены: истёкший confirm трактуется как «неизвестно»,
// и дальше работает компенсационный путь (CancelPayment).
package payguard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StatusPaid — единственный статус, при котором пополнение проводится.
const StatusPaid = "Paid"

// Payment — авторитетная запись платежа в шлюзе.
type Payment struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Amount        int64             `json:"amount"`
	Method        string            `json:"method"`
	TransactionID string            `json:"transaction_id"`
	CustomData    map[string]string `json:"custom_data"`
}

// Client ходит в платёжный шлюз по HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New создаёт клиента шлюза с ограниченным таймаутом.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetPayment возвращает запись платежа по ID.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentID), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("шлюз недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("шлюз вернул статус %d", resp.StatusCode)
	}

	var p Payment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа шлюза: %w", err)
	}
	return &p, nil
}

// CancelPayment отменяет платёж в шлюзе (компенсация).
func (c *Client) CancelPayment(ctx context.Context, paymentID, reason string) error {
	body, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return fmt.Errorf("ошибка сериализации причины: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/payments/%s/cancel", c.baseURL, paymentID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("шлюз недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("отмена платежа отклонена: статус %d", resp.StatusCode)
	}
	return nil
}
