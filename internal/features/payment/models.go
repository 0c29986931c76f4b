// Package payment — кэшевые покупки и возвраты: пополнение кэша через
// внешний платёжный шлюз с компенсацией при сбое, покупка own-доступа
// к эпизодам и возвраты, добавляющие обратные строки в леджер.
package payment

import "time"

// Статусы локальной записи платежа.
const (
	StatusPending  = "PENDING"
	StatusPaid     = "PAID"
	StatusCanceled = "CANCELED"
	StatusRefunded = "REFUNDED"
)

// StoreOrder — заказ магазина (пополнение кэша).
type StoreOrder struct {
	ID         int64     `db:"id"`
	OrderNo    string    `db:"order_no"` // "OC" + "C" + yymmdd + 6 base36
	UserID     int64     `db:"user_id"`
	TotalPrice int64     `db:"total_price"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

// StoreOrderItem — позиция заказа.
type StoreOrderItem struct {
	ID        int64     `db:"id"`
	OrderID   int64     `db:"order_id"`
	ItemName  string    `db:"item_name"`
	ItemPrice int64     `db:"item_price"`
	Quantity  int       `db:"quantity"`
	CancelYN  string    `db:"cancel_yn"` // 'Y' после возврата
	CreatedAt time.Time `db:"created_at"`
}

// StorePayment — привязка заказа к внешнему платежу.
// pg_payment_id — неявный ключ идемпотентности: создание заказа
// является чистой функцией от него.
type StorePayment struct {
	ID          int64     `db:"id"`
	OrderID     int64     `db:"order_id"`
	PGPaymentID string    `db:"pg_payment_id"`
	PGTxID      string    `db:"pg_tx_id"`
	Method      string    `db:"method"`
	Amount      int64     `db:"amount"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

// TopUpResult — итог подтверждения пополнения.
type TopUpResult struct {
	OrderNo       string `json:"order_no"`
	Amount        int64  `json:"amount"`         // Оплачено во внешнем шлюзе
	CreditedCash  int64  `json:"credited_cash"`  // Зачислено с бонусом
	AlreadyPaid   bool   `json:"already_paid"`   // Повторный вызов, записей не было
}

// BulkPurchaseResult — итог массовой покупки эпизодов произведения.
type BulkPurchaseResult struct {
	PurchasedCount   int   `json:"purchasedCount"`
	TotalCashUsed    int64 `json:"totalCashUsed"`
	SkippedFreeCount int   `json:"skippedFreeCount"`
	SkippedOwnedCount int  `json:"skippedOwnedCount"`
}
