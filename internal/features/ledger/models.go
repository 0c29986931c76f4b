// Package ledger управляет каноническими денежными таблицами:
// cashbook (баланс как append-only дельты), cashbook_transaction
// (движения кэша со спонсорской пометкой) и sales_summary
// (атомарные события монетизации — источник истины для расчётов).
package ledger

import "time"

// SponsorType — пометка спонсорства на движении кэша.
const (
	SponsorNone    = "none"    // Обычное движение
	SponsorAuthor  = "author"  // Спонсорство автора
	SponsorProduct = "product" // Спонсорство произведения
)

// Типы позиций sales_summary.
const (
	ItemOwn         = "own"         // Покупка эпизода навсегда
	ItemPaid        = "paid"        // Платное чтение
	ItemSponsorship = "sponsorship" // Спонсорский взнос
	ItemAd          = "ad"          // Рекламная выручка
)

// Способы оплаты sales_summary.
const (
	PayCash   = "cash"   // Оплачено кэшем
	PayTicket = "ticket" // Оплачено билетом
)

// CashbookRow — одна дельта баланса. Баланс пользователя равен
// сумме всех его строк; строки никогда не изменяются и не удаляются,
// возвраты добавляют отрицательные строки.
type CashbookRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Balance   int64     `db:"balance"` // Подписанная дельта в минимальных единицах
	Reason    string    `db:"reason"`  // Описание для истории
	CreatedAt time.Time `db:"created_at"`
}

// CashTransaction — запись о движении кэша между принципалами.
// Для системных начислений from_user_id равен nil,
// для самопереводов (пополнение) from == to.
type CashTransaction struct {
	ID          int64     `db:"id"`
	FromUserID  *int64    `db:"from_user_id"`
	ToUserID    *int64    `db:"to_user_id"`
	Amount      int64     `db:"amount"` // Всегда положительная
	SponsorType string    `db:"sponsor_type"`
	ProductID   *int64    `db:"product_id"` // Задан при sponsor_type='product'
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// SalesRow — одно атомарное событие выручки. Все пути монетизации
// обязаны записывать сюда согласованные строки; возвраты добавляют
// строки с отрицательной item_price.
type SalesRow struct {
	ID         int64     `db:"id"`
	ItemType   string    `db:"item_type"` // own | paid | sponsorship | ad
	ItemName   string    `db:"item_name"`
	ItemPrice  int64     `db:"item_price"` // Минимальные единицы; < 0 для возвратов
	Quantity   int       `db:"quantity"`
	DeviceType string    `db:"device_type"` // web | ios | playstore | onestore
	UserID     int64     `db:"user_id"`
	ProductID  int64     `db:"product_id"`
	EpisodeID  *int64    `db:"episode_id"`
	AuthorID   int64     `db:"author_id"`
	PayType    string    `db:"pay_type"` // cash | ticket
	TicketKind string    `db:"ticket_kind"` // paid | comped, пусто для cash
	OrderDate  time.Time `db:"order_date"`
}

// SponsorshipRecord — спонсорский взнос, ожидающий включения в расчёт.
type SponsorshipRecord struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	AuthorID  int64     `db:"author_id"`
	ProductID int64     `db:"product_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}
