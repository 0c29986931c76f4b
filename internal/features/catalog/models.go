// Package catalog — читающая модель каталога: произведения и эпизоды.
// Ядро монетизации не управляет каталогом, но потребляет его:
// цена эпизода, признак бесплатности, автор, принадлежность произведению.
package catalog

import "time"

// PriceType — признак платности эпизода.
const (
	PriceFree = "free" // Бесплатный эпизод, покупка запрещена
	PricePaid = "paid" // Платный эпизод
)

// Product представляет произведение (веб-новеллу).
type Product struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	AuthorID  int64     `db:"author_id"` // Пользователь-автор
	CPYN      string    `db:"cp_yn"`     // 'Y' — произведение контрактного партнёра
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Episode представляет один эпизод произведения.
type Episode struct {
	ID        int64     `db:"id"`
	ProductID int64     `db:"product_id"`
	Seq       int       `db:"seq"`        // Порядковый номер внутри произведения
	Title     string    `db:"title"`
	PriceType string    `db:"price_type"` // free | paid
	CreatedAt time.Time `db:"created_at"`
}

// Free сообщает, бесплатен ли эпизод.
func (e *Episode) Free() bool {
	return e.PriceType == PriceFree
}

// ReadLog — отметка «пользователь читал это произведение».
// Нужна правилам бесплатного доступа: free-for-first срабатывает
// только для нового читателя произведения.
type ReadLog struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	ProductID   int64     `db:"product_id"`
	EpisodeID   int64     `db:"episode_id"`
	FirstReadAt time.Time `db:"first_read_at"`
}
