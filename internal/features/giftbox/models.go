// Package giftbox — конвейер выдачи билетов (giftbook).
// Единственный путь появления некэшевых инструментов: события, квесты,
// промоакции и админские гранты складывают сюда отложенные билеты,
// пользователь «получает» их, и только тогда они материализуются
// в productbook. Срок получения — 7 дней, после — подарок сгорает.
package giftbox

import (
	"time"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
)

// Действия в журнале подарочных операций.
const (
	LogReceived = "received" // Подарок появился в ящике пользователя
	LogUsed     = "used"     // Подарок получен и материализован
	LogExpired  = "expired"  // Подарок сгорел неполученным
)

// GiftEntry — отложенный инструмент, ожидающий действия «получить».
// Несёт те же поля скоупа и типов, что и TicketInstrument.
type GiftEntry struct {
	ID              int64      `db:"id"`
	UserID          int64      `db:"user_id"`
	ProfileID       int64      `db:"profile_id"`
	Scope           wallet.Scope
	OwnType         string     `db:"own_type"`
	TicketType      string     `db:"ticket_type"`
	AcquisitionType string     `db:"acquisition_type"`
	AcquisitionID   *int64     `db:"acquisition_id"`
	PromotionType   *string    `db:"promotion_type"`
	Amount          int        `db:"amount"` // Сколько инструментов материализуется
	Reason          string     `db:"reason"`
	ReceivedYN      string     `db:"received_yn"`
	ReceivedDate    *time.Time `db:"received_date"`
	CreatedAt       time.Time  `db:"created_date"`
}

// ExpiresAt возвращает момент, после которого подарок нельзя получить.
func (g *GiftEntry) ExpiresAt(validityDays int) time.Time {
	return g.CreatedAt.Add(time.Duration(validityDays) * 24 * time.Hour)
}

// GiftLog — строка журнала подарочных операций (аудит).
type GiftLog struct {
	ID        int64     `db:"id"`
	GiftID    int64     `db:"gift_id"`
	UserID    int64     `db:"user_id"`
	Action    string    `db:"action"`
	CreatedAt time.Time `db:"created_at"`
}

// IssueSpec — заявка на выдачу подарка.
type IssueSpec struct {
	UserID          int64
	ProfileID       int64
	Scope           wallet.Scope
	OwnType         string // own | rental
	TicketType      string // paid | comped
	AcquisitionType string // event | gift | quest | applied_promotion | direct_promotion | admin_direct
	AcquisitionID   *int64 // NULL для admin_direct
	PromotionType   *string
	Amount          int
	Reason          string
}
