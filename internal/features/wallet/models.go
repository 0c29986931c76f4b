// Package wallet управляет кошельком билетов (productbook):
// какие инструменты у пользователя есть, какие из них применимы
// к конкретному эпизоду и как ровно один из них атомарно потребляется.
package wallet

import "time"

// Классы постоянства инструмента.
const (
	OwnTypeOwn    = "own"    // Бессрочный доступ; не потребляется, только матчится
	OwnTypeRental = "rental" // Аренда; потребляется, 72 часа с момента использования
)

// Классы выручки инструмента.
const (
	TicketPaid   = "paid"   // Участвует в расчётах с авторами
	TicketComped = "comped" // Бесплатная полоса, выручку не создаёт
)

// Источники появления инструмента. NULL означает покупку за кэш.
const (
	AcqEvent            = "event"
	AcqGift             = "gift"
	AcqQuest            = "quest"
	AcqAppliedPromotion = "applied_promotion"
	AcqDirectPromotion  = "direct_promotion"
	AcqAdminDirect      = "admin_direct"
)

// Типы промоакций. Хранятся на инструменте денормализованно,
// потому что порядок потребления зависит от типа акции-источника.
const (
	PromoSixNinePath   = "6-9-path"
	PromoReaderOfPrev  = "reader-of-prev"
	PromoFreeForFirst  = "free-for-first"
	PromoWaitingForFree = "waiting-for-free"
)

// Scope — область действия инструмента: пара (product_id?, episode_id?).
//
//	(nil, nil)   — универсальный: любой эпизод любого произведения
//	(set, nil)   — на произведение: любой его эпизод
//	(set, set)   — на конкретный эпизод
//	(nil, set)   — ЗАПРЕЩЕНО
type Scope struct {
	ProductID *int64
	EpisodeID *int64
}

// Universal сообщает, универсален ли скоуп.
func (s Scope) Universal() bool {
	return s.ProductID == nil && s.EpisodeID == nil
}

// Valid проверяет, что комбинация разрешена.
func (s Scope) Valid() bool {
	return !(s.ProductID == nil && s.EpisodeID != nil)
}

// Covers сообщает, покрывает ли скоуп эпизод (episodeID, productID).
func (s Scope) Covers(productID, episodeID int64) bool {
	if s.Universal() {
		return true
	}
	if s.ProductID == nil || *s.ProductID != productID {
		return false
	}
	// Скоуп на произведение покрывает любой его эпизод
	return s.EpisodeID == nil || *s.EpisodeID == episodeID
}

// TicketInstrument — один инструмент монетизации (строка productbook).
//
// Аренда потребляется один раз: при первом использовании скоуп
// перезаписывается на фактический (product_id, episode_id), use_yn
// становится 'Y', а rental_expired_date — момент использования + 72 ч.
// Own-инструменты помечены use_yn='Y' с момента выдачи и никогда
// не «потребляются» — они просто матчатся.
type TicketInstrument struct {
	ID                int64      `db:"id"`
	UserID            int64      `db:"user_id"`
	ProfileID         int64      `db:"profile_id"`
	Scope             Scope
	OwnType           string     `db:"own_type"`    // own | rental
	TicketType        string     `db:"ticket_type"` // paid | comped
	AcquisitionType   *string    `db:"acquisition_type"`
	AcquisitionID     *int64     `db:"acquisition_id"`
	PromotionType     *string    `db:"promotion_type"` // Тип акции-источника, если есть
	UseYN             string     `db:"use_yn"`         // N — не использован, Y — использован
	RentalExpiredDate *time.Time `db:"rental_expired_date"`
	CreatedAt         time.Time  `db:"created_date"`
	UpdatedAt         time.Time  `db:"updated_date"`
}

// Usable сообщает, применим ли инструмент прямо сейчас как аренда:
// не использован и (без срока или срок в будущем).
func (t *TicketInstrument) Usable(now time.Time) bool {
	if t.OwnType != OwnTypeRental || t.UseYN != "N" {
		return false
	}
	return t.RentalExpiredDate == nil || t.RentalExpiredDate.After(now)
}

// Expired сообщает, истёк ли потреблённый арендный инструмент.
func (t *TicketInstrument) Expired(now time.Time) bool {
	return t.OwnType == OwnTypeRental && t.UseYN == "Y" &&
		t.RentalExpiredDate != nil && t.RentalExpiredDate.Before(now)
}
