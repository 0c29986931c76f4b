// Package promotion — движок промоакций: заявочные акции (applied)
// с админским циклом согласования и прямые акции (direct) авторов
// с автовыдачей и недельной квотой.
package promotion

import "time"

// Статусы заявочной акции.
const (
	StatusApply  = "apply"  // Автор подал заявку
	StatusIng    = "ing"    // Админ принял, акция идёт
	StatusCancel = "cancel" // Автор отозвал заявку
	StatusEnd    = "end"    // Админ завершил
	StatusDeny   = "deny"   // Админ отклонил
)

// Типы заявочных акций.
const (
	TypeWaitingForFree = "waiting-for-free"
	TypeSixNinePath    = "6-9-path"
)

// Статусы прямой акции.
const (
	DirectIng  = "ing"  // Идёт
	DirectStop = "stop" // Остановлена; выданные билеты не отзываются
)

// Типы прямых акций.
const (
	TypeFreeForFirst = "free-for-first" // Автовыдача новому читателю
	TypeReaderOfPrev = "reader-of-prev" // Заявка пользователя под недельной квотой
)

// AppliedPromotion — заявочная акция на произведение.
// Каждый переход статуса штампуется актором и временем и выполняется
// однократно; из терминальных состояний (end, deny, cancel) выходов нет.
type AppliedPromotion struct {
	ID              int64      `db:"id"`
	ProductID       int64      `db:"product_id"`
	Type            string     `db:"type"` // waiting-for-free | 6-9-path
	Status          string     `db:"status"`
	StartDate       time.Time  `db:"start_date"`
	EndDate         *time.Time `db:"end_date"`
	NumPerPerson    int        `db:"num_of_ticket_per_person"`
	StatusChangedBy *int64     `db:"status_changed_by"`
	StatusChangedAt *time.Time `db:"status_changed_at"`
	CreatedAt       time.Time  `db:"created_date"`
}

// Active сообщает, должна ли акция выдавать билеты в момент now.
func (p *AppliedPromotion) Active(now time.Time) bool {
	if p.Status != StatusIng {
		return false
	}
	if now.Before(p.StartDate) {
		return false
	}
	return p.EndDate == nil || !now.After(*p.EndDate)
}

// DirectPromotion — прямая акция автора.
type DirectPromotion struct {
	ID           int64     `db:"id"`
	ProductID    int64     `db:"product_id"`
	Type         string    `db:"type"` // free-for-first | reader-of-prev
	Status       string    `db:"status"`
	NumPerPerson int       `db:"num_of_ticket_per_person"`
	CreatedAt    time.Time `db:"created_date"`
}

// DirectClaim — факт недельной выдачи по прямой акции.
// Уникальность (promotion_id, user_id, week_index) — жёсткая гарантия
// «не больше одной выдачи в неделю».
type DirectClaim struct {
	ID          int64     `db:"id"`
	PromotionID int64     `db:"promotion_id"`
	UserID      int64     `db:"user_id"`
	WeekIndex   int       `db:"week_index"`
	CreatedAt   time.Time `db:"created_date"`
}

// DirectView — прямая акция глазами конкретного пользователя.
// Для reader-of-prev статус показывается как stop после выдачи
// на этой неделе — per-user исчерпание; значение в БД не меняется.
type DirectView struct {
	DirectPromotion
	DisplayStatus string     `json:"display_status"`
	LastIssuedAt  *time.Time `json:"last_issued_at,omitempty"`
	NextEligible  *time.Time `json:"next_eligible_at,omitempty"`
}
