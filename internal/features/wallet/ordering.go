// Package wallet — ordering.go задаёт детерминированный полный порядок
// потребления инструментов.
package wallet

import "sort"

// promoPriority — чем меньше число, тем раньше инструмент потребляется.
// Сильные акции расходуются первыми, затем событийные выдачи,
// затем всё остальное.
var promoPriority = map[string]int{
	PromoSixNinePath:    0,
	PromoReaderOfPrev:   1,
	PromoFreeForFirst:   2,
	PromoWaitingForFree: 3,
	AcqEvent:            4,
}

// priorityOf возвращает приоритет инструмента по типу акции-источника,
// для событийных выдач — по acquisition_type. Всё прочее уходит в конец.
func priorityOf(t *TicketInstrument) int {
	if t.PromotionType != nil {
		if p, ok := promoPriority[*t.PromotionType]; ok {
			return p
		}
	}
	if t.AcquisitionType != nil {
		if p, ok := promoPriority[*t.AcquisitionType]; ok {
			return p
		}
	}
	return len(promoPriority)
}

// SortUsable упорядочивает применимые инструменты для потребления:
//  1. rental_expired_date по возрастанию, NULL в конце — скорее сгорающий
//     инструмент тратится первым, защищая пользователя от тихой потери;
//  2. приоритет акции: 6-9-path > reader-of-prev > free-for-first >
//     waiting-for-free > event. Срок у непотреблённых инструментов
//     обычно пуст, так что на практике решает именно приоритет;
//  3. updated_date по убыванию — как tie-break для детерминизма.
//
// Сортировка стабильная, порядок полный.
func SortUsable(ts []*TicketInstrument) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]

		// Ближайший срок сгорания первым; NULL (без срока) — последними
		ae, be := a.RentalExpiredDate, b.RentalExpiredDate
		switch {
		case ae != nil && be == nil:
			return true
		case ae == nil && be != nil:
			return false
		case ae != nil && be != nil && !ae.Equal(*be):
			return ae.Before(*be)
		}

		pa, pb := priorityOf(a), priorityOf(b)
		if pa != pb {
			return pa < pb
		}

		return a.UpdatedAt.After(b.UpdatedAt)
	})
}
