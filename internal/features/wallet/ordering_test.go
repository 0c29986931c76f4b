package wallet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string     { return &s }
func i64Ptr(v int64) *int64       { return &v }
func timePtr(t time.Time) *time.Time { return &t }

func TestScopeCovers(t *testing.T) {
	universal := Scope{}
	workScoped := Scope{ProductID: i64Ptr(9)}
	episodeScoped := Scope{ProductID: i64Ptr(9), EpisodeID: i64Ptr(700)}

	assert.True(t, universal.Covers(9, 700))
	assert.True(t, universal.Covers(5, 1))

	assert.True(t, workScoped.Covers(9, 700))
	assert.True(t, workScoped.Covers(9, 701))
	assert.False(t, workScoped.Covers(5, 700))

	assert.True(t, episodeScoped.Covers(9, 700))
	assert.False(t, episodeScoped.Covers(9, 701))
}

func TestScopeValid(t *testing.T) {
	// Запрещённая комбинация: product_id пуст, episode_id задан
	bad := Scope{EpisodeID: i64Ptr(700)}
	assert.False(t, bad.Valid())

	assert.True(t, Scope{}.Valid())
	assert.True(t, Scope{ProductID: i64Ptr(9)}.Valid())
	assert.True(t, Scope{ProductID: i64Ptr(9), EpisodeID: i64Ptr(700)}.Valid())
}

func TestSortUsable_ExpiryBeforeType(t *testing.T) {
	// Пользователь держит paid-аренду с истечением через 2 часа и
	// универсальный comped-билет от waiting-for-free. Платность не
	// приоритизируется: ближнее истечение идёт первым.
	now := time.Now()

	i1 := &TicketInstrument{
		ID:                1,
		Scope:             Scope{ProductID: i64Ptr(9)},
		OwnType:           OwnTypeRental,
		TicketType:        TicketPaid,
		UseYN:             "N",
		RentalExpiredDate: timePtr(now.Add(2 * time.Hour)),
	}
	i2 := &TicketInstrument{
		ID:              2,
		Scope:           Scope{},
		OwnType:         OwnTypeRental,
		TicketType:      TicketComped,
		AcquisitionType: strPtr(AcqAppliedPromotion),
		PromotionType:   strPtr(PromoWaitingForFree),
		UseYN:           "N",
	}

	ts := []*TicketInstrument{i2, i1}
	SortUsable(ts)

	// Срок сгорания решает раньше приоритета акции
	assert.Equal(t, int64(1), ts[0].ID)
	assert.Equal(t, int64(2), ts[1].ID)
}

func TestSortUsable_PromotionPriority(t *testing.T) {
	// 6-9-path раньше reader-of-prev, затем free-for-first,
	// waiting-for-free и обычные event-билеты
	mk := func(id int64, promoType string) *TicketInstrument {
		return &TicketInstrument{
			ID:            id,
			OwnType:       OwnTypeRental,
			TicketType:    TicketComped,
			PromotionType: strPtr(promoType),
			UseYN:         "N",
		}
	}

	event := &TicketInstrument{
		ID:              5,
		OwnType:         OwnTypeRental,
		TicketType:      TicketPaid,
		AcquisitionType: strPtr(AcqEvent),
		UseYN:           "N",
	}

	ts := []*TicketInstrument{
		event,
		mk(4, PromoWaitingForFree),
		mk(2, PromoReaderOfPrev),
		mk(3, PromoFreeForFirst),
		mk(1, PromoSixNinePath),
	}
	SortUsable(ts)

	var ids []int64
	for _, x := range ts {
		ids = append(ids, x.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
}

func TestSortUsable_NilExpiryLast(t *testing.T) {
	now := time.Now()

	withExpiry := &TicketInstrument{
		ID:                1,
		OwnType:           OwnTypeRental,
		TicketType:        TicketPaid,
		UseYN:             "N",
		RentalExpiredDate: timePtr(now.Add(48 * time.Hour)),
	}
	noExpiry := &TicketInstrument{
		ID:         2,
		OwnType:    OwnTypeRental,
		TicketType: TicketPaid,
		UseYN:      "N",
	}

	ts := []*TicketInstrument{noExpiry, withExpiry}
	SortUsable(ts)

	assert.Equal(t, int64(1), ts[0].ID, "билет с истечением должен тратиться раньше бессрочного")
}

func TestInstrumentUsable(t *testing.T) {
	now := time.Now()

	used := &TicketInstrument{OwnType: OwnTypeRental, UseYN: "Y"}
	assert.False(t, used.Usable(now))

	own := &TicketInstrument{OwnType: OwnTypeOwn, UseYN: "N"}
	assert.False(t, own.Usable(now), "own-инструмент не потребляется как аренда")

	expired := &TicketInstrument{
		OwnType:           OwnTypeRental,
		UseYN:             "N",
		RentalExpiredDate: timePtr(now.Add(-time.Minute)),
	}
	assert.False(t, expired.Usable(now))

	fresh := &TicketInstrument{
		OwnType:           OwnTypeRental,
		UseYN:             "N",
		RentalExpiredDate: timePtr(now.Add(time.Minute)),
	}
	assert.True(t, fresh.Usable(now))

	unlimited := &TicketInstrument{OwnType: OwnTypeRental, UseYN: "N"}
	assert.True(t, unlimited.Usable(now))
}
