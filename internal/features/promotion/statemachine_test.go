package promotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	// Разрешённые рёбра
	assert.True(t, CanTransition(StatusApply, StatusIng))
	assert.True(t, CanTransition(StatusApply, StatusDeny))
	assert.True(t, CanTransition(StatusApply, StatusCancel))
	assert.True(t, CanTransition(StatusIng, StatusEnd))

	// Из ing нельзя вернуться или отклонить
	assert.False(t, CanTransition(StatusIng, StatusApply))
	assert.False(t, CanTransition(StatusIng, StatusDeny))
	assert.False(t, CanTransition(StatusIng, StatusCancel))

	// Стоки не имеют выходов
	for _, sink := range []string{StatusEnd, StatusDeny, StatusCancel} {
		for _, to := range []string{StatusApply, StatusIng, StatusEnd, StatusDeny, StatusCancel} {
			assert.False(t, CanTransition(sink, to), "%s → %s", sink, to)
		}
	}

	assert.False(t, CanTransition(StatusApply, StatusApply))
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(StatusApply))
	assert.False(t, Terminal(StatusIng))
	assert.True(t, Terminal(StatusEnd))
	assert.True(t, Terminal(StatusDeny))
	assert.True(t, Terminal(StatusCancel))
}

func TestAppliedPromotionActive(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 0, 1)

	p := &AppliedPromotion{Status: StatusIng, StartDate: start, EndDate: &end}
	assert.True(t, p.Active(now))

	// До старта акция молчит
	assert.False(t, p.Active(start.Add(-time.Hour)))

	// После end_date акция закончилась
	assert.False(t, p.Active(end.Add(time.Minute)))

	// Открытый конец: идёт, пока не остановят
	open := &AppliedPromotion{Status: StatusIng, StartDate: start}
	assert.True(t, open.Active(now.AddDate(1, 0, 0)))

	// Не-ing статус не выдаёт билеты независимо от дат
	p.Status = StatusApply
	assert.False(t, p.Active(now))
}
