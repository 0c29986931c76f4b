package giftbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
)

// fakeStore — подарочный ящик в памяти. Receive повторяет проверки
// репозитория: чужой подарок, повторное получение, просрочка.
type fakeStore struct {
	gifts     map[int64]*GiftEntry
	nextID    int64
	expired   []int64 // Журнальные отметки сгоревших подарков
	lastLimit int
}

func newFakeStore() *fakeStore {
	return &fakeStore{gifts: map[int64]*GiftEntry{}}
}

func (f *fakeStore) Issue(_ context.Context, spec IssueSpec) (int64, error) {
	f.nextID++
	f.gifts[f.nextID] = &GiftEntry{
		ID: f.nextID, UserID: spec.UserID, Scope: spec.Scope,
		OwnType: spec.OwnType, TicketType: spec.TicketType,
		AcquisitionType: spec.AcquisitionType, Amount: spec.Amount,
		ReceivedYN: "N", CreatedAt: time.Now(),
	}
	return f.nextID, nil
}

func (f *fakeStore) GetByID(_ context.Context, giftID int64) (*GiftEntry, error) {
	g, ok := f.gifts[giftID]
	if !ok {
		return nil, common.ErrGiftNotFound
	}
	return g, nil
}

func (f *fakeStore) Receive(_ context.Context, giftID, userID int64, now, deadline time.Time) (*GiftEntry, error) {
	g, ok := f.gifts[giftID]
	if !ok {
		return nil, common.ErrGiftNotFound
	}
	if g.UserID != userID {
		return nil, common.ErrGiftForbidden
	}
	if g.ReceivedYN == "Y" {
		return nil, common.ErrGiftAlreadyReceived
	}
	if now.After(deadline) {
		return nil, common.ErrGiftExpired
	}
	g.ReceivedYN = "Y"
	g.ReceivedDate = &now
	return g, nil
}

func (f *fakeStore) ListPending(_ context.Context, userID int64, notBefore time.Time) ([]*GiftEntry, error) {
	var out []*GiftEntry
	for _, g := range f.gifts {
		if g.UserID == userID && g.ReceivedYN == "N" && g.CreatedAt.After(notBefore) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) ListLog(_ context.Context, _ int64, limit int) ([]*GiftLog, error) {
	f.lastLimit = limit
	return nil, nil
}

// MarkExpired пишет только журнальные отметки, строки подарков не трогает.
func (f *fakeStore) MarkExpired(_ context.Context, deadline time.Time) (int64, error) {
	var n int64
	for _, g := range f.gifts {
		if g.ReceivedYN == "N" && g.CreatedAt.Before(deadline) {
			f.expired = append(f.expired, g.ID)
			n++
		}
	}
	return n, nil
}

// fakeNotifier считает отправленные уведомления.
type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Notify(_ context.Context, _ int64, title, _ string) {
	f.sent = append(f.sent, title)
}

func validSpec(userID int64) IssueSpec {
	productID := int64(9)
	return IssueSpec{
		UserID:          userID,
		Scope:           wallet.Scope{ProductID: &productID},
		OwnType:         wallet.OwnTypeRental,
		TicketType:      wallet.TicketComped,
		AcquisitionType: wallet.AcqEvent,
		Amount:          2,
		Reason:          "Событие запуска",
	}
}

func TestIssue_Validation(t *testing.T) {
	svc := NewService(newFakeStore(), nil, 7)
	ctx := context.Background()

	// Запрещённый скоуп: эпизод без произведения
	bad := validSpec(42)
	episodeID := int64(700)
	bad.Scope = wallet.Scope{EpisodeID: &episodeID}
	_, err := svc.Issue(ctx, bad)
	assert.ErrorIs(t, err, common.ErrInvalidScope)

	zero := validSpec(42)
	zero.Amount = 0
	_, err = svc.Issue(ctx, zero)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	wrongOwn := validSpec(42)
	wrongOwn.OwnType = "lease"
	_, err = svc.Issue(ctx, wrongOwn)
	assert.Error(t, err)

	wrongTicket := validSpec(42)
	wrongTicket.TicketType = "bonus"
	_, err = svc.Issue(ctx, wrongTicket)
	assert.Error(t, err)

	_, err = svc.Issue(ctx, validSpec(42))
	assert.NoError(t, err)
}

func TestIssue_Notifies(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(newFakeStore(), notifier, 7)

	_, err := svc.Issue(context.Background(), validSpec(42))
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Подарок в ящике", notifier.sent[0])
}

func TestReceive_WithinDeadline(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, 7)
	ctx := context.Background()

	giftID, err := svc.Issue(ctx, validSpec(42))
	require.NoError(t, err)
	issued := store.gifts[giftID].CreatedAt

	// Через 6 дней подарок ещё живой
	svc.SetClock(func() time.Time { return issued.Add(6 * 24 * time.Hour) })
	g, err := svc.Receive(ctx, giftID, 42)
	require.NoError(t, err)
	assert.Equal(t, "Y", g.ReceivedYN)

	// Повторное получение невозможно
	_, err = svc.Receive(ctx, giftID, 42)
	assert.ErrorIs(t, err, common.ErrGiftAlreadyReceived)
}

func TestReceive_Expired(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, 7)
	ctx := context.Background()

	giftID, err := svc.Issue(ctx, validSpec(42))
	require.NoError(t, err)
	issued := store.gifts[giftID].CreatedAt

	// Спустя 7 дней и час подарок сгорел
	svc.SetClock(func() time.Time { return issued.Add(7*24*time.Hour + time.Hour) })
	_, err = svc.Receive(ctx, giftID, 42)
	assert.ErrorIs(t, err, common.ErrGiftExpired)
	assert.Equal(t, "N", store.gifts[giftID].ReceivedYN, "неудачное получение не меняет состояние")
}

func TestReceive_ForeignGift(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, 7)
	ctx := context.Background()

	giftID, err := svc.Issue(ctx, validSpec(42))
	require.NoError(t, err)

	_, err = svc.Receive(ctx, giftID, 43)
	assert.ErrorIs(t, err, common.ErrGiftForbidden)
}

func TestIssueAndReceive(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, 7)

	require.NoError(t, svc.IssueAndReceive(context.Background(), validSpec(42)))
	require.Len(t, store.gifts, 1)
	for _, g := range store.gifts {
		assert.Equal(t, "Y", g.ReceivedYN)
	}
}

func TestHistory_LimitBounds(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, 7)
	ctx := context.Background()

	_, err := svc.History(ctx, 42, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, store.lastLimit, "нулевой лимит заменяется значением по умолчанию")

	_, err = svc.History(ctx, 42, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, store.lastLimit, "верхняя граница совпадает с предельной в обработчике")

	_, err = svc.History(ctx, 42, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, store.lastLimit, "превышение срезается до предела, а не до умолчания")
}

func TestSweepExpired(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, 7)
	ctx := context.Background()

	oldID, err := svc.Issue(ctx, validSpec(42))
	require.NoError(t, err)
	store.gifts[oldID].CreatedAt = time.Now().Add(-8 * 24 * time.Hour)

	freshID, err := svc.Issue(ctx, validSpec(42))
	require.NoError(t, err)

	require.NoError(t, svc.SweepExpired(ctx))
	assert.Equal(t, []int64{oldID}, store.expired, "в журнал попадает только старый подарок")
	assert.Equal(t, "N", store.gifts[oldID].ReceivedYN, "строка подарка не меняется")
	assert.NotContains(t, store.expired, freshID)
}
