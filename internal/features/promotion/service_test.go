package promotion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/catalog"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/giftbox"
)

// fakeStore — хранилище акций в памяти.
type fakeStore struct {
	applied     map[int64]*AppliedPromotion
	direct      map[int64]*DirectPromotion
	claims      map[string]int64 // "promo:user:week" → claim id
	nextClaimID int64
	deleted     []int64
	transitions []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		applied:     map[int64]*AppliedPromotion{},
		direct:      map[int64]*DirectPromotion{},
		claims:      map[string]int64{},
		nextClaimID: 100,
	}
}

func claimKey(promotionID, userID int64, weekIndex int) string {
	return fmt.Sprintf("%d:%d:%d", promotionID, userID, weekIndex)
}

func (f *fakeStore) CreateApplied(_ context.Context, productID int64, promoType string, startDate time.Time, numPerPerson int) (int64, error) {
	id := int64(len(f.applied) + 1)
	f.applied[id] = &AppliedPromotion{
		ID: id, ProductID: productID, Type: promoType,
		Status: StatusApply, StartDate: startDate, NumPerPerson: numPerPerson,
	}
	return id, nil
}

func (f *fakeStore) GetApplied(_ context.Context, id int64) (*AppliedPromotion, error) {
	p, ok := f.applied[id]
	if !ok {
		return nil, common.ErrPromotionNotFound
	}
	return p, nil
}

func (f *fakeStore) TransitionApplied(_ context.Context, id int64, from, to string, _ int64, endDate *time.Time) error {
	p := f.applied[id]
	if p.Status != from {
		return common.ErrInvalidTransition
	}
	p.Status = to
	if endDate != nil && p.EndDate == nil {
		p.EndDate = endDate
	}
	f.transitions = append(f.transitions, from+"→"+to)
	return nil
}

func (f *fakeStore) ListActiveApplied(_ context.Context, now time.Time) ([]*AppliedPromotion, error) {
	var out []*AppliedPromotion
	for _, p := range f.applied {
		if p.Active(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) QualifyingUsersWithoutIssue(_ context.Context, _ *AppliedPromotion, _ time.Time) ([]int64, error) {
	return nil, nil
}

func (f *fakeStore) GetDirect(_ context.Context, id int64) (*DirectPromotion, error) {
	p, ok := f.direct[id]
	if !ok {
		return nil, common.ErrPromotionNotFound
	}
	return p, nil
}

func (f *fakeStore) ListDirectByProduct(_ context.Context, productID int64) ([]*DirectPromotion, error) {
	var out []*DirectPromotion
	for _, p := range f.direct {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimWeekly(_ context.Context, promotionID, userID int64, _ time.Time, weekIndex int) (int64, error) {
	key := claimKey(promotionID, userID, weekIndex)
	if _, ok := f.claims[key]; ok {
		return 0, common.ErrWeeklyQuotaExceeded
	}
	f.nextClaimID++
	f.claims[key] = f.nextClaimID
	return f.nextClaimID, nil
}

func (f *fakeStore) DeleteClaim(_ context.Context, claimID int64) error {
	for k, id := range f.claims {
		if id == claimID {
			delete(f.claims, k)
		}
	}
	f.deleted = append(f.deleted, claimID)
	return nil
}

func (f *fakeStore) LastClaim(_ context.Context, _, _ int64) (*DirectClaim, error) {
	return nil, nil
}

// fakeGifts — подарочный конвейер, считающий выдачи.
type fakeGifts struct {
	specs    []giftbox.IssueSpec
	failFrom int // С какой выдачи начинать отказывать; 0 — никогда
	received int
}

func (f *fakeGifts) Issue(_ context.Context, spec giftbox.IssueSpec) (int64, error) {
	if f.failFrom > 0 && len(f.specs)+1 >= f.failFrom {
		return 0, errors.New("конвейер недоступен")
	}
	f.specs = append(f.specs, spec)
	return int64(len(f.specs)), nil
}

func (f *fakeGifts) IssueAndReceive(ctx context.Context, spec giftbox.IssueSpec) error {
	if _, err := f.Issue(ctx, spec); err != nil {
		return err
	}
	f.received++
	return nil
}

// fakeCatalog — каталог для движка акций.
type fakeCatalog struct {
	product    *catalog.Product
	firstVisit bool
}

func (f *fakeCatalog) GetProduct(_ context.Context, _ int64) (*catalog.Product, error) {
	return f.product, nil
}

func (f *fakeCatalog) IsFirstVisit(_ context.Context, _, _ int64) (bool, error) {
	return f.firstVisit, nil
}

func newTestService(store *fakeStore, gifts *fakeGifts, cat *fakeCatalog) *Service {
	svc := NewService(store, gifts, cat, time.UTC)
	svc.SetClock(func() time.Time {
		return time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	})
	return svc
}

func TestApply_Validation(t *testing.T) {
	store := newFakeStore()
	cat := &fakeCatalog{product: &catalog.Product{ID: 9, AuthorID: 77}}
	svc := newTestService(store, &fakeGifts{}, cat)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Apply(ctx, 9, 77, "flash-sale", start, 2)
	assert.Error(t, err, "неизвестный тип акции отклоняется")

	_, err = svc.Apply(ctx, 9, 77, TypeWaitingForFree, start, 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	// Чужое произведение подать нельзя
	_, err = svc.Apply(ctx, 9, 78, TypeWaitingForFree, start, 2)
	assert.ErrorIs(t, err, common.ErrTicketForbidden)

	id, err := svc.Apply(ctx, 9, 77, TypeSixNinePath, start, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusApply, store.applied[id].Status)
}

func TestAppliedLifecycle(t *testing.T) {
	store := newFakeStore()
	cat := &fakeCatalog{product: &catalog.Product{ID: 9, AuthorID: 77}}
	svc := newTestService(store, &fakeGifts{}, cat)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	id, err := svc.Apply(ctx, 9, 77, TypeWaitingForFree, start, 2)
	require.NoError(t, err)

	end := start.AddDate(0, 1, 0)
	require.NoError(t, svc.Accept(ctx, id, 1, &end))
	assert.Equal(t, StatusIng, store.applied[id].Status)

	// Повторная приёмка невозможна: переход выполняется однократно
	assert.ErrorIs(t, svc.Accept(ctx, id, 1, &end), common.ErrInvalidTransition)

	require.NoError(t, svc.End(ctx, id, 1))
	assert.Equal(t, StatusEnd, store.applied[id].Status)

	// Из стока выходов нет
	assert.ErrorIs(t, svc.End(ctx, id, 1), common.ErrInvalidTransition)
}

func TestCancel_OnlyOwnPromotion(t *testing.T) {
	store := newFakeStore()
	cat := &fakeCatalog{product: &catalog.Product{ID: 9, AuthorID: 77}}
	svc := newTestService(store, &fakeGifts{}, cat)
	ctx := context.Background()

	id, err := svc.Apply(ctx, 9, 77, TypeWaitingForFree, time.Now(), 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Cancel(ctx, id, 78), common.ErrTicketForbidden)
	require.NoError(t, svc.Cancel(ctx, id, 77))
	assert.Equal(t, StatusCancel, store.applied[id].Status)
}

func TestClaimReaderOfPrev_WeeklyQuota(t *testing.T) {
	store := newFakeStore()
	store.direct[5] = &DirectPromotion{
		ID: 5, ProductID: 9, Type: TypeReaderOfPrev,
		Status: DirectIng, NumPerPerson: 2,
	}
	gifts := &fakeGifts{}
	svc := newTestService(store, gifts, &fakeCatalog{})
	ctx := context.Background()

	issued, err := svc.ClaimReaderOfPrev(ctx, 5, 42, 420)
	require.NoError(t, err)
	assert.Equal(t, 2, issued, "выдаётся num_of_ticket_per_person записей")
	require.Len(t, gifts.specs, 2)
	assert.Equal(t, int64(42), gifts.specs[0].UserID)
	require.NotNil(t, gifts.specs[0].PromotionType)
	assert.Equal(t, TypeReaderOfPrev, *gifts.specs[0].PromotionType)

	// Повторная заявка на той же неделе упирается в квоту
	_, err = svc.ClaimReaderOfPrev(ctx, 5, 42, 420)
	assert.ErrorIs(t, err, common.ErrWeeklyQuotaExceeded)

	// Другой пользователь квоту не делит
	issued, err = svc.ClaimReaderOfPrev(ctx, 5, 43, 430)
	require.NoError(t, err)
	assert.Equal(t, 2, issued)
}

func TestClaimReaderOfPrev_CompensatesOnTotalFailure(t *testing.T) {
	store := newFakeStore()
	store.direct[5] = &DirectPromotion{
		ID: 5, ProductID: 9, Type: TypeReaderOfPrev,
		Status: DirectIng, NumPerPerson: 2,
	}
	gifts := &fakeGifts{failFrom: 1}
	svc := newTestService(store, gifts, &fakeCatalog{})
	ctx := context.Background()

	issued, err := svc.ClaimReaderOfPrev(ctx, 5, 42, 420)
	require.Error(t, err)
	assert.Equal(t, 0, issued)
	assert.Len(t, store.deleted, 1, "нулевая выдача возвращает недельную попытку")

	// После отката та же неделя снова доступна
	gifts.failFrom = 0
	issued, err = svc.ClaimReaderOfPrev(ctx, 5, 42, 420)
	require.NoError(t, err)
	assert.Equal(t, 2, issued)
}

func TestClaimReaderOfPrev_RejectsWrongPromotion(t *testing.T) {
	store := newFakeStore()
	store.direct[6] = &DirectPromotion{ID: 6, ProductID: 9, Type: TypeFreeForFirst, Status: DirectIng, NumPerPerson: 1}
	store.direct[7] = &DirectPromotion{ID: 7, ProductID: 9, Type: TypeReaderOfPrev, Status: DirectStop, NumPerPerson: 1}
	svc := newTestService(store, &fakeGifts{}, &fakeCatalog{})
	ctx := context.Background()

	_, err := svc.ClaimReaderOfPrev(ctx, 6, 42, 420)
	assert.ErrorIs(t, err, common.ErrPromotionNotFound)

	_, err = svc.ClaimReaderOfPrev(ctx, 7, 42, 420)
	assert.ErrorIs(t, err, common.ErrPromotionNotActive)
}

func TestAutoIssueOnFirstRead(t *testing.T) {
	store := newFakeStore()
	store.direct[3] = &DirectPromotion{ID: 3, ProductID: 9, Type: TypeFreeForFirst, Status: DirectIng, NumPerPerson: 1}
	gifts := &fakeGifts{}
	cat := &fakeCatalog{firstVisit: true}
	svc := newTestService(store, gifts, cat)
	product := &catalog.Product{ID: 9, Title: "Роман", AuthorID: 77}

	issued, err := svc.AutoIssueOnFirstRead(context.Background(), 42, product)
	require.NoError(t, err)
	assert.True(t, issued)
	assert.Equal(t, 1, gifts.received, "билет выдаётся и сразу получается")

	// Повторное чтение уже не первое
	cat.firstVisit = false
	issued, err = svc.AutoIssueOnFirstRead(context.Background(), 42, product)
	require.NoError(t, err)
	assert.False(t, issued)

	// Остановленная акция молчит
	cat.firstVisit = true
	store.direct[3].Status = DirectStop
	issued, err = svc.AutoIssueOnFirstRead(context.Background(), 42, product)
	require.NoError(t, err)
	assert.False(t, issued)
}
