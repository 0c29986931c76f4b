package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// fakeStore — хранилище расчётов в памяти.
type fakeStore struct {
	monthly     *MonthlySales
	visible     bool
	builtMonth  string
	builtFrom   time.Time
	builtTo     time.Time
	taxSet      *int64
	sponsorship *SponsorshipSummary
}

func (f *fakeStore) BuildMonth(_ context.Context, month string, from, to time.Time, _, _ int64) (int, error) {
	f.builtMonth = month
	f.builtFrom = from
	f.builtTo = to
	return 3, nil
}

func (f *fakeStore) GetMonthly(_ context.Context, _ int64, _ string) (*MonthlySales, error) {
	if f.monthly == nil {
		return nil, common.ErrSettlementNotFound
	}
	return f.monthly, nil
}

func (f *fakeStore) ListMonthly(_ context.Context, _, _ string, _ int64) ([]*MonthlySales, error) {
	if f.monthly == nil {
		return nil, nil
	}
	return []*MonthlySales{f.monthly}, nil
}

func (f *fakeStore) VisibleToRole(_ context.Context, _ int64, _ string, _ int64) (bool, error) {
	return f.visible, nil
}

func (f *fakeStore) SetTaxOverride(_ context.Context, _ int64, _ string, tax int64) error {
	f.taxSet = &tax
	return nil
}

func (f *fakeStore) AddIncomeRecord(_ context.Context, _ *IncomeRecord) error { return nil }

func (f *fakeStore) ListIncomeRecords(_ context.Context, _ int64, _ string) ([]*IncomeRecord, error) {
	return nil, nil
}

func (f *fakeStore) GetSponsorship(_ context.Context, _ int64) (*SponsorshipSummary, error) {
	return f.sponsorship, nil
}

func (f *fakeStore) BuildSponsorshipTemp(_ context.Context, productID int64) (*SponsorshipSummary, error) {
	f.sponsorship = &SponsorshipSummary{ProductID: productID, Status: SponsorTempSummary}
	return f.sponsorship, nil
}

func (f *fakeStore) CompleteSponsorship(_ context.Context, productID int64) (*SponsorshipSummary, error) {
	f.sponsorship = &SponsorshipSummary{ProductID: productID, Status: SponsorCompleted}
	return f.sponsorship, nil
}

func TestBuildPreviousMonth(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, time.UTC, 70, 70)

	// 1 января собирает декабрь прошлого года
	now := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	n, err := svc.BuildPreviousMonth(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "2025-12", store.builtMonth)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), store.builtFrom)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), store.builtTo)
}

func TestGetMonthly_Visibility(t *testing.T) {
	store := &fakeStore{
		visible: false,
		monthly: &MonthlySales{ProductID: 9, Month: "2026-08"},
	}
	svc := NewService(store, time.UTC, 70, 70)

	_, err := svc.GetMonthly(context.Background(), 9, "2026-08", "author", 42)
	assert.ErrorIs(t, err, common.ErrSettlementForbidden)

	store.visible = true
	v, err := svc.GetMonthly(context.Background(), 9, "2026-08", "author", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.ProductID)
}

func TestGetMonthly_RecomputesDerived(t *testing.T) {
	store := &fakeStore{
		visible: true,
		monthly: &MonthlySales{
			ProductID: 9, Month: "2026-08",
			Web: ChannelSales{SumNormal: 100000, SumTicket: 20000, SumRefund: 5000, Fee: 10000, SettlementRate: 70},
		},
	}
	svc := NewService(store, time.UTC, 70, 70)

	v, err := svc.GetMonthly(context.Background(), 9, "2026-08", "admin", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(73500), v.Computed.SumPrice)
	assert.Equal(t, int64(71074), v.Computed.TotalPrice)
}

func TestAdminOnlyOperations(t *testing.T) {
	store := &fakeStore{visible: true}
	svc := NewService(store, time.UTC, 70, 70)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetTaxOverride(ctx, 9, "2026-08", 500, "author"), common.ErrNotAdmin)
	assert.ErrorIs(t, svc.SetTaxOverride(ctx, 9, "2026-08", -1, "admin"), common.ErrInvalidAmount)
	require.NoError(t, svc.SetTaxOverride(ctx, 9, "2026-08", 500, "admin"))
	require.NotNil(t, store.taxSet)
	assert.Equal(t, int64(500), *store.taxSet)

	rec := &IncomeRecord{ProductID: 9, Month: "2026-08", Kind: "ad", Amount: 1000}
	assert.ErrorIs(t, svc.AddIncomeRecord(ctx, rec, "partner"), common.ErrNotAdmin)
	assert.NoError(t, svc.AddIncomeRecord(ctx, rec, "admin"))

	_, err := svc.BuildSponsorshipTemp(ctx, 9, "author")
	assert.ErrorIs(t, err, common.ErrNotAdmin)
	_, err = svc.CompleteSponsorship(ctx, 9, "author")
	assert.ErrorIs(t, err, common.ErrNotAdmin)
}

func TestSponsorshipLifecycle(t *testing.T) {
	store := &fakeStore{visible: true}
	svc := NewService(store, time.UTC, 70, 70)
	ctx := context.Background()

	// Отсутствующая строка читается как not_in_settlement
	sum, err := svc.GetSponsorship(ctx, 9, "admin", 1)
	require.NoError(t, err)
	assert.Equal(t, SponsorNotInSettlement, sum.Status)

	sum, err = svc.BuildSponsorshipTemp(ctx, 9, "admin")
	require.NoError(t, err)
	assert.Equal(t, SponsorTempSummary, sum.Status)

	sum, err = svc.CompleteSponsorship(ctx, 9, "admin")
	require.NoError(t, err)
	assert.Equal(t, SponsorCompleted, sum.Status)
}
