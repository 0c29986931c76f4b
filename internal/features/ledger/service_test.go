package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// fakeStore — леджер в памяти с проверкой баланса.
type fakeStore struct {
	balances map[int64]int64
	lastRow  *SalesRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: map[int64]int64{}}
}

func (f *fakeStore) Balance(_ context.Context, userID int64) (int64, error) {
	return f.balances[userID], nil
}

func (f *fakeStore) Credit(_ context.Context, userID, amount int64, _, _ string) error {
	f.balances[userID] += amount
	return nil
}

func (f *fakeStore) Debit(_ context.Context, userID, amount int64, _, _ string) error {
	if f.balances[userID] < amount {
		return common.ErrInsufficientBalance
	}
	f.balances[userID] -= amount
	return nil
}

func (f *fakeStore) Sponsor(_ context.Context, fromUserID int64, amount int64, _ string, row *SalesRow) error {
	if f.balances[fromUserID] < amount {
		return common.ErrInsufficientBalance
	}
	f.balances[fromUserID] -= amount
	f.lastRow = row
	return nil
}

func (f *fakeStore) ListTransactions(_ context.Context, _ int64, limit int) ([]*CashTransaction, error) {
	out := make([]*CashTransaction, limit)
	for i := range out {
		out[i] = &CashTransaction{}
	}
	return out, nil
}

func testProduct() ProductInfo {
	return ProductInfo{ProductID: 9, AuthorID: 77, Title: "Роман"}
}

func TestCredit_RejectsNonPositive(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Credit(ctx, 42, 0, "bonus", ""), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Credit(ctx, 42, -100, "bonus", ""), common.ErrInvalidAmount)
	assert.NoError(t, svc.Credit(ctx, 42, 100, "bonus", ""))
}

func TestSponsor(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 5000
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, svc.Sponsor(ctx, 42, 3000, SponsorProduct, testProduct(), "web"))
	assert.Equal(t, int64(2000), store.balances[42])

	require.NotNil(t, store.lastRow)
	assert.Equal(t, ItemSponsorship, store.lastRow.ItemType)
	assert.Equal(t, int64(3000), store.lastRow.ItemPrice)
	assert.Equal(t, int64(77), store.lastRow.AuthorID)
}

func TestSponsor_Validation(t *testing.T) {
	store := newFakeStore()
	store.balances[77] = 5000
	svc := NewService(store)
	ctx := context.Background()

	// Автор не может спонсировать самого себя
	err := svc.Sponsor(ctx, 77, 1000, SponsorAuthor, testProduct(), "web")
	assert.ErrorIs(t, err, common.ErrSelfTransfer)

	err = svc.Sponsor(ctx, 42, 0, SponsorAuthor, testProduct(), "web")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	err = svc.Sponsor(ctx, 42, 1000, "patron", testProduct(), "web")
	assert.Error(t, err, "неизвестный тип спонсорства отклоняется")
}

func TestSponsor_InsufficientBalance(t *testing.T) {
	store := newFakeStore()
	store.balances[42] = 100
	svc := NewService(store)

	err := svc.Sponsor(context.Background(), 42, 1000, SponsorProduct, testProduct(), "web")
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	assert.Equal(t, int64(100), store.balances[42], "баланс не меняется при отказе")
}

func TestHistory_LimitClamped(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	txs, err := svc.History(ctx, 42, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 20, "нулевой лимит заменяется умолчанием")

	txs, err = svc.History(ctx, 42, 500)
	require.NoError(t, err)
	assert.Len(t, txs, 20, "слишком большой лимит заменяется умолчанием")

	txs, err = svc.History(ctx, 42, 5)
	require.NoError(t, err)
	assert.Len(t, txs, 5)
}
