package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/clients/payguard"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/catalog"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/ledger"
)

// fakeStore — хранилище платежей в памяти.
type fakeStore struct {
	existing      *StorePayment
	existingAfter *StorePayment // Что видит повторный поиск после попытки записи
	orderNo       string
	topUpErr      error
	topUpCalls    int
	lastTopUp     TopUpParams
	collideFirst  int // Сколько первых вызовов CompleteTopUp отдают коллизию

	bulkPurchased int
	bulkOwned     int
	bulkEpisodes  []*catalog.Episode

	refundedTopUp bool
	refundErr     error
}

func (f *fakeStore) FindByPGPaymentID(_ context.Context, _ string) (*StorePayment, error) {
	if f.topUpCalls > 0 && f.existingAfter != nil {
		return f.existingAfter, nil
	}
	return f.existing, nil
}

func (f *fakeStore) GetOrderNo(_ context.Context, _ int64) (string, error) {
	return f.orderNo, nil
}

func (f *fakeStore) CompleteTopUp(_ context.Context, p TopUpParams) error {
	f.topUpCalls++
	if f.topUpCalls <= f.collideFirst {
		return common.ErrOrderNumberCollision
	}
	if f.topUpErr != nil {
		return f.topUpErr
	}
	f.lastTopUp = p
	return nil
}

func (f *fakeStore) PurchaseEpisode(_ context.Context, _, _ int64, _ *catalog.Episode, _ *catalog.Product, _ int64, _ string) error {
	return nil
}

func (f *fakeStore) PurchaseBulk(_ context.Context, _, _ int64, _ *catalog.Product, episodes []*catalog.Episode, _ int64, _ string) (int, int, error) {
	f.bulkEpisodes = episodes
	return f.bulkPurchased, f.bulkOwned, nil
}

func (f *fakeStore) RefundEpisodePurchase(_ context.Context, _, _ int64, _ int64, _ *ledger.SalesRow) error {
	return nil
}

func (f *fakeStore) RefundTopUp(_ context.Context, _ *StorePayment, _ int64) error {
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refundedTopUp = true
	return nil
}

// fakePG — платёжный шлюз.
type fakePG struct {
	payment    *payguard.Payment
	cancelErr  error
	cancelled  []string
}

func (f *fakePG) GetPayment(_ context.Context, _ string) (*payguard.Payment, error) {
	return f.payment, nil
}

func (f *fakePG) CancelPayment(_ context.Context, paymentID, _ string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, paymentID)
	return nil
}

// fakeCatalog — каталог для покупок.
type fakeCatalog struct {
	episode  *catalog.Episode
	product  *catalog.Product
	episodes []*catalog.Episode
}

func (f *fakeCatalog) GetEpisode(_ context.Context, _ int64) (*catalog.Episode, error) {
	return f.episode, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, _ int64) (*catalog.Product, error) {
	return f.product, nil
}

func (f *fakeCatalog) ListEpisodes(_ context.Context, _ int64) ([]*catalog.Episode, error) {
	return f.episodes, nil
}

func paidPG(amount int64) *payguard.Payment {
	return &payguard.Payment{
		ID:            "pay_1",
		Status:        payguard.StatusPaid,
		Amount:        amount,
		Method:        "card",
		TransactionID: "tx_1",
	}
}

func TestCompleteCashOrder_Success(t *testing.T) {
	store := &fakeStore{}
	pg := &fakePG{payment: paidPG(10000)}
	svc := NewService(store, pg, &fakeCatalog{}, 100, 10)

	res, err := svc.CompleteCashOrder(context.Background(), 42, "pay_1")
	require.NoError(t, err)
	assert.False(t, res.AlreadyPaid)
	assert.Equal(t, int64(10000), res.Amount)
	assert.Equal(t, int64(11000), res.CreditedCash, "бонус 10% при пополнении")
	assert.Equal(t, 1, store.topUpCalls)
	assert.Len(t, res.OrderNo, 15)
	assert.Empty(t, pg.cancelled)
}

func TestCompleteCashOrder_NotPaidInGateway(t *testing.T) {
	pg := &fakePG{payment: &payguard.Payment{ID: "pay_1", Status: "Ready", Amount: 10000}}
	svc := NewService(&fakeStore{}, pg, &fakeCatalog{}, 100, 10)

	_, err := svc.CompleteCashOrder(context.Background(), 42, "pay_1")
	assert.ErrorIs(t, err, common.ErrPaymentNotPaid)
}

func TestCompleteCashOrder_Idempotent(t *testing.T) {
	store := &fakeStore{
		existing: &StorePayment{ID: 1, OrderID: 5, PGPaymentID: "pay_1", Amount: 10000, Status: StatusPaid},
		orderNo:  "OCC240807AAAAAA",
	}
	pg := &fakePG{payment: paidPG(10000)}
	svc := NewService(store, pg, &fakeCatalog{}, 100, 10)

	res, err := svc.CompleteCashOrder(context.Background(), 42, "pay_1")
	require.NoError(t, err)
	assert.True(t, res.AlreadyPaid)
	assert.Equal(t, "OCC240807AAAAAA", res.OrderNo)
	assert.Equal(t, int64(11000), res.CreditedCash)
	assert.Zero(t, store.topUpCalls, "повторное подтверждение не создаёт записей")
}

func TestCompleteCashOrder_RetriesOrderNoCollision(t *testing.T) {
	store := &fakeStore{collideFirst: 2}
	pg := &fakePG{payment: paidPG(10000)}
	svc := NewService(store, pg, &fakeCatalog{}, 100, 10)

	res, err := svc.CompleteCashOrder(context.Background(), 42, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, 3, store.topUpCalls, "коллизия разрешается перегенерацией")
	assert.False(t, res.AlreadyPaid)
}

func TestCompleteCashOrder_ConcurrentConfirm(t *testing.T) {
	// Два одновременных подтверждения: проигравший упирается в
	// уникальность pg_payment_id и возвращает итог победителя
	winner := &StorePayment{ID: 1, OrderID: 5, PGPaymentID: "pay_1", Amount: 10000, Status: StatusPaid}
	store := &fakeStore{
		topUpErr:      common.ErrPaymentDuplicate,
		existingAfter: winner,
		orderNo:       "OCC240807BBBBBB",
	}
	pg := &fakePG{payment: paidPG(10000)}
	svc := NewService(store, pg, &fakeCatalog{}, 100, 10)

	res, err := svc.CompleteCashOrder(context.Background(), 42, "pay_1")
	require.NoError(t, err)
	assert.True(t, res.AlreadyPaid)
	assert.Equal(t, "OCC240807BBBBBB", res.OrderNo)
	assert.Equal(t, 1, store.topUpCalls, "дубль платежа не перегенерирует номер заказа")
	assert.Empty(t, pg.cancelled, "чужой проведённый платёж не отменяется в шлюзе")
}

func TestCompleteCashOrder_CompensatesOnDBFailure(t *testing.T) {
	store := &fakeStore{topUpErr: errors.New("deadlock")}
	pg := &fakePG{payment: paidPG(10000)}
	svc := NewService(store, pg, &fakeCatalog{}, 100, 10)

	_, err := svc.CompleteCashOrder(context.Background(), 42, "pay_1")
	assert.ErrorIs(t, err, common.ErrDBTransaction)
	assert.Equal(t, []string{"pay_1"}, pg.cancelled, "платёж отменяется в шлюзе")
}

func TestCompleteCashOrder_CompensationFailure(t *testing.T) {
	store := &fakeStore{topUpErr: errors.New("deadlock")}
	pg := &fakePG{payment: paidPG(10000), cancelErr: errors.New("шлюз лёг")}
	svc := NewService(store, pg, &fakeCatalog{}, 100, 10)

	_, err := svc.CompleteCashOrder(context.Background(), 42, "pay_1")
	assert.ErrorIs(t, err, common.ErrCompensationFailed)
}

func TestPurchaseEpisode_FreeRejected(t *testing.T) {
	cat := &fakeCatalog{
		episode: &catalog.Episode{ID: 1, ProductID: 9, PriceType: catalog.PriceFree},
	}
	svc := NewService(&fakeStore{}, &fakePG{}, cat, 100, 10)

	err := svc.PurchaseEpisode(context.Background(), 42, 420, 1, "web")
	assert.ErrorIs(t, err, common.ErrFreeEpisode)
}

func TestPurchaseAllEpisodes_Counters(t *testing.T) {
	// 10 эпизодов: 1 бесплатный, из платных 1 уже куплен
	episodes := []*catalog.Episode{
		{ID: 1, ProductID: 9, PriceType: catalog.PriceFree},
	}
	for i := int64(2); i <= 10; i++ {
		episodes = append(episodes, &catalog.Episode{ID: i, ProductID: 9, PriceType: catalog.PricePaid})
	}
	store := &fakeStore{bulkPurchased: 8, bulkOwned: 1}
	cat := &fakeCatalog{
		product:  &catalog.Product{ID: 9, AuthorID: 77},
		episodes: episodes,
	}
	svc := NewService(store, &fakePG{}, cat, 100, 10)

	res, err := svc.PurchaseAllEpisodes(context.Background(), 42, 420, 9, "web")
	require.NoError(t, err)
	assert.Equal(t, 8, res.PurchasedCount)
	assert.Equal(t, int64(800), res.TotalCashUsed)
	assert.Equal(t, 1, res.SkippedFreeCount)
	assert.Equal(t, 1, res.SkippedOwnedCount)
	assert.Len(t, store.bulkEpisodes, 9, "бесплатные эпизоды до репозитория не доходят")
}

func TestPurchaseAllEpisodes_NothingToBuy(t *testing.T) {
	// Произведение целиком бесплатное
	cat := &fakeCatalog{
		product:  &catalog.Product{ID: 9, AuthorID: 77},
		episodes: []*catalog.Episode{{ID: 1, ProductID: 9, PriceType: catalog.PriceFree}},
	}
	svc := NewService(&fakeStore{}, &fakePG{}, cat, 100, 10)

	_, err := svc.PurchaseAllEpisodes(context.Background(), 42, 420, 9, "web")
	assert.ErrorIs(t, err, common.ErrFreeEpisode)

	// Все платные эпизоды уже куплены
	cat.episodes = []*catalog.Episode{{ID: 2, ProductID: 9, PriceType: catalog.PricePaid}}
	svc = NewService(&fakeStore{bulkPurchased: 0, bulkOwned: 1}, &fakePG{}, cat, 100, 10)

	_, err = svc.PurchaseAllEpisodes(context.Background(), 42, 420, 9, "web")
	assert.ErrorIs(t, err, common.ErrAlreadyOwned)
}

func TestRefundTopUp(t *testing.T) {
	sp := &StorePayment{ID: 1, OrderID: 5, PGPaymentID: "pay_1", Amount: 10000, Status: StatusPaid}
	store := &fakeStore{existing: sp}
	pg := &fakePG{payment: paidPG(10000)}
	svc := NewService(store, pg, &fakeCatalog{}, 100, 10)

	require.NoError(t, svc.RefundTopUp(context.Background(), "pay_1", "передумал"))
	assert.Equal(t, []string{"pay_1"}, pg.cancelled, "сперва отмена в шлюзе")
	assert.True(t, store.refundedTopUp)
}

func TestRefundTopUp_NotFoundAndWrongStatus(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakePG{}, &fakeCatalog{}, 100, 10)
	err := svc.RefundTopUp(context.Background(), "pay_x", "причина")
	assert.ErrorIs(t, err, common.ErrPaymentNotFound)

	refunded := &StorePayment{ID: 1, Status: StatusRefunded}
	svc = NewService(&fakeStore{existing: refunded}, &fakePG{}, &fakeCatalog{}, 100, 10)
	err = svc.RefundTopUp(context.Background(), "pay_x", "причина")
	assert.ErrorIs(t, err, common.ErrPaymentNotPaid)
}

func TestRefundTopUp_LocalFailureAfterCancel(t *testing.T) {
	sp := &StorePayment{ID: 1, OrderID: 5, PGPaymentID: "pay_1", Amount: 10000, Status: StatusPaid}
	store := &fakeStore{existing: sp, refundErr: errors.New("deadlock")}
	pg := &fakePG{payment: paidPG(10000)}
	svc := NewService(store, pg, &fakeCatalog{}, 100, 10)

	err := svc.RefundTopUp(context.Background(), "pay_1", "причина")
	assert.ErrorIs(t, err, common.ErrCompensationFailed)
	assert.Len(t, pg.cancelled, 1)
}
