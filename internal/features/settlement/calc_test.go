package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_SingleChannel(t *testing.T) {
	// web: обычные 100000, билетные 20000, возвраты 5000,
	// комиссия 10000, ставка 70%
	m := &MonthlySales{
		Web: ChannelSales{
			SumNormal: 100000, SumTicket: 20000, SumRefund: 5000,
			Fee: 10000, SettlementRate: 70,
		},
	}

	c := Compute(m)

	// (100000 + 20000 − 5000 − 10000) × 0.70 = 73500
	assert.Equal(t, int64(73500), c.PaidPrice)
	assert.Equal(t, int64(0), c.FreePrice)
	assert.Equal(t, int64(73500), c.SumPrice)
	// 73500 × 3.3% = 2425.5 → вверх до 2426
	assert.Equal(t, int64(2426), c.TaxPrice)
	assert.Equal(t, int64(71074), c.TotalPrice)
}

func TestCompute_CompedLane(t *testing.T) {
	m := &MonthlySales{
		SumCompedTicket: 10000,
		SumRefundComped: 1000,
		FeeComped:       0,
		RateComped:      70,
	}

	c := Compute(m)

	// (10000 − 1000) × 0.70 = 6300
	assert.Equal(t, int64(0), c.PaidPrice)
	assert.Equal(t, int64(6300), c.FreePrice)
	assert.Equal(t, int64(6300), c.SumPrice)
}

func TestCompute_MultipleChannels(t *testing.T) {
	m := &MonthlySales{
		Web: ChannelSales{SumNormal: 10000, SettlementRate: 70},
		IOS: ChannelSales{SumNormal: 20000, Fee: 6000, SettlementRate: 70},
	}

	c := Compute(m)

	// web 7000 + ios (20000−6000)×0.70 = 9800
	assert.Equal(t, int64(16800), c.PaidPrice)
}

func TestCompute_NegativeChannelClampsToZero(t *testing.T) {
	// Возвраты превысили продажи: канал не уходит в минус
	m := &MonthlySales{
		Web: ChannelSales{SumNormal: 1000, SumRefund: 5000, Fee: 100, SettlementRate: 70},
	}

	c := Compute(m)

	assert.Equal(t, int64(0), c.PaidPrice)
	assert.Equal(t, int64(0), c.TotalPrice)
}

func TestCompute_FeeOnlyOnPositiveGross(t *testing.T) {
	// Нулевой оборот: комиссия не создаёт отрицательную выплату
	m := &MonthlySales{
		Web: ChannelSales{Fee: 10000, SettlementRate: 70},
	}

	c := Compute(m)

	assert.Equal(t, int64(0), c.PaidPrice)
}

func TestCompute_TaxOverride(t *testing.T) {
	override := int64(500)
	m := &MonthlySales{
		Web:         ChannelSales{SumNormal: 100000, SettlementRate: 70},
		TaxOverride: &override,
	}

	c := Compute(m)

	assert.Equal(t, int64(70000), c.SumPrice)
	assert.Equal(t, int64(500), c.TaxPrice, "ручной налог заменяет расчётный")
	assert.Equal(t, int64(69500), c.TotalPrice)
}

func TestCompute_TaxNeverMakesTotalNegative(t *testing.T) {
	override := int64(999999)
	m := &MonthlySales{
		Web:         ChannelSales{SumNormal: 1000, SettlementRate: 70},
		TaxOverride: &override,
	}

	c := Compute(m)

	assert.Equal(t, int64(0), c.TotalPrice)
}

func TestSponsorshipNet(t *testing.T) {
	// 10000 × 0.90 = 9000; 9000 × 0.967 = 8703
	assert.Equal(t, int64(8703), SponsorshipNet(10000))

	// 1000 × 0.90 = 900; 900 × 0.967 = 870.3 → 870
	assert.Equal(t, int64(870), SponsorshipNet(1000))

	assert.Equal(t, int64(0), SponsorshipNet(0))
}
