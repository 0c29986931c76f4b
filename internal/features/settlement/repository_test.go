package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldMonth_ContractRateOverridesDefault(t *testing.T) {
	aggs := []channelAgg{
		{productID: 1, authorID: 10, deviceType: ChannelWeb, sumNormal: 100000, sumTicket: 20000, sumRefund: 5000},
		{productID: 1, authorID: 10, deviceType: ChannelIOS, sumNormal: 30000},
		{productID: 2, authorID: 20, deviceType: ChannelWeb, sumNormal: 50000},
	}
	// У произведения 1 есть контракт со ставкой 80%
	contracts := map[int64]int64{1: 80}

	byProduct := foldMonth(aggs, contracts, "2026-08", 70, 70)
	require.Len(t, byProduct, 2)

	withContract := byProduct[1]
	require.NotNil(t, withContract)
	for _, ch := range Channels {
		assert.Equal(t, int64(80), withContract.ByChannel(ch).SettlementRate,
			"контрактная ставка подставляется на канале %s", ch)
	}
	assert.Equal(t, int64(100000), withContract.Web.SumNormal)
	assert.Equal(t, int64(20000), withContract.Web.SumTicket)
	assert.Equal(t, int64(5000), withContract.Web.SumRefund)
	assert.Equal(t, int64(30000), withContract.IOS.SumNormal)

	// Без контракта остаётся ставка по умолчанию
	noContract := byProduct[2]
	require.NotNil(t, noContract)
	for _, ch := range Channels {
		assert.Equal(t, int64(70), noContract.ByChannel(ch).SettlementRate)
	}
}

func TestFoldMonth_ZeroContractRateIgnored(t *testing.T) {
	aggs := []channelAgg{
		{productID: 1, authorID: 10, deviceType: ChannelWeb, sumNormal: 1000},
	}
	contracts := map[int64]int64{1: 0}

	byProduct := foldMonth(aggs, contracts, "2026-08", 70, 70)

	require.NotNil(t, byProduct[1])
	assert.Equal(t, int64(70), byProduct[1].Web.SettlementRate)
}

func TestFoldMonth_UnknownChannelFoldsIntoWeb(t *testing.T) {
	aggs := []channelAgg{
		{productID: 1, authorID: 10, deviceType: "kindle", sumNormal: 1000, sumComped: 500},
	}

	byProduct := foldMonth(aggs, nil, "2026-08", 70, 65)

	m := byProduct[1]
	require.NotNil(t, m)
	assert.Equal(t, int64(1000), m.Web.SumNormal)
	assert.Equal(t, int64(500), m.SumCompedTicket)
	assert.Equal(t, int64(65), m.RateComped)
}

func TestFoldMonth_ContractRateFeedsCompute(t *testing.T) {
	aggs := []channelAgg{
		{productID: 1, authorID: 10, deviceType: ChannelWeb, sumNormal: 100000, sumTicket: 20000, sumRefund: 5000},
	}
	contracts := map[int64]int64{1: 80}

	m := foldMonth(aggs, contracts, "2026-08", 70, 70)[1]
	require.NotNil(t, m)
	m.Web.Fee = 10000

	c := Compute(m)

	// (100000 + 20000 − 5000 − 10000) × 0.80 = 84000
	assert.Equal(t, int64(84000), c.PaidPrice)
}
