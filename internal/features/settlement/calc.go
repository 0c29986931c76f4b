package settlement

import "github.com/shopspring/decimal"

// Расчётная математика. Все промежуточные значения — decimal,
// округление half-up до минимальной денежной единицы только на
// финальных полях.

var hundred = decimal.NewFromInt(100)

// DefaultTaxPercent — ставка налога по умолчанию, применяется
// если оператор не выставил налог вручную.
var DefaultTaxPercent = decimal.NewFromFloat(3.3)

// SponsorshipFeePercent — комиссия платформы со спонсорских взносов.
var SponsorshipFeePercent = decimal.NewFromInt(10)

// netChannel считает выплату канала:
// max(0, (gross − fee) × rate / 100), где gross = normal + ticket − refund,
// а комиссия учитывается только при положительном gross.
func netChannel(c *ChannelSales) decimal.Decimal {
	gross := decimal.NewFromInt(c.SumNormal + c.SumTicket - c.SumRefund)
	fee := decimal.Zero
	if gross.IsPositive() {
		fee = decimal.NewFromInt(c.Fee)
	}
	net := gross.Sub(fee).Mul(decimal.NewFromInt(c.SettlementRate)).Div(hundred)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// netComped считает comped-полосу по тем же правилам.
func netComped(m *MonthlySales) decimal.Decimal {
	gross := decimal.NewFromInt(m.SumCompedTicket - m.SumRefundComped)
	fee := decimal.Zero
	if gross.IsPositive() {
		fee = decimal.NewFromInt(m.FeeComped)
	}
	net := gross.Sub(fee).Mul(decimal.NewFromInt(m.RateComped)).Div(hundred)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// roundHalfUp округляет до целой минимальной единицы half-up.
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// Compute пересчитывает производные поля строки расчёта.
func Compute(m *MonthlySales) Computed {
	paid := decimal.Zero
	for _, ch := range Channels {
		paid = paid.Add(netChannel(m.ByChannel(ch)))
	}
	free := netComped(m)
	sum := paid.Add(free)

	var tax decimal.Decimal
	if m.TaxOverride != nil {
		tax = decimal.NewFromInt(*m.TaxOverride)
	} else {
		tax = sum.Mul(DefaultTaxPercent).Div(hundred)
	}

	sumInt := roundHalfUp(sum)
	taxInt := roundHalfUp(tax)
	total := sumInt - taxInt
	if total < 0 {
		total = 0
	}

	return Computed{
		PaidPrice:  roundHalfUp(paid),
		FreePrice:  roundHalfUp(free),
		SumPrice:   sumInt,
		TaxPrice:   taxInt,
		TotalPrice: total,
	}
}

// SponsorshipNet считает чистую спонсорскую выплату:
// gross × (1 − 10%) × (1 − 3.3%), округление half-up.
func SponsorshipNet(gross int64) int64 {
	g := decimal.NewFromInt(gross)
	afterFee := g.Mul(hundred.Sub(SponsorshipFeePercent)).Div(hundred)
	afterTax := afterFee.Mul(hundred.Sub(DefaultTaxPercent)).Div(hundred)
	return roundHalfUp(afterTax)
}
