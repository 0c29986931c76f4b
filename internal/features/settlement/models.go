// Package settlement — помесячный расчёт выплат авторам: агрегация
// sales_summary по каналам, комиссии, налог, спонсорский контур
// и видимость по ролям через контракты.
package settlement

import "time"

// Каналы продаж.
const (
	ChannelWeb       = "web"
	ChannelIOS       = "ios"
	ChannelPlaystore = "playstore"
	ChannelOnestore  = "onestore"
)

// Channels перечисляет платные каналы в порядке вывода.
var Channels = []string{ChannelWeb, ChannelIOS, ChannelPlaystore, ChannelOnestore}

// Статусы спонсорского расчёта по произведению.
const (
	SponsorNotInSettlement = "not_in_settlement"
	SponsorTempSummary     = "temp_summary"
	SponsorCompleted       = "completed"
)

// ChannelSales — сохранённые первичные суммы одного канала.
// Минимальные денежные единицы; производные поля не хранятся.
type ChannelSales struct {
	SumNormal      int64 `db:"sum_normal"` // Покупки за кэш
	SumTicket      int64 `db:"sum_ticket"` // Поступления по платным билетам
	SumRefund      int64 `db:"sum_refund"`
	Fee            int64 `db:"fee"`
	SettlementRate int64 `db:"settlement_rate"` // Доля автора, %
}

// MonthlySales — строка расчёта (product_id, месяц). Хранятся только
// первичные суммы; paid/free/sum/tax/total пересчитываются при чтении.
type MonthlySales struct {
	ID        int64  `db:"id"`
	ProductID int64  `db:"product_id"`
	AuthorID  int64  `db:"author_id"`
	Month     string `db:"month"` // "2006-01"

	Web       ChannelSales
	IOS       ChannelSales
	Playstore ChannelSales
	Onestore  ChannelSales

	// Comped-полоса: бесплатные билеты, принёсшие платформенный доход
	SumCompedTicket int64 `db:"sum_comped_ticket"`
	SumRefundComped int64 `db:"sum_refund_comped"`
	FeeComped       int64 `db:"fee_comped"`
	RateComped      int64 `db:"rate_comped"`

	// TaxOverride — налог, выставленный оператором вместо ставки по умолчанию
	TaxOverride *int64 `db:"tax_override"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ByChannel возвращает первичные суммы канала.
func (m *MonthlySales) ByChannel(channel string) *ChannelSales {
	switch channel {
	case ChannelWeb:
		return &m.Web
	case ChannelIOS:
		return &m.IOS
	case ChannelPlaystore:
		return &m.Playstore
	case ChannelOnestore:
		return &m.Onestore
	}
	return nil
}

// Computed — производные поля расчёта, пересчитанные при чтении.
type Computed struct {
	PaidPrice  int64 `json:"paid_price"`
	FreePrice  int64 `json:"free_price"`
	SumPrice   int64 `json:"sum_price"`
	TaxPrice   int64 `json:"tax_price"`
	TotalPrice int64 `json:"total_price"`
}

// MonthlyView — строка расчёта вместе с производными полями.
type MonthlyView struct {
	MonthlySales
	Computed
}

// IncomeRecord — прочий доход произведения (реклама и т.п.),
// добавляется оператором и входит в расчёт отдельной строкой.
type IncomeRecord struct {
	ID        int64     `db:"id"`
	ProductID int64     `db:"product_id"`
	Month     string    `db:"month"`
	Kind      string    `db:"kind"` // ad | other
	Amount    int64     `db:"amount"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

// SponsorshipSummary — состояние спонсорского расчёта произведения.
type SponsorshipSummary struct {
	ID          int64     `db:"id"`
	ProductID   int64     `db:"product_id"`
	AuthorID    int64     `db:"author_id"`
	GrossAmount int64     `db:"gross_amount"` // Сумма взносов до вычетов
	NetAmount   int64     `db:"net_amount"`   // После комиссии и налога
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ContractOffer — контракт произведения с партнёром (cp).
type ContractOffer struct {
	ID        int64     `db:"id"`
	ProductID int64     `db:"product_id"`
	PartnerID int64     `db:"partner_id"`
	SplitRate int64     `db:"split_rate"` // Контрактная доля правообладателя, %
	CreatedAt time.Time `db:"created_at"`
}
