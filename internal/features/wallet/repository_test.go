package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/ledger"
)

func TestSalesRowFor(t *testing.T) {
	template := &ledger.SalesRow{
		ItemType:   ledger.ItemPaid,
		PayType:    ledger.PayTicket,
		DeviceType: "web",
	}

	// Paid-билет оставляет строку со своим ticket_kind
	paid := &TicketInstrument{TicketType: TicketPaid}
	row := salesRowFor(paid, template)
	require.NotNil(t, row)
	assert.Equal(t, TicketPaid, row.TicketKind)
	assert.Equal(t, ledger.PayTicket, row.PayType)

	// Comped-билет не оставляет следа в выручке
	comped := &TicketInstrument{TicketType: TicketComped}
	assert.Nil(t, salesRowFor(comped, template))

	// Заготовка не меняется при построении строки
	assert.Empty(t, template.TicketKind)

	assert.Nil(t, salesRowFor(paid, nil))
}
