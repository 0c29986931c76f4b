// Package payment — ordernumber.go генерирует номера заказов.
package payment

import (
	"math/rand"
	"strings"
	"time"
)

const base36Upper = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// OrderNumber строит номер заказа: "OC" + "C" + yymmdd + 6 случайных
// символов base36 в верхнем регистре. Уникальность гарантирует
// ограничение БД; коллизия разрешается повторной генерацией.
func OrderNumber(now time.Time, rnd *rand.Rand) string {
	var sb strings.Builder
	sb.WriteString("OC")
	sb.WriteString("C")
	sb.WriteString(now.Format("060102"))
	for i := 0; i < 6; i++ {
		sb.WriteByte(base36Upper[rnd.Intn(len(base36Upper))])
	}
	return sb.String()
}
