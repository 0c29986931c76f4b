package storage

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignedURL(t *testing.T) {
	p := New("https://cdn.likenovel.example", "covers", "секрет", time.Hour)
	fixed := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return fixed })

	raw := p.URL("product-9.jpg")
	assert.True(t, strings.HasPrefix(raw, "https://cdn.likenovel.example/covers/product-9.jpg?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour).Unix(), expires)

	assert.True(t, p.Verify("product-9.jpg", expires, u.Query().Get("signature")))
}

func TestVerify_Rejects(t *testing.T) {
	p := New("https://cdn.likenovel.example", "covers", "секрет", time.Hour)
	fixed := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return fixed })

	expires := fixed.Add(time.Hour).Unix()
	sig := p.sign("product-9.jpg", expires)

	// Подпись другого ключа не подходит
	assert.False(t, p.Verify("product-10.jpg", expires, sig))

	// Сдвиг срока ломает подпись
	assert.False(t, p.Verify("product-9.jpg", expires+1, sig))

	// Истёкшая ссылка не проходит даже с верной подписью
	p.SetClock(func() time.Time { return fixed.Add(2 * time.Hour) })
	assert.False(t, p.Verify("product-9.jpg", expires, sig))

	// Другой секрет даёт другую подпись
	other := New("https://cdn.likenovel.example", "covers", "иной", time.Hour)
	other.SetClock(func() time.Time { return fixed })
	assert.False(t, other.Verify("product-9.jpg", expires, sig))
}
