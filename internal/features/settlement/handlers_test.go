package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCoverLinker struct {
	keys []string
}

func (f *fakeCoverLinker) URL(key string) string {
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key + "?signature=abc"
}

func TestWithCover_SignsProductCover(t *testing.T) {
	covers := &fakeCoverLinker{}
	h := NewHandler(nil, covers)

	view := &MonthlyView{MonthlySales: MonthlySales{ProductID: 7, Month: "2026-08"}}
	resp := h.withCover(view)

	require.Equal(t, []string{"covers/7.jpg"}, covers.keys)
	assert.Equal(t, "https://cdn.example.com/covers/7.jpg?signature=abc", resp.CoverURL)
	assert.Equal(t, int64(7), resp.ProductID)
}

func TestWithCover_NoLinker(t *testing.T) {
	h := NewHandler(nil, nil)

	resp := h.withCover(&MonthlyView{MonthlySales: MonthlySales{ProductID: 7}})

	assert.Empty(t, resp.CoverURL)
}
