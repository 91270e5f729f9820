package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kastov/vpnshop/internal/config"
)

func TestTruncate(t *testing.T) {
	short := "🏷 короткое сообщение"
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("ю", config.MaxTelegramMessageLen+100)
	got := Truncate(long)
	assert.LessOrEqual(t, len([]rune(got)), config.MaxTelegramMessageLen)
	assert.True(t, strings.HasSuffix(got, "... (truncated)"))
}

func TestPaginationRow(t *testing.T) {
	first := PaginationRow(0, 3, "promos")
	assert.Len(t, first, 2, "first page has no back button")
	assert.Equal(t, "1/3", first[0].Text)
	assert.Equal(t, "promos_1", first[1].CallbackData)

	middle := PaginationRow(1, 3, "promos")
	assert.Len(t, middle, 3)
	assert.Equal(t, "promos_0", middle[0].CallbackData)
	assert.Equal(t, "promos_2", middle[2].CallbackData)

	last := PaginationRow(2, 3, "promos")
	assert.Len(t, last, 2, "last page has no forward button")
}
