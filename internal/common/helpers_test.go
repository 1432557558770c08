package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPluralizeCoins(t *testing.T) {
	testCases := []struct {
		n        int64
		expected string
	}{
		{0, "монет"},
		{1, "монета"},
		{2, "монеты"},
		{4, "монеты"},
		{5, "монет"},
		{11, "монет"},
		{12, "монет"},
		{14, "монет"},
		{21, "монета"},
		{22, "монеты"},
		{25, "монет"},
		{100, "монет"},
		{101, "монета"},
		{111, "монет"},
		{-3, "монеты"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, PluralizeCoins(tc.n), "n=%d", tc.n)
	}
}

func TestFormatCoins(t *testing.T) {
	assert.Equal(t, "150 монет", FormatCoins(150))
	assert.Equal(t, "1 монета", FormatCoins(1))
	assert.Equal(t, "22 монеты", FormatCoins(22))
}

func TestPluralizeDays(t *testing.T) {
	assert.Equal(t, "день", PluralizeDays(1))
	assert.Equal(t, "дня", PluralizeDays(3))
	assert.Equal(t, "дней", PluralizeDays(7))
	assert.Equal(t, "дней", PluralizeDays(11))
	assert.Equal(t, "день", PluralizeDays(21))
}

func TestPluralizeItems(t *testing.T) {
	assert.Equal(t, "товар", PluralizeItems(1))
	assert.Equal(t, "товара", PluralizeItems(2))
	assert.Equal(t, "товаров", PluralizeItems(5))
	assert.Equal(t, "товаров", PluralizeItems(12))
}

func TestFormatDateTime(t *testing.T) {
	// 12:00 UTC = 15:00 по Москве
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "10.03.2025 15:00", FormatDateTime(ts))
}
