package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl := NewRateLimiter(3, 100*time.Millisecond)
	defer rl.Close()

	assert.True(t, rl.Allow("user1"))
	assert.True(t, rl.Allow("user1"))
	assert.True(t, rl.Allow("user1"))
	assert.False(t, rl.Allow("user1"))

	// Лимиты раздельные по пользователям
	assert.True(t, rl.Allow("user2"))

	// Окно сдвинулось — лимит освободился
	time.Sleep(120 * time.Millisecond)
	assert.True(t, rl.Allow("user1"))
}

func TestDailyCounter_Limit(t *testing.T) {
	dc := NewDailyCounter(2)

	assert.True(t, dc.Allow("alice"))
	assert.True(t, dc.Allow("alice"))
	assert.False(t, dc.Allow("alice"))
	assert.Equal(t, 0, dc.Remaining("alice"))

	// Чужой лимит не тронут
	assert.True(t, dc.Allow("bob"))
	assert.Equal(t, 1, dc.Remaining("bob"))
}

func TestDailyCounter_ResetsOnNewDay(t *testing.T) {
	dc := NewDailyCounter(1)

	assert.True(t, dc.Allow("alice"))
	assert.False(t, dc.Allow("alice"))

	// Имитируем смену даты
	dc.mu.Lock()
	dc.day = dc.day.AddDate(0, 0, -1)
	dc.mu.Unlock()

	assert.True(t, dc.Allow("alice"))
}
