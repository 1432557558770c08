package middleware

import (
	"sync"
	"time"

	"discord-bot/internal/common"
)

// DailyCounter — явный объект для дневных счётчиков использования
// (переводы в день и т.п.), вместо глобальных переменных уровня пакета.
// Создаётся один раз при старте и передаётся обработчикам.
//
// Семантика сброса: счётчики обнуляются при первом обращении после
// полуночи по Москве. Счётчики живут в памяти процесса: после рестарта
// лимиты дня начинаются заново — это осознанное упрощение, лимит
// защищает от спама, а не от обхода.
type DailyCounter struct {
	mu     sync.Mutex
	day    time.Time
	counts map[string]int
	limit  int
}

// NewDailyCounter создаёт счётчик с дневным лимитом на пользователя.
func NewDailyCounter(limit int) *DailyCounter {
	return &DailyCounter{
		day:    common.GetMoscowDate(),
		counts: make(map[string]int),
		limit:  limit,
	}
}

// Allow инкрементирует счётчик пользователя и сообщает, не превышен ли
// дневной лимит. При смене даты все счётчики обнуляются.
func (dc *DailyCounter) Allow(userID string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	today := common.GetMoscowDate()
	if !today.Equal(dc.day) {
		// Полночь по Москве прошла — новый день, новые лимиты
		dc.day = today
		dc.counts = make(map[string]int)
	}

	if dc.counts[userID] >= dc.limit {
		return false
	}
	dc.counts[userID]++
	return true
}

// Remaining возвращает, сколько использований осталось сегодня.
func (dc *DailyCounter) Remaining(userID string) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if !common.GetMoscowDate().Equal(dc.day) {
		return dc.limit
	}
	left := dc.limit - dc.counts[userID]
	if left < 0 {
		return 0
	}
	return left
}
