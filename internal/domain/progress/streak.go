package progress

import (
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK CALCULATOR
// Чистая функция над историей завершений уроков ученика.
// Серия - количество последовательных завершений с разрывом не более семи
// дней между соседними. "Сейчас" передаётся явно, глобальные часы не читаются.
// ══════════════════════════════════════════════════════════════════════════════

// StreakGap - максимальный разрыв между завершениями, не рвущий серию.
const StreakGap = 7 * 24 * time.Hour

// StreakResult - итог вычисления серии.
type StreakResult struct {
	// Current - текущая серия. Ноль, если с последнего завершения
	// прошло больше семи дней: серия считается прерванной,
	// даже если исторически она была длинной.
	Current int `json:"current_streak"`

	// Longest - самая длинная серия за всю историю.
	Longest int `json:"longest_streak"`

	// TotalCompleted - всего завершений.
	TotalCompleted int `json:"total_completed"`

	// LastCompletedAt - момент последнего завершения (nil при пустой истории).
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// ComputeStreak вычисляет серию по моментам завершений.
//
// Завершения сортируются по возрастанию. Первое начинает серию длиной 1;
// каждое следующее продолжает её, если разрыв с предыдущим не больше семи
// дней, иначе серия начинается заново с 1. Longest - максимум по ходу.
// Current равен финальному значению только если разрыв между now и последним
// завершением тоже не больше семи дней.
//
// Граница включительна: разрыв ровно в семь дней серию не рвёт.
func ComputeStreak(completions []time.Time, now time.Time) StreakResult {
	result := StreakResult{TotalCompleted: len(completions)}
	if len(completions) == 0 {
		return result
	}

	sorted := make([]time.Time, len(completions))
	copy(sorted, completions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	running := 1
	longest := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) <= StreakGap {
			running++
		} else {
			running = 1
		}
		if running > longest {
			longest = running
		}
	}

	last := sorted[len(sorted)-1]
	result.Longest = longest
	result.LastCompletedAt = &last

	if now.Sub(last) <= StreakGap {
		result.Current = running
	}

	return result
}
