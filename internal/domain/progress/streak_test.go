package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestComputeStreak_EmptyHistory(t *testing.T) {
	result := ComputeStreak(nil, day(0))

	assert.Equal(t, 0, result.Current)
	assert.Equal(t, 0, result.Longest)
	assert.Equal(t, 0, result.TotalCompleted)
	assert.Nil(t, result.LastCompletedAt)
}

func TestComputeStreak_SingleCompletion(t *testing.T) {
	result := ComputeStreak([]time.Time{day(0)}, day(2))

	assert.Equal(t, 1, result.Current)
	assert.Equal(t, 1, result.Longest)
	assert.Equal(t, 1, result.TotalCompleted)
	require.NotNil(t, result.LastCompletedAt)
	assert.Equal(t, day(0), *result.LastCompletedAt)
}

func TestComputeStreak_WeeklyCadenceContinues(t *testing.T) {
	// Completions exactly seven days apart: the gap boundary is inclusive.
	completions := []time.Time{day(0), day(7), day(14)}

	result := ComputeStreak(completions, day(15))

	assert.Equal(t, 3, result.Current)
	assert.Equal(t, 3, result.Longest)
}

func TestComputeStreak_EightDayGapBreaks(t *testing.T) {
	completions := []time.Time{day(0), day(8), day(9)}

	result := ComputeStreak(completions, day(10))

	assert.Equal(t, 2, result.Current)
	assert.Equal(t, 2, result.Longest)
	assert.Equal(t, 3, result.TotalCompleted)
}

func TestComputeStreak_CurrentZeroedWhenStale(t *testing.T) {
	// A long historical run that ended more than seven days before now:
	// Longest survives, Current does not.
	completions := []time.Time{day(0), day(3), day(6), day(9)}

	result := ComputeStreak(completions, day(20))

	assert.Equal(t, 0, result.Current)
	assert.Equal(t, 4, result.Longest)
	require.NotNil(t, result.LastCompletedAt)
	assert.Equal(t, day(9), *result.LastCompletedAt)
}

func TestComputeStreak_LongestBeforeBreak(t *testing.T) {
	// Four-long run, a break, then a two-long run still warm.
	completions := []time.Time{day(0), day(2), day(4), day(6), day(30), day(33)}

	result := ComputeStreak(completions, day(35))

	assert.Equal(t, 2, result.Current)
	assert.Equal(t, 4, result.Longest)
}

func TestComputeStreak_UnsortedInput(t *testing.T) {
	completions := []time.Time{day(14), day(0), day(7)}

	result := ComputeStreak(completions, day(15))

	assert.Equal(t, 3, result.Current)
	assert.Equal(t, 3, result.Longest)
	require.NotNil(t, result.LastCompletedAt)
	assert.Equal(t, day(14), *result.LastCompletedAt)

	// The caller's slice stays untouched.
	assert.Equal(t, day(14), completions[0])
}

func TestComputeStreak_NowExactlySevenDaysAfterLast(t *testing.T) {
	completions := []time.Time{day(0), day(5)}

	result := ComputeStreak(completions, day(5).Add(StreakGap))
	assert.Equal(t, 2, result.Current)

	result = ComputeStreak(completions, day(5).Add(StreakGap+time.Second))
	assert.Equal(t, 0, result.Current)
}
