package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func int64Ptr(i int64) *int64 { return &i }

func TestBuildSlots(t *testing.T) {
	records := []TaskRecord{
		{ID: 1, Name: "ok", EffortHours: floatPtr(12), PlannedStart: strPtr("2025-03-03"), PlannedEnd: strPtr("2025-03-04")},
		{ID: 2, Name: "no effort", PlannedStart: strPtr("2025-03-03"), PlannedEnd: strPtr("2025-03-04")},
		{ID: 3, Name: "zero effort", EffortHours: floatPtr(0), PlannedStart: strPtr("2025-03-03"), PlannedEnd: strPtr("2025-03-04")},
		{ID: 4, Name: "nan effort", EffortHours: floatPtr(math.NaN()), PlannedStart: strPtr("2025-03-03"), PlannedEnd: strPtr("2025-03-04")},
		{ID: 5, Name: "no start", EffortHours: floatPtr(4), PlannedEnd: strPtr("2025-03-04")},
		{ID: 6, Name: "empty end", EffortHours: floatPtr(4), PlannedStart: strPtr("2025-03-03"), PlannedEnd: strPtr("")},
		{ID: 7, Name: "bad start", EffortHours: floatPtr(4), PlannedStart: strPtr("03/03/2025"), PlannedEnd: strPtr("2025-03-04")},
		{ID: 8, Name: "bad end", EffortHours: floatPtr(4), PlannedStart: strPtr("2025-03-03"), PlannedEnd: strPtr("2025-13-01")},
		{ID: 9, Name: "reversed", EffortHours: floatPtr(2.5), PlannedStart: strPtr("2025-03-05"), PlannedEnd: strPtr("2025-03-04")},
		{ID: 10, Name: "negative", EffortHours: floatPtr(-1), PlannedStart: strPtr("2025-03-03"), PlannedEnd: strPtr("2025-03-04")},
	}

	slots, skipped := BuildSlots(records)

	require.Len(t, slots, 2)
	assert.Equal(t, Slot{TaskID: 1, TaskName: "ok", Effort: 12, WindowStart: day("2025-03-03"), WindowEnd: day("2025-03-04")}, slots[0])
	// reversed windows are kept and reported by the engine
	assert.Equal(t, int64(9), slots[1].TaskID)
	assert.True(t, slots[1].WindowStart.After(slots[1].WindowEnd))

	reasons := make(map[int64]string, len(skipped))
	for _, s := range skipped {
		reasons[s.TaskID] = s.Reason
	}
	assert.Equal(t, map[int64]string{
		2:  SkipMissingEffort,
		3:  SkipNonPositiveEffort,
		4:  SkipMissingEffort,
		5:  SkipMissingStart,
		6:  SkipMissingEnd,
		7:  SkipInvalidStart,
		8:  SkipInvalidEnd,
		10: SkipNonPositiveEffort,
	}, reasons)
}

func TestBuildSlots_Empty(t *testing.T) {
	slots, skipped := BuildSlots(nil)
	assert.Empty(t, slots)
	assert.Nil(t, skipped)
}

func TestBuildSlots_AcceptsTimestamps(t *testing.T) {
	slots, skipped := BuildSlots([]TaskRecord{
		{ID: 1, Name: "ts", EffortHours: floatPtr(3), PlannedStart: strPtr("2025-03-03T09:00:00"), PlannedEnd: strPtr("2025-03-04 18:00:00")},
	})
	require.Empty(t, skipped)
	require.Len(t, slots, 1)
	assert.Equal(t, day("2025-03-03"), slots[0].WindowStart)
	assert.Equal(t, day("2025-03-04"), slots[0].WindowEnd)
}
