package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByKind(t *testing.T) {
	t.Parallel()

	err := NewError(KindOverlap, "2024-01-05", "travel periods overlap")
	wrapped := fmt.Errorf("calculate: %w", err)

	assert.True(t, errors.Is(wrapped, ErrOverlap))
	assert.False(t, errors.Is(wrapped, ErrInvalidRange))

	var typed *Error
	require.True(t, errors.As(wrapped, &typed))
	assert.Equal(t, "2024-01-05", typed.Value)
	assert.Equal(t, "overlap: travel periods overlap (2024-01-05)", typed.Error())
}

func TestMadhab_Obligatory(t *testing.T) {
	t.Parallel()

	assert.True(t, Hanafi.Obligatory(Witr))
	assert.False(t, Shafii.Obligatory(Witr))
	for _, p := range DailyPrayers {
		assert.True(t, Shafii.Obligatory(p), p)
		assert.True(t, Hanafi.Obligatory(p), p)
	}
	assert.False(t, Hanafi.Obligatory(PrayerType("tahajjud")))

	assert.Equal(t, []PrayerType{Fajr, Dhuhr, Asr, Maghrib, Isha, Witr}, Hanafi.ObligatoryPrayers())
	assert.Equal(t, DailyPrayers, Shafii.ObligatoryPrayers())
}

func TestPrayerSets_GetSet(t *testing.T) {
	t.Parallel()

	var set PrayerSet
	for i, p := range []PrayerType{Fajr, Dhuhr, Asr, Maghrib, Isha, Witr} {
		set.Set(p, i+1)
	}
	v, ok := set.Get(Maghrib)
	require.True(t, ok)
	assert.Equal(t, 4, v)
	assert.Equal(t, 21, set.Total())

	_, ok = set.Get(DhuhrSafar)
	assert.False(t, ok)

	var travel TravelPrayerSet
	travel.Set(AsrSafar, 3)
	missed := MissedCounts{Prayers: set, Travel: travel}
	v, ok = missed.Get(AsrSafar)
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 24, missed.Total())
}

func TestJobStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, JobPending.Terminal())
	assert.True(t, JobDone.Terminal())
	assert.True(t, JobError.Terminal())
	assert.False(t, JobStatus("queued").Valid())
}
