package debt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/prayer-debt/internal/calendar"
	"github.com/example/prayer-debt/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCalculate_MaleHanafiToday(t *testing.T) {
	t.Parallel()

	now := day(2024, 6, 1)
	calc := NewCalculator(fixedNow(now))

	res, err := calc.Calculate(Input{
		Personal: PersonalInput{
			BirthDate:    day(2000, 1, 1),
			Gender:       domain.Male,
			BulughAge:    15,
			TodayAsStart: boolPtr(true),
		},
		Madhab: domain.Hanafi,
	})
	require.NoError(t, err)

	bulugh := day(2014, 7, 22)
	want := calendar.DaysBetween(bulugh, now)
	assert.Equal(t, bulugh, res.Personal.BulughDate)
	assert.Equal(t, now, res.Personal.PrayerStartDate)
	assert.True(t, res.Personal.TodayAsStart)
	assert.Nil(t, res.Women)

	c := res.Calculation
	assert.Equal(t, want, c.TotalDays)
	assert.Equal(t, 0, c.ExcludedDays)
	assert.Equal(t, want, c.EffectiveDays)
	assert.Equal(t, domain.PrayerSet{Fajr: want, Dhuhr: want, Asr: want, Maghrib: want, Isha: want, Witr: want}, c.MissedPrayers)
	assert.Equal(t, domain.TravelPrayerSet{}, c.TravelPrayers)
	assert.Equal(t, domain.Period{Start: bulugh, End: now}, c.Period)
}

func TestCalculate_MadhabSensitivity(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(fixedNow(day(2024, 6, 1)))
	for _, m := range []domain.Madhab{domain.Hanafi, domain.Shafii} {
		res, err := calc.Calculate(Input{
			Personal: PersonalInput{BirthDate: day(1995, 3, 10), Gender: domain.Male},
			Madhab:   m,
		})
		require.NoError(t, err)
		if m == domain.Shafii {
			assert.Zero(t, res.Calculation.MissedPrayers.Witr)
		} else {
			assert.Equal(t, res.Calculation.EffectiveDays, res.Calculation.MissedPrayers.Witr)
		}
		assert.Equal(t, res.Calculation.EffectiveDays, res.Calculation.MissedPrayers.Fajr)
	}
}

func TestCalculate_DefaultsToHanafi(t *testing.T) {
	t.Parallel()

	res, err := NewCalculator(fixedNow(day(2024, 6, 1))).Calculate(Input{
		Personal: PersonalInput{BirthDate: day(1995, 3, 10), Gender: domain.Male},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Hanafi, res.Madhab)
	assert.Equal(t, domain.DefaultBulughAge, res.Personal.BulughAge)
	assert.Equal(t, res.Calculation.EffectiveDays, res.Calculation.MissedPrayers.Witr)
}

func TestCalculate_FemaleExemptions(t *testing.T) {
	t.Parallel()

	birth := day(1990, 1, 1)
	bulugh, err := calendar.AddBulughAge(birth, 12)
	require.NoError(t, err)
	end := bulugh.AddDate(0, 0, 3653)

	res, err := NewCalculator(nil).Calculate(Input{
		Personal: PersonalInput{
			BirthDate:       birth,
			Gender:          domain.Female,
			BulughAge:       12,
			PrayerStartDate: timePtr(end),
		},
		Women: &WomenInput{ChildbirthCount: intPtr(2)},
		Travel: TravelInput{Periods: []domain.TravelPeriod{
			{Start: day(2005, 5, 1), End: day(2005, 5, 11)},
		}},
		Madhab: domain.Shafii,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Women)
	assert.Equal(t, domain.WomenFacts{HaidDaysPerMonth: 7, ChildbirthCount: 2, NifasDaysPerChildbirth: 40}, *res.Women)
	assert.False(t, res.Personal.TodayAsStart)

	c := res.Calculation
	assert.Equal(t, 3653, c.TotalDays)
	// haid 840 + nifas 80 + travel 10
	assert.Equal(t, 930, c.ExcludedDays)
	assert.Equal(t, 3653-930, c.EffectiveDays)
	assert.Zero(t, c.MissedPrayers.Witr)
	assert.Equal(t, domain.TravelPrayerSet{DhuhrSafar: 10, AsrSafar: 10, IshaSafar: 10}, c.TravelPrayers)
	assert.Equal(t, 10, res.Travel.TotalTravelDays)
}

func TestCalculate_WomenDataIgnoredForMen(t *testing.T) {
	t.Parallel()

	res, err := NewCalculator(fixedNow(day(2024, 6, 1))).Calculate(Input{
		Personal: PersonalInput{BirthDate: day(1995, 3, 10), Gender: domain.Male},
		Women:    &WomenInput{HaidDaysPerMonth: intPtr(10), ChildbirthCount: intPtr(3)},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Women)
	assert.Zero(t, res.Calculation.ExcludedDays)
}

func TestCalculate_EffectiveDaysNeverNegative(t *testing.T) {
	t.Parallel()

	res, err := NewCalculator(fixedNow(day(2024, 6, 1))).Calculate(Input{
		Personal: PersonalInput{BirthDate: day(2000, 1, 1), Gender: domain.Male},
		Travel:   TravelInput{TotalTravelDays: intPtr(100000)},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Calculation.EffectiveDays)
	assert.LessOrEqual(t, res.Calculation.EffectiveDays, res.Calculation.TotalDays)
	assert.Equal(t, domain.PrayerSet{}, res.Calculation.MissedPrayers)
	assert.Equal(t, 100000, res.Calculation.TravelPrayers.AsrSafar)
}

func TestCalculate_Failures(t *testing.T) {
	t.Parallel()

	now := day(2024, 6, 1)
	cases := []struct {
		name string
		in   Input
		want error
	}{
		{
			name: "range exceeded",
			in:   Input{Personal: PersonalInput{BirthDate: day(1920, 1, 1), Gender: domain.Male}},
			want: domain.ErrRangeExceeded,
		},
		{
			name: "start before bulugh",
			in: Input{Personal: PersonalInput{
				BirthDate: day(2000, 1, 1), Gender: domain.Male, PrayerStartDate: timePtr(day(2010, 1, 1)),
			}},
			want: domain.ErrInvalidRange,
		},
		{
			name: "no start and not today",
			in: Input{Personal: PersonalInput{
				BirthDate: day(2000, 1, 1), Gender: domain.Male, TodayAsStart: boolPtr(false),
			}},
			want: domain.ErrInvalidDate,
		},
		{
			name: "missing birth date",
			in:   Input{Personal: PersonalInput{Gender: domain.Male}},
			want: domain.ErrInvalidDate,
		},
		{
			name: "overlapping travel",
			in: Input{
				Personal: PersonalInput{BirthDate: day(1990, 1, 1), Gender: domain.Male},
				Travel: TravelInput{Periods: []domain.TravelPeriod{
					{Start: day(2024, 1, 1), End: day(2024, 1, 10)},
					{Start: day(2024, 1, 5), End: day(2024, 1, 15)},
				}},
			},
			want: domain.ErrOverlap,
		},
		{
			name: "haid above limit",
			in: Input{
				Personal: PersonalInput{BirthDate: day(1990, 1, 1), Gender: domain.Female},
				Women:    &WomenInput{HaidDaysPerMonth: intPtr(16)},
			},
			want: domain.ErrInvalidInput,
		},
		{
			name: "bulugh age out of range",
			in:   Input{Personal: PersonalInput{BirthDate: day(1990, 1, 1), Gender: domain.Male, BulughAge: 20}},
			want: domain.ErrInvalidInput,
		},
		{
			name: "unknown madhab",
			in: Input{
				Personal: PersonalInput{BirthDate: day(1990, 1, 1), Gender: domain.Male},
				Madhab:   domain.Madhab("maliki"),
			},
			want: domain.ErrInvalidInput,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res, err := NewCalculator(fixedNow(now)).Calculate(tc.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, Result{}, res)
		})
	}
}
