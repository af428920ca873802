// Package ledger applies repayment entries to a snapshot's progress.
//
// ApplyEntries never mutates its argument: the batch is applied to a copy
// and either every entry succeeds or the original progress is kept. Callers
// serialize calls per user.
package ledger

import (
	"math"
	"time"

	"github.com/example/prayer-debt/internal/domain"
)

// ApplyEntries nets the entries per counter, adds each net delta to the
// matching completed counter and clamps the result to [0, missed]. Netting
// first means a batch whose deltas cancel leaves the counters untouched, so
// [+150, -50] against a ceiling of 100 lands on 100. Sums saturate instead
// of wrapping. A witr entry under a madhab that does not owe witr fails with
// domain.KindObligation, an unknown key with domain.KindUnknownPrayerType.
// LastUpdated is set to at on success.
func ApplyEntries(progress domain.RepaymentProgress, missed domain.MissedCounts, madhab domain.Madhab, entries []domain.ProgressEntry, at time.Time) (domain.RepaymentProgress, error) {
	net := make(map[domain.PrayerType]int, len(entries))
	order := make([]domain.PrayerType, 0, len(entries))
	for _, e := range entries {
		if !e.Type.Known() {
			return progress, domain.NewError(domain.KindUnknownPrayerType, string(e.Type), "unknown prayer type")
		}
		if !e.Type.IsTravel() && !madhab.Obligatory(e.Type) {
			return progress, domain.NewError(domain.KindObligation, string(e.Type),
				"%s is not obligatory under the %s madhab", e.Type, madhab)
		}
		if _, seen := net[e.Type]; !seen {
			order = append(order, e.Type)
		}
		net[e.Type] = saturatingAdd(net[e.Type], e.Amount)
	}

	next := progress
	for _, p := range order {
		ceiling, _ := missed.Get(p)
		if p.IsTravel() {
			current, _ := next.CompletedTravelPrayers.Get(p)
			next.CompletedTravelPrayers.Set(p, clamp(current, net[p], ceiling))
			continue
		}
		current, _ := next.CompletedPrayers.Get(p)
		next.CompletedPrayers.Set(p, clamp(current, net[p], ceiling))
	}
	next.LastUpdated = at.UTC()
	return next, nil
}

// CheckAmounts rejects an empty batch and any zero amount or amount whose
// magnitude exceeds limit. It runs before ApplyEntries.
func CheckAmounts(entries []domain.ProgressEntry, limit int) error {
	if len(entries) == 0 {
		return domain.NewError(domain.KindOutOfBoundsAmount, 0, "at least one entry is required")
	}
	for _, e := range entries {
		if e.Amount == 0 {
			return domain.NewError(domain.KindOutOfBoundsAmount, e.Amount, "amount for %s must not be zero", e.Type)
		}
		if e.Amount > limit || e.Amount < -limit {
			return domain.NewError(domain.KindOutOfBoundsAmount, e.Amount, "amount for %s must be within ±%d", e.Type, limit)
		}
	}
	return nil
}

// ClampTo bounds every counter of progress by missed. It is used when a
// recalculation carries progress forward onto a smaller debt.
func ClampTo(progress domain.RepaymentProgress, missed domain.MissedCounts) domain.RepaymentProgress {
	out := progress
	for _, p := range []domain.PrayerType{domain.Fajr, domain.Dhuhr, domain.Asr, domain.Maghrib, domain.Isha, domain.Witr} {
		current, _ := out.CompletedPrayers.Get(p)
		ceiling, _ := missed.Get(p)
		out.CompletedPrayers.Set(p, clamp(current, 0, ceiling))
	}
	for _, p := range domain.TravelPrayers {
		current, _ := out.CompletedTravelPrayers.Get(p)
		ceiling, _ := missed.Get(p)
		out.CompletedTravelPrayers.Set(p, clamp(current, 0, ceiling))
	}
	return out
}

func clamp(current, delta, ceiling int) int {
	v := saturatingAdd(current, delta)
	if v > ceiling {
		v = ceiling
	}
	if v < 0 {
		v = 0
	}
	return v
}

func saturatingAdd(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}
