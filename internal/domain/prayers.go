package domain

// PrayerType names a counter in a PrayerSet or TravelPrayerSet.
type PrayerType string

const (
	Fajr    PrayerType = "fajr"
	Dhuhr   PrayerType = "dhuhr"
	Asr     PrayerType = "asr"
	Maghrib PrayerType = "maghrib"
	Isha    PrayerType = "isha"
	Witr    PrayerType = "witr"

	DhuhrSafar PrayerType = "dhuhr_safar"
	AsrSafar   PrayerType = "asr_safar"
	IshaSafar  PrayerType = "isha_safar"
)

// DailyPrayers are obligatory under every supported madhab.
var DailyPrayers = []PrayerType{Fajr, Dhuhr, Asr, Maghrib, Isha}

// TravelPrayers are the prayers shortened while travelling.
var TravelPrayers = []PrayerType{DhuhrSafar, AsrSafar, IshaSafar}

// IsTravel reports whether the key addresses a TravelPrayerSet counter.
func (p PrayerType) IsTravel() bool {
	switch p {
	case DhuhrSafar, AsrSafar, IshaSafar:
		return true
	}
	return false
}

// Known reports whether the key names any supported counter.
func (p PrayerType) Known() bool {
	switch p {
	case Fajr, Dhuhr, Asr, Maghrib, Isha, Witr:
		return true
	}
	return p.IsTravel()
}

// PrayerSet holds one non-negative counter per daily prayer plus witr.
type PrayerSet struct {
	Fajr    int `json:"fajr" yaml:"fajr"`
	Dhuhr   int `json:"dhuhr" yaml:"dhuhr"`
	Asr     int `json:"asr" yaml:"asr"`
	Maghrib int `json:"maghrib" yaml:"maghrib"`
	Isha    int `json:"isha" yaml:"isha"`
	Witr    int `json:"witr" yaml:"witr"`
}

// Get returns the counter addressed by p.
func (s PrayerSet) Get(p PrayerType) (int, bool) {
	switch p {
	case Fajr:
		return s.Fajr, true
	case Dhuhr:
		return s.Dhuhr, true
	case Asr:
		return s.Asr, true
	case Maghrib:
		return s.Maghrib, true
	case Isha:
		return s.Isha, true
	case Witr:
		return s.Witr, true
	}
	return 0, false
}

// Set overwrites the counter addressed by p. Unknown keys are ignored.
func (s *PrayerSet) Set(p PrayerType, v int) {
	switch p {
	case Fajr:
		s.Fajr = v
	case Dhuhr:
		s.Dhuhr = v
	case Asr:
		s.Asr = v
	case Maghrib:
		s.Maghrib = v
	case Isha:
		s.Isha = v
	case Witr:
		s.Witr = v
	}
}

// Total sums every counter.
func (s PrayerSet) Total() int {
	return s.Fajr + s.Dhuhr + s.Asr + s.Maghrib + s.Isha + s.Witr
}

// TravelPrayerSet holds the shortened-prayer counters.
type TravelPrayerSet struct {
	DhuhrSafar int `json:"dhuhr_safar" yaml:"dhuhr_safar"`
	AsrSafar   int `json:"asr_safar" yaml:"asr_safar"`
	IshaSafar  int `json:"isha_safar" yaml:"isha_safar"`
}

// Get returns the counter addressed by p.
func (s TravelPrayerSet) Get(p PrayerType) (int, bool) {
	switch p {
	case DhuhrSafar:
		return s.DhuhrSafar, true
	case AsrSafar:
		return s.AsrSafar, true
	case IshaSafar:
		return s.IshaSafar, true
	}
	return 0, false
}

// Set overwrites the counter addressed by p. Unknown keys are ignored.
func (s *TravelPrayerSet) Set(p PrayerType, v int) {
	switch p {
	case DhuhrSafar:
		s.DhuhrSafar = v
	case AsrSafar:
		s.AsrSafar = v
	case IshaSafar:
		s.IshaSafar = v
	}
}

// Total sums every counter.
func (s TravelPrayerSet) Total() int {
	return s.DhuhrSafar + s.AsrSafar + s.IshaSafar
}
