package domain

// Madhab selects the school of jurisprudence whose obligations apply.
type Madhab string

const (
	Hanafi Madhab = "hanafi"
	Shafii Madhab = "shafii"
)

// Valid reports whether m is a supported madhab.
func (m Madhab) Valid() bool {
	return m == Hanafi || m == Shafii
}

// Obligatory reports whether p is owed under m. This is the only place the
// obligation set is decided; the calculator and the progress ledger both
// consult it.
func (m Madhab) Obligatory(p PrayerType) bool {
	if p == Witr {
		return m == Hanafi
	}
	return p.Known()
}

// ObligatoryPrayers lists the PrayerSet keys owed under m, in display order.
func (m Madhab) ObligatoryPrayers() []PrayerType {
	out := make([]PrayerType, 0, len(DailyPrayers)+1)
	out = append(out, DailyPrayers...)
	if m.Obligatory(Witr) {
		out = append(out, Witr)
	}
	return out
}
