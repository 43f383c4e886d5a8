// Package carelevel ranks encounters on the treatment-severity scale and
// partitions positive inpatient stays into the ICU care levels.
package carelevel

// Level is the ranked care-level classification. Ordering is meaningful:
// a higher value is strictly more severe and, once reached by a patient,
// is never walked back by the timeline logic.
type Level int

const (
	None Level = iota
	Outpatient
	NormalWard
	ICU
	ICUVentilation
	ICUECMO
)

var levelLabels = map[Level]string{
	None:           "none",
	Outpatient:     "outpatient",
	NormalWard:     "normal_ward",
	ICU:            "icu",
	ICUVentilation: "icu_with_ventilation",
	ICUECMO:        "icu_with_ecmo",
}

func (l Level) String() string {
	if s, ok := levelLabels[l]; ok {
		return s
	}
	return "unknown"
}

// Ranked lists all levels a timeline reports on, in ascending severity.
func Ranked() []Level {
	return []Level{Outpatient, NormalWard, ICU, ICUVentilation, ICUECMO}
}

// Max returns the higher of two levels.
func Max(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}
