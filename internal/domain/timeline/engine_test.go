package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinsight/wardwatch/internal/domain/carelevel"
	"github.com/clinsight/wardwatch/internal/domain/records"
)

var testCodes = records.NewCodeConfig(records.CodeLists{
	VentilationCodes: []string{"40617009", "57485005"},
	EcmoCodes:        []string{"182744004"},
})

func day(d int) time.Time {
	return time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func dayPtr(d int) *time.Time {
	t := day(d)
	return &t
}

func newEngine() *Engine {
	return NewEngine(testCodes, zerolog.Nop())
}

func stay(id, patientID string, class records.Class, start int, end *time.Time, locs ...records.LocationAssignment) *records.Encounter {
	return &records.Encounter{
		ID:        id,
		CaseID:    id,
		PatientID: patientID,
		Class:     class,
		Period:    records.Period{Start: day(start), End: end},
		Locations: locs,
	}
}

var icuLocations = []*records.Location{
	{ID: "icu-ward", PhysicalType: records.PhysicalTypeWard, CareType: records.CareTypeICU},
	{ID: "normal-ward", PhysicalType: records.PhysicalTypeWard, CareType: "general"},
}

func reconstruct(t *testing.T, in Input) *DayBucket {
	t.Helper()
	bucket, err := newEngine().ReconstructTimeline(context.Background(), in)
	if err != nil {
		t.Fatalf("ReconstructTimeline: %v", err)
	}
	return bucket
}

func has(b *DayBucket, lvl carelevel.Level, d int, caseID string) bool {
	for _, id := range b.CaseIDs(lvl, ToEpochDay(day(d))) {
		if id == caseID {
			return true
		}
	}
	return false
}

func TestOutpatientThenInpatientCourse(t *testing.T) {
	// One patient: a positive outpatient contact, then an inpatient stay
	// five days later with an ICU ward episode on days 5 to 7.
	out := stay("e-out", "p1", records.ClassOutpatient, 0, dayPtr(0))
	in := stay("e-in", "p1", records.ClassInpatient, 5, dayPtr(10),
		records.LocationAssignment{LocationID: "icu-ward", Period: records.Period{Start: day(5), End: dayPtr(7)}})

	bucket := reconstruct(t, Input{
		Stays:     []*records.Encounter{out, in},
		Locations: icuLocations,
		Start:     day(0),
		Now:       day(10),
	})

	if len(bucket.Days()) != 11 {
		t.Fatalf("axis has %d days, want 11", len(bucket.Days()))
	}
	if !has(bucket, carelevel.Outpatient, 0, "e-out") {
		t.Error("outpatient contact must be counted on its start day")
	}
	if has(bucket, carelevel.Outpatient, 1, "e-out") {
		t.Error("outpatient contact must not be counted past its start day")
	}
	for d := 5; d <= 7; d++ {
		if !has(bucket, carelevel.ICU, d, "e-in") {
			t.Errorf("day %d: inpatient stay must be on ICU while the ward assignment runs", d)
		}
	}
	for d := 8; d <= 10; d++ {
		if !has(bucket, carelevel.ICU, d, "e-in") {
			t.Errorf("day %d: once ICU was reached the stay must not drop below it", d)
		}
		if has(bucket, carelevel.NormalWard, d, "e-in") {
			t.Errorf("day %d: stay attributed to normal ward despite earlier ICU", d)
		}
	}
	for d := 1; d <= 4; d++ {
		if has(bucket, carelevel.ICU, d, "e-in") || has(bucket, carelevel.NormalWard, d, "e-in") {
			t.Errorf("day %d: stay counted before its admission", d)
		}
	}
}

func TestEcmoOutranksVentilation(t *testing.T) {
	s := stay("e1", "p1", records.ClassInpatient, 0, dayPtr(10))
	procedures := []*records.Procedure{
		{ID: "pr-vent", CaseID: "e1", CategoryCode: "40617009", Performed: records.Period{Start: day(2), End: dayPtr(8)}},
		{ID: "pr-ecmo", CaseID: "e1", CategoryCode: "182744004", Performed: records.Period{Start: day(4), End: dayPtr(6)}},
	}

	bucket := reconstruct(t, Input{
		Stays:      []*records.Encounter{s},
		Locations:  icuLocations,
		Procedures: procedures,
		Start:      day(0),
		Now:        day(10),
	})

	if !has(bucket, carelevel.NormalWard, 0, "e1") {
		t.Error("day 0: no evidence yet, stay belongs to normal ward")
	}
	if !has(bucket, carelevel.ICUVentilation, 2, "e1") {
		t.Error("day 2: ventilation procedure must lift the stay to icu_with_ventilation")
	}
	if !has(bucket, carelevel.ICUECMO, 4, "e1") {
		t.Error("day 4: ECMO must outrank the still-running ventilation")
	}
	for d := 5; d <= 10; d++ {
		if !has(bucket, carelevel.ICUECMO, d, "e1") {
			t.Errorf("day %d: ECMO is the ceiling, later days must stay there", d)
		}
	}
}

func TestOneLevelPerCasePerDay(t *testing.T) {
	s := stay("e1", "p1", records.ClassInpatient, 0, dayPtr(9),
		records.LocationAssignment{LocationID: "icu-ward", Period: records.Period{Start: day(1), End: dayPtr(3)}})
	procedures := []*records.Procedure{
		{ID: "pr1", CaseID: "e1", CategoryCode: "57485005", Performed: records.Period{Start: day(2), End: dayPtr(5)}},
	}
	in := Input{
		Stays:      []*records.Encounter{s},
		Locations:  icuLocations,
		Procedures: procedures,
		Start:      day(0),
		Now:        day(9),
	}

	bucket := reconstruct(t, in)
	for _, d := range bucket.Days() {
		total := 0
		for _, lvl := range carelevel.Ranked() {
			total += bucket.Count(lvl, d)
		}
		if total > 1 {
			t.Errorf("day %s: case attributed to %d levels, want at most 1", d.Time().Format("2006-01-02"), total)
		}
	}
}

func TestReconstructTimelineIsIdempotent(t *testing.T) {
	in := Input{
		Stays: []*records.Encounter{
			stay("e1", "p1", records.ClassInpatient, 0, dayPtr(8),
				records.LocationAssignment{LocationID: "icu-ward", Period: records.Period{Start: day(2), End: dayPtr(4)}}),
			stay("e2", "p2", records.ClassOutpatient, 3, dayPtr(3)),
		},
		Locations: icuLocations,
		Start:     day(0),
		Now:       day(8),
	}

	first := reconstruct(t, in)
	second := reconstruct(t, in)
	for _, lvl := range carelevel.Ranked() {
		a, b := first.Counts(lvl), second.Counts(lvl)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("level %s day index %d: run 1 counted %d, run 2 counted %d", lvl, i, a[i], b[i])
			}
		}
	}
}

func TestOutpatientSuppressedAfterAdmission(t *testing.T) {
	in := stay("e-in", "p1", records.ClassInpatient, 0, dayPtr(10))
	out := stay("e-out", "p1", records.ClassOutpatient, 5, dayPtr(5))

	bucket := reconstruct(t, Input{
		Stays:     []*records.Encounter{in, out},
		Locations: icuLocations,
		Start:     day(0),
		Now:       day(10),
	})

	if has(bucket, carelevel.Outpatient, 5, "e-out") {
		t.Fatal("outpatient contact must not be counted once the patient reached a ward")
	}
}

func TestProcedureGraceWindow(t *testing.T) {
	e := newEngine()
	now := day(20)
	procs := []*records.Procedure{
		{ID: "pr1", CaseID: "e1", CategoryCode: "182744004", Performed: records.Period{Start: day(2), End: dayPtr(4)}},
	}

	if !e.hasActiveProcedure(procs, testCodes.EcmoCodes, day(3), now) {
		t.Error("procedure must be active on a covered day")
	}
	if !e.hasActiveProcedure(procs, testCodes.EcmoCodes, day(5), now) {
		t.Error("procedure ending the previous day still counts")
	}
	if e.hasActiveProcedure(procs, testCodes.EcmoCodes, day(6), now) {
		t.Error("the grace window is a single day")
	}
	if e.hasActiveProcedure(procs, testCodes.EcmoCodes, day(1), now) {
		t.Error("the grace window never extends backwards")
	}
}

func TestReconstructTimelineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine().ReconstructTimeline(ctx, Input{
		Stays: []*records.Encounter{stay("e1", "p1", records.ClassInpatient, 0, nil)},
		Start: day(0),
		Now:   day(100),
	})
	if err == nil {
		t.Fatal("cancelled context must abort the walk")
	}
}

func TestReconstructTimelineRejectsInvertedRange(t *testing.T) {
	if _, err := newEngine().ReconstructTimeline(context.Background(), Input{Start: day(5), Now: day(1)}); err == nil {
		t.Fatal("now before start must be rejected")
	}
}

func TestEpochDayRoundTrip(t *testing.T) {
	at := time.Date(2020, 1, 27, 15, 4, 5, 0, time.UTC)
	d := ToEpochDay(at)
	if got := d.Time(); got != time.Date(2020, 1, 27, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("ToEpochDay(...).Time() = %v, want midnight of the same day", got)
	}
	if ToEpochDay(d.Time()) != d {
		t.Fatal("EpochDay must survive a round trip through Time")
	}
}
