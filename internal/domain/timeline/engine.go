package timeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinsight/wardwatch/internal/domain/carelevel"
	"github.com/clinsight/wardwatch/internal/domain/records"
)

const dayWindow = 24 * time.Hour

// Input is one reconstruction run. Stays must be the merged, positive
// stay records (one per facility contact, location assignments of all
// sub-contacts folded in); duplicates would break the one-level-per-day
// guarantee.
type Input struct {
	Stays      []*records.Encounter
	Locations  []*records.Location
	Procedures []*records.Procedure

	// Start is the first day of the axis, Now the last. Open-ended
	// periods are resolved against Now.
	Start time.Time
	Now   time.Time

	// Workers caps the per-day goroutine fan-out. Zero means NumCPU.
	Workers int
}

// Engine rebuilds the day-by-day care-level occupation of positive
// cases. Within one day stays are processed concurrently; all decisions
// about one patient run under that patient's lock, so the max-level
// ratchet never races.
type Engine struct {
	codes records.CodeConfig
	log   zerolog.Logger
}

func NewEngine(codes records.CodeConfig, logger zerolog.Logger) *Engine {
	return &Engine{codes: codes, log: logger.With().Str("component", "timeline").Logger()}
}

// patientState is the per-patient severity ratchet. Once a level is
// reached it is never walked back on later days.
type patientState struct {
	mu  sync.Mutex
	max carelevel.Level
}

// ReconstructTimeline walks every day from Start to Now in strictly
// ascending order and attributes each positive stay to exactly one care
// level per day.
func (e *Engine) ReconstructTimeline(ctx context.Context, in Input) (*DayBucket, error) {
	if in.Start.IsZero() {
		return nil, fmt.Errorf("reconstruct timeline: start date is not set")
	}
	if in.Now.Before(in.Start) {
		return nil, fmt.Errorf("reconstruct timeline: now %s precedes start %s",
			in.Now.Format(time.RFC3339), in.Start.Format(time.RFC3339))
	}

	workers := in.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	stays := make([]*records.Encounter, 0, len(in.Stays))
	states := make(map[string]*patientState)
	for _, stay := range in.Stays {
		if !stay.Period.HasStart() {
			e.log.Warn().Str("encounter_id", stay.ID).Msg("stay without start date excluded from timeline")
			continue
		}
		stays = append(stays, stay)
		if states[stay.PatientID] == nil {
			states[stay.PatientID] = &patientState{}
		}
	}

	icuWards := records.IcuWardIDs(in.Locations)
	procsByCase := make(map[string][]*records.Procedure)
	for _, proc := range in.Procedures {
		if proc.CaseID == "" {
			continue
		}
		procsByCase[proc.CaseID] = append(procsByCase[proc.CaseID], proc)
	}

	bucket := newDayBucket()
	first := ToEpochDay(in.Start)
	last := ToEpochDay(in.Now)

	var bucketMu sync.Mutex
	sem := make(chan struct{}, workers)

	for d := first; d <= last; d++ {
		// Days are strictly sequential; cancellation is honored between
		// days, never inside one.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reconstruct timeline: %w", err)
		}
		bucket.appendDay(d)
		day := d.Time()

		var wg sync.WaitGroup
		for _, stay := range stays {
			if !overlapsLoosely(stay.Period, day, in.Now) {
				continue
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(stay *records.Encounter) {
				defer wg.Done()
				defer func() { <-sem }()

				st := states[stay.PatientID]
				st.mu.Lock()
				defer st.mu.Unlock()

				lvl, ok := e.classifyDay(stay, st.max, day, in.Now, icuWards, procsByCase[stay.CaseID])
				if !ok {
					return
				}
				st.max = carelevel.Max(st.max, lvl)
				bucketMu.Lock()
				bucket.add(lvl, d, stay.ID)
				bucketMu.Unlock()
			}(stay)
		}
		wg.Wait()
	}

	e.log.Info().
		Int("days", len(bucket.Days())).
		Int("stays", len(stays)).
		Msg("timeline reconstructed")
	return bucket, nil
}

// classifyDay decides the single care level of a stay on one day, given
// the patient's highest level reached so far. Callers hold the patient
// lock.
func (e *Engine) classifyDay(
	stay *records.Encounter,
	prevMax carelevel.Level,
	day, now time.Time,
	icuWards records.CodeSet,
	procs []*records.Procedure,
) (carelevel.Level, bool) {
	if stay.IsOutpatient() {
		// An outpatient contact counts once, on its start day, and only
		// while the patient never exceeded outpatient care.
		if prevMax > carelevel.Outpatient {
			return carelevel.None, false
		}
		if stay.Period.Start.Before(day) || !stay.Period.Start.Before(day.Add(dayWindow)) {
			return carelevel.None, false
		}
		return carelevel.Outpatient, true
	}

	if !stayCoversDay(stay.Period, day, now) {
		return carelevel.None, false
	}

	switch {
	case prevMax >= carelevel.ICUECMO:
		return carelevel.ICUECMO, true
	case prevMax == carelevel.ICUVentilation:
		if e.hasActiveProcedure(procs, e.codes.EcmoCodes, day, now) {
			return carelevel.ICUECMO, true
		}
		return carelevel.ICUVentilation, true
	case prevMax == carelevel.ICU:
		if e.hasActiveProcedure(procs, e.codes.EcmoCodes, day, now) {
			return carelevel.ICUECMO, true
		}
		if e.hasActiveProcedure(procs, e.codes.VentilationCodes, day, now) {
			return carelevel.ICUVentilation, true
		}
		return carelevel.ICU, true
	default:
		if e.hasActiveProcedure(procs, e.codes.EcmoCodes, day, now) {
			return carelevel.ICUECMO, true
		}
		if e.hasActiveProcedure(procs, e.codes.VentilationCodes, day, now) {
			return carelevel.ICUVentilation, true
		}
		if onIcuWard(stay, icuWards, day, now) {
			return carelevel.ICU, true
		}
		return carelevel.NormalWard, true
	}
}

// hasActiveProcedure reports whether any of the stay's procedures in the
// given category set is active on the day. A procedure that ended within
// the single preceding day still counts, bridging midnight gaps in the
// source documentation.
func (e *Engine) hasActiveProcedure(procs []*records.Procedure, categories records.CodeSet, day, now time.Time) bool {
	dayEnd := day.Add(dayWindow)
	for _, proc := range procs {
		if !categories.Contains(proc.CategoryCode) {
			continue
		}
		if !proc.Performed.HasStart() {
			e.log.Debug().Str("procedure_id", proc.ID).Msg("procedure without start date ignored")
			continue
		}
		end := proc.Performed.EndOr(now)
		if proc.Performed.Start.Before(dayEnd) && !end.Before(day.Add(-dayWindow)) {
			return true
		}
	}
	return false
}

// overlapsLoosely is the cheap pre-filter: the stay period widened by one
// day on each side must contain the day. The exact per-day rules run
// afterwards under the patient lock.
func overlapsLoosely(p records.Period, day, now time.Time) bool {
	return !p.Start.Add(-dayWindow).After(day) && !p.EndOr(now).Add(dayWindow).Before(day)
}

func stayCoversDay(p records.Period, day, now time.Time) bool {
	dayEnd := day.Add(dayWindow)
	return p.Start.Before(dayEnd) && !p.EndOr(now).Before(day)
}

func onIcuWard(stay *records.Encounter, icuWards records.CodeSet, day, now time.Time) bool {
	dayEnd := day.Add(dayWindow)
	for _, la := range stay.Locations {
		if !icuWards.Contains(la.LocationID) {
			continue
		}
		if !la.Period.HasStart() {
			continue
		}
		if la.Period.Start.Before(dayEnd) && !la.Period.EndOr(now).Before(day) {
			return true
		}
	}
	return false
}
