package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinsight/wardwatch/internal/domain/carelevel"
	"github.com/clinsight/wardwatch/internal/domain/positivity"
	"github.com/clinsight/wardwatch/internal/domain/records"
	"github.com/clinsight/wardwatch/internal/domain/timeline"
)

// Service runs the full pipeline: load a record snapshot, classify
// positivity, link the encounter hierarchy, reconstruct the treatment
// timeline and fold everything into the published data items.
type Service struct {
	repo    records.Repository
	lists   records.CodeLists
	kickoff time.Time
	debug   bool

	classifier *positivity.Classifier
	builder    *carelevel.Builder
	engine     *timeline.Engine
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(repo records.Repository, lists records.CodeLists, kickoff time.Time, debug bool, logger zerolog.Logger) *Service {
	codes := records.NewCodeConfig(lists)
	return &Service{
		repo:       repo,
		lists:      lists,
		kickoff:    kickoff,
		debug:      debug,
		classifier: positivity.NewClassifier(codes, logger),
		builder:    carelevel.NewBuilder(codes, logger),
		engine:     timeline.NewEngine(codes, logger),
		log:        logger.With().Str("component", "dashboard").Logger(),
		now:        time.Now,
	}
}

// Generate executes one pipeline run against the current record store
// contents.
func (s *Service) Generate(ctx context.Context) (*Report, error) {
	started := s.now()
	now := started.UTC()

	snap, err := records.LoadSnapshot(ctx, s.repo, s.lists)
	if err != nil {
		return nil, fmt.Errorf("load record snapshot: %w", err)
	}
	s.log.Info().
		Int("encounters", len(snap.Encounters)).
		Int("observations", len(snap.Observations)).
		Int("conditions", len(snap.Conditions)).
		Int("procedures", len(snap.Procedures)).
		Msg("record snapshot loaded")

	result := s.classifier.Classify(snap.Encounters, snap.Observations, snap.Conditions)

	facilityByEnc, err := carelevel.ResolveFacilityContacts(snap.Encounters, s.log)
	if err != nil {
		return nil, fmt.Errorf("resolve facility contacts: %w", err)
	}

	positiveStays := filterPositive(records.MergeStays(snap.Encounters, facilityByEnc), result)
	var inpatientStays []*records.Encounter
	for _, stay := range positiveStays {
		if stay.IsInpatient() {
			inpatientStays = append(inpatientStays, stay)
		}
	}

	bucket, err := s.engine.ReconstructTimeline(ctx, timeline.Input{
		Stays:      positiveStays,
		Locations:  snap.Locations,
		Procedures: snap.Procedures,
		Start:      s.kickoff,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	cumulativeSets := s.builder.BuildCareLevelSets(inpatientStays, snap.Locations, snap.Procedures, now)
	currentSets := s.builder.BuildCurrentCareLevelSets(inpatientStays, snap.Locations, snap.Procedures, now)

	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: now,
		Items: []DataItem{
			s.currentTreatmentLevel(inpatientStays, currentSets, now),
			s.currentMaxTreatmentLevel(inpatientStays, cumulativeSets, now),
			s.cumulativeMaxTreatmentLevel(positiveStays, cumulativeSets),
			s.timelineMaxTreatmentLevel(bucket),
		},
	}
	s.log.Info().
		Str("run_id", report.RunID).
		Int("positive_stays", len(positiveStays)).
		Dur("took", s.now().Sub(started)).
		Msg("dashboard report generated")
	return report, nil
}

func filterPositive(stays []*records.Encounter, result *positivity.Result) []*records.Encounter {
	var out []*records.Encounter
	for _, stay := range stays {
		if result.IsPositive(stay.ID) {
			out = append(out, stay)
		}
	}
	return out
}

// resolveHighest collapses the overlapping care-level sets into one
// level per case, ECMO over ventilation over ICU.
func resolveHighest(sets map[carelevel.Level][]*records.Encounter) map[string]carelevel.Level {
	out := make(map[string]carelevel.Level)
	for _, lvl := range []carelevel.Level{carelevel.ICU, carelevel.ICUVentilation, carelevel.ICUECMO} {
		for _, enc := range sets[lvl] {
			if out[enc.ID] < lvl {
				out[enc.ID] = lvl
			}
		}
	}
	return out
}

// currentTreatmentLevel counts the still-admitted positive inpatients by
// the level they occupy right now.
func (s *Service) currentTreatmentLevel(
	inpatientStays []*records.Encounter,
	currentSets map[carelevel.Level][]*records.Encounter,
	now time.Time,
) DataItem {
	levels := resolveHighest(currentSets)
	item := newValueItem(ItemCurrentTreatmentLevel, s.debug)
	for _, stay := range inpatientStays {
		if !stay.Period.IsOpen() || !stay.Period.Covers(now, now) {
			continue
		}
		lvl, ok := levels[stay.ID]
		if !ok {
			lvl = carelevel.NormalWard
		}
		item.count(lvl.String(), stay.ID)
	}
	return item.DataItem
}

// currentMaxTreatmentLevel counts the still-admitted positive inpatients
// by the highest level they reached at any point of the stay.
func (s *Service) currentMaxTreatmentLevel(
	inpatientStays []*records.Encounter,
	cumulativeSets map[carelevel.Level][]*records.Encounter,
	now time.Time,
) DataItem {
	levels := resolveHighest(cumulativeSets)
	item := newValueItem(ItemCurrentMaxTreatmentLevel, s.debug)
	for _, stay := range inpatientStays {
		if !stay.Period.IsOpen() || !stay.Period.Covers(now, now) {
			continue
		}
		lvl, ok := levels[stay.ID]
		if !ok {
			lvl = carelevel.NormalWard
		}
		item.count(lvl.String(), stay.ID)
	}
	return item.DataItem
}

// cumulativeMaxTreatmentLevel counts every positive stay ever seen by
// its highest level. Outpatient contacts that never led to an admission
// count as outpatient.
func (s *Service) cumulativeMaxTreatmentLevel(
	positiveStays []*records.Encounter,
	cumulativeSets map[carelevel.Level][]*records.Encounter,
) DataItem {
	levels := resolveHighest(cumulativeSets)
	item := newValueItem(ItemCumulativeMaxTreatmentLevel, s.debug)
	for _, stay := range positiveStays {
		if stay.IsOutpatient() {
			item.count(carelevel.Outpatient.String(), stay.ID)
			continue
		}
		lvl, ok := levels[stay.ID]
		if !ok {
			lvl = carelevel.NormalWard
		}
		item.count(lvl.String(), stay.ID)
	}
	return item.DataItem
}

func (s *Service) timelineMaxTreatmentLevel(bucket *timeline.DayBucket) DataItem {
	series := &TimelineSeries{
		Dates:  make([]string, 0, len(bucket.Days())),
		Series: make(map[string][]int),
	}
	for _, d := range bucket.Days() {
		series.Dates = append(series.Dates, d.Time().Format("2006-01-02"))
	}
	for _, lvl := range carelevel.Ranked() {
		series.Series[lvl.String()] = bucket.Counts(lvl)
	}
	if s.debug {
		series.CaseIDs = make(map[string][][]string)
		for _, lvl := range carelevel.Ranked() {
			perDay := make([][]string, 0, len(bucket.Days()))
			for _, d := range bucket.Days() {
				perDay = append(perDay, bucket.CaseIDs(lvl, d))
			}
			series.CaseIDs[lvl.String()] = perDay
		}
	}
	return DataItem{Name: ItemTimelineMaxTreatmentLevel, Timeline: series}
}

// valueItem accumulates label counts and, in debug mode, the raw case
// ids behind them.
type valueItem struct {
	DataItem
	debug bool
}

func newValueItem(name string, debug bool) *valueItem {
	item := &valueItem{DataItem: DataItem{Name: name, Values: make(map[string]int)}, debug: debug}
	if debug {
		item.DataItem.CaseIDs = make(map[string][]string)
	}
	return item
}

func (v *valueItem) count(label, caseID string) {
	v.Values[label]++
	if v.debug {
		v.DataItem.CaseIDs[label] = append(v.DataItem.CaseIDs[label], caseID)
	}
}
