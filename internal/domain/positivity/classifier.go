// Package positivity labels encounters as disease-positive, borderline or
// negative from lab observations and coded diagnoses, and propagates
// positivity from outpatient contacts to closely following inpatient
// stays of the same patient.
package positivity

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/clinsight/wardwatch/internal/domain/records"
)

// Result carries the classification as id sets over encounter ids. Input
// records are never mutated; callers look encounters up here.
type Result struct {
	Positive   map[string]struct{}
	Borderline map[string]struct{}
	Negative   map[string]struct{}

	// Propagated holds the inpatient encounter ids that became positive
	// through the N-day rule rather than through own evidence.
	Propagated map[string]struct{}
}

// IsPositive reports whether the encounter with the given id was flagged
// positive.
func (r *Result) IsPositive(encounterID string) bool {
	_, ok := r.Positive[encounterID]
	return ok
}

// PositiveOf filters the given encounters down to the positive ones.
func (r *Result) PositiveOf(encounters []*records.Encounter) []*records.Encounter {
	var out []*records.Encounter
	for _, enc := range encounters {
		if r.IsPositive(enc.ID) {
			out = append(out, enc)
		}
	}
	return out
}

// Classifier implements the positivity rules for one code configuration.
type Classifier struct {
	codes records.CodeConfig
	log   zerolog.Logger
}

func NewClassifier(codes records.CodeConfig, logger zerolog.Logger) *Classifier {
	return &Classifier{codes: codes, log: logger.With().Str("component", "positivity").Logger()}
}

// Classify labels every encounter. Positive beats borderline beats
// negative when one case carries conflicting evidence.
func (c *Classifier) Classify(
	encounters []*records.Encounter,
	observations []*records.Observation,
	conditions []*records.Condition,
) *Result {
	labPositiveCases := c.caseIDsWithPositiveLab(observations)
	diagPositiveCases, diagBorderlineCases, diagNegativeCases := c.caseIDsByDiagnosis(conditions)

	for id := range labPositiveCases {
		diagPositiveCases[id] = struct{}{}
	}

	result := &Result{
		Positive:   make(map[string]struct{}),
		Borderline: make(map[string]struct{}),
		Negative:   make(map[string]struct{}),
		Propagated: make(map[string]struct{}),
	}

	// Flag encounters by case id, then widen to every encounter sharing
	// the visit number (department and supply contacts of the same stay).
	positiveVisits := make(map[string]struct{})
	for _, enc := range encounters {
		switch {
		case contains(diagPositiveCases, enc.CaseID):
			result.Positive[enc.ID] = struct{}{}
			if enc.VisitNumber != "" {
				positiveVisits[enc.VisitNumber] = struct{}{}
			}
		case contains(diagBorderlineCases, enc.CaseID):
			result.Borderline[enc.ID] = struct{}{}
		case contains(diagNegativeCases, enc.CaseID):
			result.Negative[enc.ID] = struct{}{}
		}
	}
	for _, enc := range encounters {
		if enc.VisitNumber == "" {
			continue
		}
		if _, ok := positiveVisits[enc.VisitNumber]; ok {
			result.Positive[enc.ID] = struct{}{}
			delete(result.Borderline, enc.ID)
			delete(result.Negative, enc.ID)
		}
	}

	c.propagateOutpatientToInpatient(encounters, result)
	return result
}

// caseIDsWithPositiveLab collects the case ids of observations carrying a
// configured marker code with a positive result. The value field wins
// over the interpretation field; both are consulted because source
// systems fill either one.
func (c *Classifier) caseIDsWithPositiveLab(observations []*records.Observation) map[string]struct{} {
	out := make(map[string]struct{})
	for _, obs := range observations {
		if !c.codes.MarkerLabCodes.Contains(obs.Code) {
			continue
		}
		if obs.CaseID == "" {
			c.log.Warn().Str("observation_id", obs.ID).Msg("marker observation without case reference skipped")
			continue
		}
		if obs.ValueCode == "" && obs.InterpretationCode == "" {
			c.log.Warn().Str("observation_id", obs.ID).Msg("marker observation carries neither value nor interpretation")
			continue
		}
		if obs.ValueCode != "" {
			if c.codes.PositiveValueCodes.Contains(obs.ValueCode) {
				out[obs.CaseID] = struct{}{}
			} else if !c.codes.BorderlineValueCodes.Contains(obs.ValueCode) &&
				!c.codes.NegativeValueCodes.Contains(obs.ValueCode) {
				c.log.Debug().Str("observation_id", obs.ID).Str("value", obs.ValueCode).
					Msg("unrecognized observation value code")
			}
			continue
		}
		if c.codes.PositiveInterpretCodes.Contains(obs.InterpretationCode) {
			out[obs.CaseID] = struct{}{}
		}
	}
	return out
}

// caseIDsByDiagnosis buckets case ids by the configured diagnosis codes
// and their reliability qualifier. A confirmed or unspecified positive
// diagnosis counts positive, a suspected one borderline, an excluded one
// negative; borderline diagnosis codes never count positive.
func (c *Classifier) caseIDsByDiagnosis(conditions []*records.Condition) (positive, borderline, negative map[string]struct{}) {
	positive = make(map[string]struct{})
	borderline = make(map[string]struct{})
	negative = make(map[string]struct{})

	for _, cond := range conditions {
		if cond.CaseID == "" {
			c.log.Warn().Str("condition_id", cond.ID).Msg("condition without case reference skipped")
			continue
		}
		switch {
		case c.codes.PositiveDiagnosisCodes.Contains(cond.DiagnosisCode):
			switch cond.Reliability {
			case records.ReliabilitySuspected:
				borderline[cond.CaseID] = struct{}{}
			case records.ReliabilityExcluded:
				negative[cond.CaseID] = struct{}{}
			default:
				positive[cond.CaseID] = struct{}{}
			}
		case c.codes.BorderlineDiagnosisCodes.Contains(cond.DiagnosisCode):
			if cond.Reliability == records.ReliabilityExcluded {
				negative[cond.CaseID] = struct{}{}
			} else {
				borderline[cond.CaseID] = struct{}{}
			}
		}
	}
	return positive, borderline, negative
}

// propagateOutpatientToInpatient applies the N-day rule: an inpatient
// stay starting strictly after a positive outpatient contact of the same
// patient, within the configured whole-day window, is flagged positive
// too. The rule only ever adds flags.
func (c *Classifier) propagateOutpatientToInpatient(encounters []*records.Encounter, result *Result) {
	var positiveOutpatients []*records.Encounter
	inpatientsByPatient := make(map[string][]*records.Encounter)

	for _, enc := range encounters {
		switch {
		case enc.IsOutpatient() && result.IsPositive(enc.ID):
			positiveOutpatients = append(positiveOutpatients, enc)
		case enc.IsInpatient():
			inpatientsByPatient[enc.PatientID] = append(inpatientsByPatient[enc.PatientID], enc)
		}
	}

	window := c.codes.OutpatientPropagationDays
	for _, out := range positiveOutpatients {
		if !out.Period.HasStart() {
			continue
		}
		for _, in := range inpatientsByPatient[out.PatientID] {
			if !in.Period.HasStart() || !out.Period.Start.Before(in.Period.Start) {
				continue
			}
			if wholeDaysBetween(out.Period.Start, in.Period.Start) > window {
				continue
			}
			if !result.IsPositive(in.ID) {
				c.log.Debug().
					Str("inpatient_id", in.ID).
					Str("outpatient_id", out.ID).
					Msg("inpatient stay flagged positive via preceding outpatient contact")
				result.Positive[in.ID] = struct{}{}
				result.Propagated[in.ID] = struct{}{}
				delete(result.Borderline, in.ID)
				delete(result.Negative, in.ID)
			}
		}
	}
}

// wholeDaysBetween compares calendar days in UTC, ignoring the time of
// day on either side.
func wholeDaysBetween(a, b time.Time) int {
	au := a.UTC()
	bu := b.UTC()
	ad := time.Date(au.Year(), au.Month(), au.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(bu.Year(), bu.Month(), bu.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad) / (24 * time.Hour))
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
