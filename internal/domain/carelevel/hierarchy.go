package carelevel

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinsight/wardwatch/internal/domain/records"
)

// ErrNoVisitNumbers is returned when not a single encounter carries the
// visit-number identifier that links the hierarchy levels of a stay.
// Without it every treatment-level computation downstream is meaningless,
// so the run has to stop here.
var ErrNoVisitNumbers = errors.New("no encounter carries a visit number identifier")

// Builder partitions positive inpatient encounters into the ICU care
// levels from ward-location membership and ventilation/ECMO procedures.
type Builder struct {
	codes records.CodeConfig
	log   zerolog.Logger
}

func NewBuilder(codes records.CodeConfig, logger zerolog.Logger) *Builder {
	return &Builder{codes: codes, log: logger.With().Str("component", "carelevel").Logger()}
}

// ResolveFacilityContacts maps every encounter id to the facility-contact
// id of its stay, via the shared visit number. Encounters without a visit
// number are logged and left unmapped. Returns ErrNoVisitNumbers when the
// resulting map would be empty.
func ResolveFacilityContacts(encounters []*records.Encounter, logger zerolog.Logger) (map[string]string, error) {
	facilityByVisit := make(map[string]string)
	for _, enc := range encounters {
		if enc.ContactLevel != records.ContactFacility {
			continue
		}
		if enc.VisitNumber == "" {
			logger.Warn().Str("encounter_id", enc.ID).Msg("facility contact has no visit number identifier")
			continue
		}
		facilityByVisit[enc.VisitNumber] = enc.ID
	}

	out := make(map[string]string)
	for _, enc := range encounters {
		if enc.VisitNumber == "" {
			if enc.ContactLevel != records.ContactFacility {
				logger.Warn().Str("encounter_id", enc.ID).Msg("encounter has no visit number identifier")
			}
			continue
		}
		if facilityID, ok := facilityByVisit[enc.VisitNumber]; ok {
			out[enc.ID] = facilityID
		}
	}

	if len(out) == 0 {
		return nil, ErrNoVisitNumbers
	}
	return out, nil
}

// BuildCareLevelSets partitions the given positive inpatient encounters
// into ICU, ICUVentilation and ICUECMO sets over the whole reporting
// span. The sets are not mutually exclusive; callers resolve the
// hierarchy (ECMO > Ventilation > ICU) where a single level is needed.
func (b *Builder) BuildCareLevelSets(
	positiveInpatients []*records.Encounter,
	locations []*records.Location,
	procedures []*records.Procedure,
	now time.Time,
) map[Level][]*records.Encounter {
	icuWardIDs := records.IcuWardIDs(locations)
	proceduresByCase := groupProceduresByCase(procedures, b.log)

	result := map[Level][]*records.Encounter{
		ICU:            {},
		ICUVentilation: {},
		ICUECMO:        {},
	}

	for _, enc := range positiveInpatients {
		if b.hasIcuStay(enc, icuWardIDs, now) {
			result[ICU] = append(result[ICU], enc)
		}
		for _, proc := range proceduresByCase[enc.CaseID] {
			// A ventilated or ECMO patient counts regardless of location
			// completeness.
			if b.codes.EcmoCodes.Contains(proc.CategoryCode) {
				result[ICUECMO] = appendOnce(result[ICUECMO], enc)
			} else if b.codes.VentilationCodes.Contains(proc.CategoryCode) {
				result[ICUVentilation] = appendOnce(result[ICUVentilation], enc)
			}
		}
	}
	return result
}

// BuildCurrentCareLevelSets is the restricted view for the "current"
// data items: only encounters that are still admitted (open period
// covering now) are considered, and procedure evidence must still be in
// progress.
func (b *Builder) BuildCurrentCareLevelSets(
	positiveInpatients []*records.Encounter,
	locations []*records.Location,
	procedures []*records.Procedure,
	now time.Time,
) map[Level][]*records.Encounter {
	icuWardIDs := records.IcuWardIDs(locations)
	proceduresByCase := groupProceduresByCase(procedures, b.log)

	result := map[Level][]*records.Encounter{
		ICU:            {},
		ICUVentilation: {},
		ICUECMO:        {},
	}

	for _, enc := range positiveInpatients {
		if !enc.Period.IsOpen() || !enc.Period.Covers(now, now) {
			continue
		}

		active := proceduresByCase[enc.CaseID]
		inProgress := false
		for _, proc := range active {
			if proc.Status != records.ProcedureStatusInProgress {
				continue
			}
			inProgress = true
			if b.codes.EcmoCodes.Contains(proc.CategoryCode) {
				result[ICUECMO] = appendOnce(result[ICUECMO], enc)
			} else if b.codes.VentilationCodes.Contains(proc.CategoryCode) {
				result[ICUVentilation] = appendOnce(result[ICUVentilation], enc)
			}
		}
		if inProgress {
			continue
		}

		// No running procedure: the encounter is current ICU only while an
		// ICU ward assignment is still open.
		for _, la := range enc.Locations {
			if !icuWardIDs.Contains(la.LocationID) {
				continue
			}
			if la.Period.IsOpen() {
				result[ICU] = appendOnce(result[ICU], enc)
				break
			}
		}
	}
	return result
}

func (b *Builder) hasIcuStay(enc *records.Encounter, icuWardIDs records.CodeSet, now time.Time) bool {
	encEnd := enc.Period.EndOr(now)
	for _, la := range enc.Locations {
		if la.LocationID == "" {
			b.log.Debug().Str("encounter_id", enc.ID).Msg("location assignment without reference skipped")
			continue
		}
		if !icuWardIDs.Contains(la.LocationID) {
			continue
		}
		if !la.Period.HasStart() {
			continue
		}
		// Assignment overlaps the encounter's own active span.
		if !la.Period.Start.After(encEnd) && !la.Period.EndOr(now).Before(enc.Period.Start) {
			return true
		}
	}
	return false
}

func groupProceduresByCase(procedures []*records.Procedure, logger zerolog.Logger) map[string][]*records.Procedure {
	byCase := make(map[string][]*records.Procedure)
	for _, proc := range procedures {
		if proc.CaseID == "" {
			logger.Warn().Str("procedure_id", proc.ID).Msg("procedure without case reference skipped")
			continue
		}
		byCase[proc.CaseID] = append(byCase[proc.CaseID], proc)
	}
	return byCase
}

func appendOnce(list []*records.Encounter, enc *records.Encounter) []*records.Encounter {
	for _, e := range list {
		if e.ID == enc.ID {
			return list
		}
	}
	return append(list, enc)
}
