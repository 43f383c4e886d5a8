// Package records holds the read-only clinical record collections the
// dashboard pipeline consumes: encounters, lab observations, diagnoses,
// procedures and ward locations, together with the code configuration
// that parameterizes their interpretation.
package records

import (
	"time"
)

// Class distinguishes inpatient stays from outpatient contacts.
type Class string

const (
	ClassInpatient  Class = "inpatient"
	ClassOutpatient Class = "outpatient"
)

// ContactLevel is the hierarchy level of an encounter record. A physical
// hospital stay is usually recorded three times: as a facility contact
// (the whole stay), department contacts and supply contacts (ward or
// care-unit assignments). All levels share one visit number.
type ContactLevel string

const (
	ContactFacility   ContactLevel = "facility"
	ContactDepartment ContactLevel = "department"
	ContactSupply     ContactLevel = "supply"
)

// Period is a half-open time interval. A nil End means the interval is
// still running; it is resolved against "now" only at the point of an
// overlap computation, never by rewriting the record.
type Period struct {
	Start time.Time
	End   *time.Time
}

// HasStart reports whether the period has a usable start timestamp.
func (p Period) HasStart() bool { return !p.Start.IsZero() }

// IsOpen reports whether the period has no end yet.
func (p Period) IsOpen() bool { return p.End == nil }

// EndOr returns the period end, or the given fallback when the period is
// still open.
func (p Period) EndOr(now time.Time) time.Time {
	if p.End != nil {
		return *p.End
	}
	return now
}

// Covers reports whether t lies within [Start, End], with an open end
// resolved to now.
func (p Period) Covers(t, now time.Time) bool {
	if !p.HasStart() {
		return false
	}
	return !p.Start.After(t) && !p.EndOr(now).Before(t)
}

// LocationAssignment places an encounter on a location for a sub-span of
// the stay.
type LocationAssignment struct {
	LocationID string
	Period     Period
}

// Encounter is a hospital stay or contact. CaseID is the identifier the
// other record types reference; FacilityContactID groups every hierarchy
// level of one physical stay once linking has run.
type Encounter struct {
	ID                string
	CaseID            string
	PatientID         string
	FacilityContactID string
	VisitNumber       string
	ContactLevel      ContactLevel
	Class             Class
	Period            Period
	Locations         []LocationAssignment
}

func (e *Encounter) IsInpatient() bool  { return e.Class == ClassInpatient }
func (e *Encounter) IsOutpatient() bool { return e.Class == ClassOutpatient }

// Location physical types and care types as delivered by the source
// system. Only ward-level ICU locations matter for care-level
// attribution; room and bed entries duplicate the ward span.
const (
	PhysicalTypeWard = "wa"
	CareTypeICU      = "icu"
)

// Location is a ward, room or bed.
type Location struct {
	ID           string
	PhysicalType string
	CareType     string
}

// IsIcuWard reports whether the location is a ward-level intensive care
// unit.
func (l *Location) IsIcuWard() bool {
	return l.PhysicalType == PhysicalTypeWard && l.CareType == CareTypeICU
}

// IcuWardIDs collects the ids of all ward-level ICU locations.
func IcuWardIDs(locations []*Location) CodeSet {
	set := make(CodeSet)
	for _, loc := range locations {
		if loc.IsIcuWard() {
			set[loc.ID] = struct{}{}
		}
	}
	return set
}

// Procedure is a ventilation/ECMO (or other) procedure performed during a
// case.
type Procedure struct {
	ID           string
	CaseID       string
	CategoryCode string
	Status       string
	Performed    Period
}

// ProcedureStatusInProgress marks a procedure that is still running.
const ProcedureStatusInProgress = "in-progress"

// Observation is a lab result. Source systems populate either the value
// field or the interpretation field; both are consulted, value first.
type Observation struct {
	ID                 string
	CaseID             string
	Code               string
	ValueCode          string
	InterpretationCode string
	Effective          time.Time
}

// Reliability is the diagnostic certainty qualifier on a condition.
type Reliability string

const (
	ReliabilityConfirmed   Reliability = "confirmed"
	ReliabilitySuspected   Reliability = "suspected"
	ReliabilityExcluded    Reliability = "excluded"
	ReliabilityUnspecified Reliability = "unspecified"
)

// Condition is a coded diagnosis attached to a case.
type Condition struct {
	ID            string
	CaseID        string
	PatientID     string
	DiagnosisCode string
	Reliability   Reliability
	Recorded      time.Time
}

// Snapshot is one run's worth of input records, loaded once and treated
// as immutable for the rest of the computation.
type Snapshot struct {
	Encounters   []*Encounter
	Observations []*Observation
	Conditions   []*Condition
	Procedures   []*Procedure
	Locations    []*Location
}
