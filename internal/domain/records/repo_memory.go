package records

import "context"

// MemoryRepo is an in-memory Repository over a fixed snapshot, used by
// tests.
type MemoryRepo struct {
	Snapshot Snapshot
}

// NewMemoryRepo wraps a snapshot in the Repository interface.
func NewMemoryRepo(snap Snapshot) *MemoryRepo {
	return &MemoryRepo{Snapshot: snap}
}

func (m *MemoryRepo) ListEncounters(_ context.Context) ([]*Encounter, error) {
	return m.Snapshot.Encounters, nil
}

func (m *MemoryRepo) ListObservations(_ context.Context, codes []string) ([]*Observation, error) {
	set := NewCodeSet(codes)
	var result []*Observation
	for _, o := range m.Snapshot.Observations {
		if len(codes) == 0 || set.Contains(o.Code) {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MemoryRepo) ListConditions(_ context.Context, codes []string) ([]*Condition, error) {
	set := NewCodeSet(codes)
	var result []*Condition
	for _, c := range m.Snapshot.Conditions {
		if len(codes) == 0 || set.Contains(c.DiagnosisCode) {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MemoryRepo) ListProcedures(_ context.Context, codes []string) ([]*Procedure, error) {
	set := NewCodeSet(codes)
	var result []*Procedure
	for _, p := range m.Snapshot.Procedures {
		if len(codes) == 0 || set.Contains(p.CategoryCode) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *MemoryRepo) ListLocations(_ context.Context) ([]*Location, error) {
	return m.Snapshot.Locations, nil
}
