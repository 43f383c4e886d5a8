package records

import "context"

// Repository is the read side of the clinical record store. Implementations
// return records as loaded; no classification state is ever written back.
type Repository interface {
	ListEncounters(ctx context.Context) ([]*Encounter, error)
	// ListObservations returns lab observations whose code is in the given
	// marker code list. An empty list returns all observations.
	ListObservations(ctx context.Context, codes []string) ([]*Observation, error)
	// ListConditions returns conditions whose diagnosis code is in the
	// given list. An empty list returns all conditions.
	ListConditions(ctx context.Context, codes []string) ([]*Condition, error)
	// ListProcedures returns procedures whose category code is in the
	// given list. An empty list returns all procedures.
	ListProcedures(ctx context.Context, codes []string) ([]*Procedure, error)
	ListLocations(ctx context.Context) ([]*Location, error)
}

// LoadSnapshot pulls one immutable set of input records for a run. Only
// the record subsets the classification logic can act on are fetched:
// marker lab observations, configured diagnosis codes and ventilation or
// ECMO procedures.
func LoadSnapshot(ctx context.Context, repo Repository, lists CodeLists) (*Snapshot, error) {
	encounters, err := repo.ListEncounters(ctx)
	if err != nil {
		return nil, err
	}
	observations, err := repo.ListObservations(ctx, lists.MarkerLabCodes)
	if err != nil {
		return nil, err
	}
	diagCodes := append(append([]string{}, lists.PositiveDiagnosisCodes...), lists.BorderlineDiagnosisCodes...)
	conditions, err := repo.ListConditions(ctx, diagCodes)
	if err != nil {
		return nil, err
	}
	procCodes := append(append([]string{}, lists.VentilationCodes...), lists.EcmoCodes...)
	procedures, err := repo.ListProcedures(ctx, procCodes)
	if err != nil {
		return nil, err
	}
	locations, err := repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Encounters:   encounters,
		Observations: observations,
		Conditions:   conditions,
		Procedures:   procedures,
		Locations:    locations,
	}, nil
}
