package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates a Postgres-backed record store.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const encCols = `id, case_id, patient_id, facility_contact_id, visit_number,
	contact_level, class, period_start, period_end`

func (r *repoPG) ListEncounters(ctx context.Context) ([]*Encounter, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+encCols+` FROM encounter_record ORDER BY period_start`)
	if err != nil {
		return nil, fmt.Errorf("query encounters: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Encounter)
	var result []*Encounter
	for rows.Next() {
		var e Encounter
		if err := rows.Scan(&e.ID, &e.CaseID, &e.PatientID, &e.FacilityContactID, &e.VisitNumber,
			&e.ContactLevel, &e.Class, &e.Period.Start, &e.Period.End); err != nil {
			return nil, fmt.Errorf("scan encounter: %w", err)
		}
		byID[e.ID] = &e
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachLocations(ctx, byID); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repoPG) attachLocations(ctx context.Context, byID map[string]*Encounter) error {
	rows, err := r.pool.Query(ctx, `
		SELECT encounter_id, location_id, period_start, period_end
		FROM encounter_location
		ORDER BY period_start`)
	if err != nil {
		return fmt.Errorf("query encounter locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var encID string
		var la LocationAssignment
		if err := rows.Scan(&encID, &la.LocationID, &la.Period.Start, &la.Period.End); err != nil {
			return fmt.Errorf("scan encounter location: %w", err)
		}
		if enc, ok := byID[encID]; ok {
			enc.Locations = append(enc.Locations, la)
		}
	}
	return rows.Err()
}

func (r *repoPG) ListObservations(ctx context.Context, codes []string) ([]*Observation, error) {
	rows, err := r.queryFiltered(ctx, `
		SELECT id, case_id, code, value_code, interpretation_code, effective
		FROM observation_record`, "code", codes)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var result []*Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.CaseID, &o.Code, &o.ValueCode, &o.InterpretationCode, &o.Effective); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		result = append(result, &o)
	}
	return result, rows.Err()
}

func (r *repoPG) ListConditions(ctx context.Context, codes []string) ([]*Condition, error) {
	rows, err := r.queryFiltered(ctx, `
		SELECT id, case_id, patient_id, diagnosis_code, reliability, recorded
		FROM condition_record`, "diagnosis_code", codes)
	if err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}
	defer rows.Close()

	var result []*Condition
	for rows.Next() {
		var c Condition
		if err := rows.Scan(&c.ID, &c.CaseID, &c.PatientID, &c.DiagnosisCode, &c.Reliability, &c.Recorded); err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

func (r *repoPG) ListProcedures(ctx context.Context, codes []string) ([]*Procedure, error) {
	rows, err := r.queryFiltered(ctx, `
		SELECT id, case_id, category_code, status, performed_start, performed_end
		FROM procedure_record`, "category_code", codes)
	if err != nil {
		return nil, fmt.Errorf("query procedures: %w", err)
	}
	defer rows.Close()

	var result []*Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.CaseID, &p.CategoryCode, &p.Status, &p.Performed.Start, &p.Performed.End); err != nil {
			return nil, fmt.Errorf("scan procedure: %w", err)
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

func (r *repoPG) ListLocations(ctx context.Context) ([]*Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, physical_type, care_type FROM location_record`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var result []*Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.PhysicalType, &l.CareType); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		result = append(result, &l)
	}
	return result, rows.Err()
}

func (r *repoPG) queryFiltered(ctx context.Context, query, codeCol string, codes []string) (pgx.Rows, error) {
	if len(codes) == 0 {
		return r.pool.Query(ctx, query)
	}
	return r.pool.Query(ctx, query+fmt.Sprintf(" WHERE %s = ANY($1)", codeCol), codes)
}
