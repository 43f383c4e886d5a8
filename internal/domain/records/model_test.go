package records

import (
	"context"
	"testing"
	"time"
)

func ts(day int) time.Time {
	return time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

func tsPtr(day int) *time.Time {
	t := ts(day)
	return &t
}

func TestPeriodCovers(t *testing.T) {
	now := ts(10)
	closed := Period{Start: ts(1), End: tsPtr(3)}
	open := Period{Start: ts(5)}

	if !closed.Covers(ts(2), now) {
		t.Error("closed period should cover a day inside it")
	}
	if closed.Covers(ts(4), now) {
		t.Error("closed period should not cover a day after its end")
	}
	if !open.Covers(ts(7), now) {
		t.Error("open period should cover a day before now")
	}
	if open.Covers(ts(11), now) {
		t.Error("open period should not cover a day after now")
	}
	if (Period{}).Covers(ts(1), now) {
		t.Error("period without start covers nothing")
	}
}

func TestPeriodEndOr(t *testing.T) {
	now := ts(9)
	if got := (Period{Start: ts(1)}).EndOr(now); !got.Equal(now) {
		t.Errorf("open period EndOr = %v, want now", got)
	}
	if got := (Period{Start: ts(1), End: tsPtr(2)}).EndOr(now); !got.Equal(ts(2)) {
		t.Errorf("closed period EndOr = %v, want its end", got)
	}
}

func TestIsIcuWard(t *testing.T) {
	cases := []struct {
		loc  Location
		want bool
	}{
		{Location{ID: "icu-1", PhysicalType: PhysicalTypeWard, CareType: CareTypeICU}, true},
		{Location{ID: "ward-1", PhysicalType: PhysicalTypeWard, CareType: "surgical"}, false},
		{Location{ID: "bed-1", PhysicalType: "bd", CareType: CareTypeICU}, false},
	}
	for _, c := range cases {
		if got := c.loc.IsIcuWard(); got != c.want {
			t.Errorf("IsIcuWard(%s) = %v, want %v", c.loc.ID, got, c.want)
		}
	}
}

func TestMemoryRepoFiltersByCode(t *testing.T) {
	repo := NewMemoryRepo(Snapshot{
		Observations: []*Observation{
			{ID: "o1", Code: "94640-0"},
			{ID: "o2", Code: "777-3"},
		},
		Procedures: []*Procedure{
			{ID: "p1", CategoryCode: "182744004"},
			{ID: "p2", CategoryCode: "other"},
		},
	})

	obs, err := repo.ListObservations(context.Background(), []string{"94640-0"})
	if err != nil {
		t.Fatalf("ListObservations: %v", err)
	}
	if len(obs) != 1 || obs[0].ID != "o1" {
		t.Errorf("expected only the marker observation, got %v", obs)
	}

	procs, err := repo.ListProcedures(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListProcedures: %v", err)
	}
	if len(procs) != 2 {
		t.Errorf("empty code list should return all procedures, got %d", len(procs))
	}
}
