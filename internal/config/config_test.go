package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutpatientPropagationDays != 12 {
		t.Errorf("expected default propagation window of 12 days, got %d", cfg.OutpatientPropagationDays)
	}
	if len(cfg.MarkerLabCodes) != 3 {
		t.Errorf("expected 3 default marker lab codes, got %v", cfg.MarkerLabCodes)
	}
	kickoff, err := cfg.Kickoff()
	if err != nil {
		t.Fatalf("Kickoff: %v", err)
	}
	want := time.Date(2020, 1, 27, 0, 0, 0, 0, time.UTC)
	if !kickoff.Equal(want) {
		t.Errorf("kickoff = %v, want %v", kickoff, want)
	}
}

func TestLoadCodeListOverride(t *testing.T) {
	os.Setenv("MARKER_LAB_CODES", "L1, L2 ,L3")
	defer os.Unsetenv("MARKER_LAB_CODES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.MarkerLabCodes) != 3 || cfg.MarkerLabCodes[1] != "L2" {
		t.Errorf("expected trimmed code list [L1 L2 L3], got %v", cfg.MarkerLabCodes)
	}
}

func TestValidateRejectsBadKickoff(t *testing.T) {
	os.Setenv("KICKOFF_DATE", "27.01.2020")
	defer os.Unsetenv("KICKOFF_DATE")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed KICKOFF_DATE")
	}
}

func TestValidateRejectsNegativeWindow(t *testing.T) {
	os.Setenv("OUTPATIENT_PROPAGATION_DAYS", "-1")
	defer os.Unsetenv("OUTPATIENT_PROPAGATION_DAYS")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative propagation window")
	}
}
