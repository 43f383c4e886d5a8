package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries the runtime settings for the dashboard pipeline: the
// connection to the clinical record store, the HTTP feed, and the code
// lists and thresholds that parameterize the classification logic.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	// Code lists. Source systems differ in which terminology they emit, so
	// every list is overridable; the defaults follow the common LOINC/SNOMED
	// and ICD-10-GM codes for SARS-CoV-2 reporting.
	MarkerLabCodes           []string `mapstructure:"MARKER_LAB_CODES"`
	PositiveValueCodes       []string `mapstructure:"POSITIVE_VALUE_CODES"`
	BorderlineValueCodes     []string `mapstructure:"BORDERLINE_VALUE_CODES"`
	NegativeValueCodes       []string `mapstructure:"NEGATIVE_VALUE_CODES"`
	PositiveInterpretCodes   []string `mapstructure:"POSITIVE_INTERPRET_CODES"`
	PositiveDiagnosisCodes   []string `mapstructure:"POSITIVE_DIAGNOSIS_CODES"`
	BorderlineDiagnosisCodes []string `mapstructure:"BORDERLINE_DIAGNOSIS_CODES"`
	VentilationCodes         []string `mapstructure:"VENTILATION_CODES"`
	EcmoCodes                []string `mapstructure:"ECMO_CODES"`

	// OutpatientPropagationDays is the N-day window after a positive
	// outpatient contact within which a later inpatient admission of the
	// same patient is also flagged positive.
	OutpatientPropagationDays int `mapstructure:"OUTPATIENT_PROPAGATION_DAYS"`

	// KickoffDate is the first day of the reporting timeline (YYYY-MM-DD).
	KickoffDate string `mapstructure:"KICKOFF_DATE"`

	// DebugItems adds the raw case-id lists next to the aggregated counts
	// in the dashboard feed.
	DebugItems bool `mapstructure:"DEBUG_ITEMS"`

	// ExportDir is the target directory for CSV debug exports. Empty
	// disables the export.
	ExportDir string `mapstructure:"EXPORT_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MARKER_LAB_CODES", "94306-8,96763-8,94640-0")
	v.SetDefault("POSITIVE_VALUE_CODES", "10828004,260373001,52101004")
	v.SetDefault("BORDERLINE_VALUE_CODES", "280416009,419984006")
	v.SetDefault("NEGATIVE_VALUE_CODES", "260385009,260415000,410594000")
	v.SetDefault("POSITIVE_INTERPRET_CODES", "POS,DET")
	v.SetDefault("POSITIVE_DIAGNOSIS_CODES", "U07.1")
	v.SetDefault("BORDERLINE_DIAGNOSIS_CODES", "U07.2")
	v.SetDefault("VENTILATION_CODES", "40617009,57485005")
	v.SetDefault("ECMO_CODES", "182744004")
	v.SetDefault("OUTPATIENT_PROPAGATION_DAYS", 12)
	v.SetDefault("KICKOFF_DATE", "2020-01-27")
	v.SetDefault("DEBUG_ITEMS", false)
	v.SetDefault("EXPORT_DIR", "")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MARKER_LAB_CODES")
	v.BindEnv("POSITIVE_VALUE_CODES")
	v.BindEnv("BORDERLINE_VALUE_CODES")
	v.BindEnv("NEGATIVE_VALUE_CODES")
	v.BindEnv("POSITIVE_INTERPRET_CODES")
	v.BindEnv("POSITIVE_DIAGNOSIS_CODES")
	v.BindEnv("BORDERLINE_DIAGNOSIS_CODES")
	v.BindEnv("VENTILATION_CODES")
	v.BindEnv("ECMO_CODES")
	v.BindEnv("OUTPATIENT_PROPAGATION_DAYS")
	v.BindEnv("KICKOFF_DATE")
	v.BindEnv("DEBUG_ITEMS")
	v.BindEnv("EXPORT_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Comma-separated env values arrive as plain strings; split them here.
	cfg.MarkerLabCodes = splitCodes(v.GetString("MARKER_LAB_CODES"))
	cfg.PositiveValueCodes = splitCodes(v.GetString("POSITIVE_VALUE_CODES"))
	cfg.BorderlineValueCodes = splitCodes(v.GetString("BORDERLINE_VALUE_CODES"))
	cfg.NegativeValueCodes = splitCodes(v.GetString("NEGATIVE_VALUE_CODES"))
	cfg.PositiveInterpretCodes = splitCodes(v.GetString("POSITIVE_INTERPRET_CODES"))
	cfg.PositiveDiagnosisCodes = splitCodes(v.GetString("POSITIVE_DIAGNOSIS_CODES"))
	cfg.BorderlineDiagnosisCodes = splitCodes(v.GetString("BORDERLINE_DIAGNOSIS_CODES"))
	cfg.VentilationCodes = splitCodes(v.GetString("VENTILATION_CODES"))
	cfg.EcmoCodes = splitCodes(v.GetString("ECMO_CODES"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Kickoff parses KICKOFF_DATE as a UTC calendar day.
func (c *Config) Kickoff() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.KickoffDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse KICKOFF_DATE %q: %w", c.KickoffDate, err)
	}
	return t.UTC(), nil
}

// Validate checks the settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if len(c.MarkerLabCodes) == 0 {
		return fmt.Errorf("MARKER_LAB_CODES must not be empty")
	}
	if len(c.PositiveValueCodes) == 0 && len(c.PositiveInterpretCodes) == 0 {
		return fmt.Errorf("at least one of POSITIVE_VALUE_CODES or POSITIVE_INTERPRET_CODES is required")
	}
	if c.OutpatientPropagationDays < 0 {
		return fmt.Errorf("OUTPATIENT_PROPAGATION_DAYS must not be negative, got %d", c.OutpatientPropagationDays)
	}
	if _, err := c.Kickoff(); err != nil {
		return err
	}
	return nil
}
