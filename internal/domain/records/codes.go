package records

// CodeSet is a membership set over terminology codes.
type CodeSet map[string]struct{}

// NewCodeSet builds a CodeSet from a code list.
func NewCodeSet(codes []string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports set membership. A nil set contains nothing.
func (s CodeSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// CodeConfig names the code sets and thresholds the classification logic
// is parameterized with. It is assembled once per run from the loaded
// configuration.
type CodeConfig struct {
	MarkerLabCodes           CodeSet
	PositiveValueCodes       CodeSet
	BorderlineValueCodes     CodeSet
	NegativeValueCodes       CodeSet
	PositiveInterpretCodes   CodeSet
	PositiveDiagnosisCodes   CodeSet
	BorderlineDiagnosisCodes CodeSet
	VentilationCodes         CodeSet
	EcmoCodes                CodeSet

	// OutpatientPropagationDays is the whole-day window of the
	// outpatient-to-inpatient positivity propagation rule.
	OutpatientPropagationDays int
}

// CodeLists is the plain-slice form of CodeConfig as it comes out of the
// configuration layer.
type CodeLists struct {
	MarkerLabCodes            []string
	PositiveValueCodes        []string
	BorderlineValueCodes      []string
	NegativeValueCodes        []string
	PositiveInterpretCodes    []string
	PositiveDiagnosisCodes    []string
	BorderlineDiagnosisCodes  []string
	VentilationCodes          []string
	EcmoCodes                 []string
	OutpatientPropagationDays int
}

// NewCodeConfig converts configured code lists into lookup sets.
func NewCodeConfig(l CodeLists) CodeConfig {
	return CodeConfig{
		MarkerLabCodes:            NewCodeSet(l.MarkerLabCodes),
		PositiveValueCodes:        NewCodeSet(l.PositiveValueCodes),
		BorderlineValueCodes:      NewCodeSet(l.BorderlineValueCodes),
		NegativeValueCodes:        NewCodeSet(l.NegativeValueCodes),
		PositiveInterpretCodes:    NewCodeSet(l.PositiveInterpretCodes),
		PositiveDiagnosisCodes:    NewCodeSet(l.PositiveDiagnosisCodes),
		BorderlineDiagnosisCodes:  NewCodeSet(l.BorderlineDiagnosisCodes),
		VentilationCodes:          NewCodeSet(l.VentilationCodes),
		EcmoCodes:                 NewCodeSet(l.EcmoCodes),
		OutpatientPropagationDays: l.OutpatientPropagationDays,
	}
}
