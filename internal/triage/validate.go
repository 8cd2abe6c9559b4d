package triage

import "fmt"

type bound struct {
	name        string
	val, lo, hi float64
}

// Validate checks the request shape and, when checkRanges is set, that every
// vital lies inside broad physiological bounds. Returns *InputError.
func (r *Request) Validate(checkRanges bool) error {
	var problems []string
	if r.PatientID == "" {
		problems = append(problems, "patient_id is required")
	}
	if checkRanges {
		problems = append(problems, r.Vitals.problems()...)
	}
	if len(problems) > 0 {
		return &InputError{Problems: problems}
	}
	return nil
}

func (v VitalSigns) problems() []string {
	bounds := []bound{
		{"bp_systolic", float64(v.BPSystolic), 0, 300},
		{"bp_diastolic", float64(v.BPDiastolic), 0, 250},
		{"heart_rate", float64(v.HeartRate), 0, 300},
		{"temperature", v.Temperature, 25, 45},
		{"spo2", float64(v.SpO2), 0, 100},
		{"pain_score", float64(v.PainScore), 0, 10},
	}

	var out []string
	for _, b := range bounds {
		if b.val < b.lo || b.val > b.hi {
			out = append(out, fmt.Sprintf("%s %v outside %v..%v", b.name, b.val, b.lo, b.hi))
		}
	}
	return out
}
