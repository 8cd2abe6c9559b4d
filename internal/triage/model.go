package triage

import "time"

// Class is a triage urgency label.
type Class string

const (
	// ClassNonUrgent can be managed in a routine care setting
	ClassNonUrgent Class = "non-urgent"

	// ClassUrgent requires timely evaluation
	ClassUrgent Class = "urgent"

	// ClassEmergent requires immediate attention
	ClassEmergent Class = "emergent"
)

// Classes lists every defined label in ordinal order.
var Classes = []Class{ClassNonUrgent, ClassUrgent, ClassEmergent}

// Valid reports whether c is one of the defined labels.
func (c Class) Valid() bool {
	switch c {
	case ClassNonUrgent, ClassUrgent, ClassEmergent:
		return true
	}
	return false
}

// VitalSigns are the raw measurements taken at intake.
type VitalSigns struct {
	BPSystolic  int     `json:"bp_systolic"`
	BPDiastolic int     `json:"bp_diastolic"`
	HeartRate   int     `json:"heart_rate"`
	Temperature float64 `json:"temperature"`
	SpO2        int     `json:"spo2"`
	PainScore   int     `json:"pain_score"`
}

// Request is one triage request as received from the HTTP boundary.
type Request struct {
	PatientID string     `json:"patient_id"`
	Vitals    VitalSigns `json:"vitals"`
	Symptoms  string     `json:"symptoms"`
}

// Override is the clinician override slot on a decision. The fields are
// either all unset or all set.
type Override struct {
	WasOverridden bool    `json:"was_overridden"`
	Class         *Class  `json:"override_class"`
	Reason        *string `json:"override_reason"`
}

// Consistent reports whether the override fields satisfy the all-or-nothing
// invariant.
func (o Override) Consistent() bool {
	if !o.WasOverridden {
		return o.Class == nil && o.Reason == nil
	}
	return o.Class != nil && o.Class.Valid() && o.Reason != nil
}

// Decision is the persisted, append-only audit record of one triage call.
type Decision struct {
	ID           string     `json:"id"`
	PatientID    string     `json:"patient_id"`
	CreatedAt    time.Time  `json:"created_at"`
	Vitals       VitalSigns `json:"vitals"`
	Symptoms     string     `json:"symptoms"`
	Class        Class      `json:"triage_class"`
	Confidence   float64    `json:"confidence_score"`
	Flagged      bool       `json:"is_flagged"`
	Explanation  string     `json:"explanation"`
	ModelVersion string     `json:"model_version,omitempty"`
	Override     Override   `json:"override"`
}

// Result is the response returned to the caller of Service.Triage.
type Result struct {
	DecisionID  string  `json:"decision_id"`
	PatientID   string  `json:"patient_id"`
	Class       Class   `json:"triage_class"`
	Confidence  float64 `json:"confidence_score"`
	Flagged     bool    `json:"is_flagged"`
	Explanation string  `json:"explanation"`
	Timestamp   string  `json:"timestamp"`
}

// TimestampFormat is the ISO-8601 layout used for Result.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000000Z07:00"
