package triageapi

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/linnemanlabs/mediguard/internal/triage"
)

// wire types use pointers so absent fields can be told apart from zeros.
type wireVitals struct {
	BPSystolic  *int     `json:"bp_systolic"`
	BPDiastolic *int     `json:"bp_diastolic"`
	HeartRate   *int     `json:"heart_rate"`
	Temperature *float64 `json:"temperature"`
	SpO2        *int     `json:"spo2"`
	PainScore   *int     `json:"pain_score"`
}

type wireRequest struct {
	PatientID *string     `json:"patient_id"`
	Vitals    *wireVitals `json:"vitals"`
	Symptoms  *string     `json:"symptoms"`
}

// decodeRequest parses a triage request body. A non-nil error means the body
// is not a JSON object of the right shape; problems lists required fields
// that were absent.
func decodeRequest(r io.Reader) (*triage.Request, []string, error) {
	var w wireRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.New("unexpected data after JSON object")
	}

	var missing []string
	need := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name+" is required")
		}
	}
	need(w.PatientID != nil, "patient_id")
	need(w.Symptoms != nil, "symptoms")
	need(w.Vitals != nil, "vitals")
	if w.Vitals != nil {
		v := w.Vitals
		need(v.BPSystolic != nil, "vitals.bp_systolic")
		need(v.BPDiastolic != nil, "vitals.bp_diastolic")
		need(v.HeartRate != nil, "vitals.heart_rate")
		need(v.Temperature != nil, "vitals.temperature")
		need(v.SpO2 != nil, "vitals.spo2")
		need(v.PainScore != nil, "vitals.pain_score")
	}
	if len(missing) > 0 {
		return nil, missing, nil
	}

	v := w.Vitals
	return &triage.Request{
		PatientID: *w.PatientID,
		Symptoms:  *w.Symptoms,
		Vitals: triage.VitalSigns{
			BPSystolic:  *v.BPSystolic,
			BPDiastolic: *v.BPDiastolic,
			HeartRate:   *v.HeartRate,
			Temperature: *v.Temperature,
			SpO2:        *v.SpO2,
			PainScore:   *v.PainScore,
		},
	}, nil, nil
}
