package triage

// NumFeatures is the length of a FeatureVector. The order must match the
// order the model was fit with.
const NumFeatures = 8

// FeatureVector is the model input:
// [bp_sys, bp_dia, hr, temp, spo2, pain, pulse_pressure, shock_index].
type FeatureVector [NumFeatures]float64

// Extract maps vitals to the fixed-order feature vector. It never fails;
// shock index is 0 when systolic pressure is not positive.
func Extract(v VitalSigns) FeatureVector {
	var shockIndex float64
	if v.BPSystolic > 0 {
		shockIndex = float64(v.HeartRate) / float64(v.BPSystolic)
	}
	return FeatureVector{
		float64(v.BPSystolic),
		float64(v.BPDiastolic),
		float64(v.HeartRate),
		v.Temperature,
		float64(v.SpO2),
		float64(v.PainScore),
		float64(v.BPSystolic) - float64(v.BPDiastolic),
		shockIndex,
	}
}

// PulsePressure is systolic minus diastolic pressure.
func (f FeatureVector) PulsePressure() float64 { return f[6] }

// ShockIndex is heart rate over systolic pressure, or 0.
func (f FeatureVector) ShockIndex() float64 { return f[7] }
