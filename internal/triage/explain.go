package triage

import "fmt"

// fallbackExplanation is used for a class with no template. Reaching it means
// the label map and the template set disagree.
const fallbackExplanation = "Assessment based on clinical presentation."

// Render builds the deterministic narrative for a decision. The uncertainty
// notice is appended if and only if Flag(confidence) holds.
func Render(v VitalSigns, class Class, confidence float64) string {
	text, _ := render(v, class, confidence)
	return text
}

// render is Render plus whether a class template was found.
func render(v VitalSigns, class Class, confidence float64) (string, bool) {
	var text string
	known := true

	switch class {
	case ClassEmergent:
		text = fmt.Sprintf("Critical vital signs detected: BP %d/%d, HR %d. "+
			"Immediate medical attention required per emergency protocols.",
			v.BPSystolic, v.BPDiastolic, v.HeartRate)
	case ClassUrgent:
		text = fmt.Sprintf("Concerning presentation requires timely evaluation. "+
			"Vital signs: BP %d/%d, HR %d, Pain %d/10.",
			v.BPSystolic, v.BPDiastolic, v.HeartRate, v.PainScore)
	case ClassNonUrgent:
		text = fmt.Sprintf("Stable vital signs: BP %d/%d, HR %d. "+
			"Can be managed in routine care setting.",
			v.BPSystolic, v.BPDiastolic, v.HeartRate)
	default:
		text = fallbackExplanation
		known = false
	}

	if Flag(confidence) {
		text += UncertaintyNotice(confidence)
	}
	return text, known
}

// UncertaintyNotice is the suffix appended to flagged explanations.
func UncertaintyNotice(confidence float64) string {
	return fmt.Sprintf(" UNCERTAINTY FLAG: Confidence only %.0f%%. "+
		"This case requires senior clinician review due to atypical presentation or conflicting indicators.",
		confidence*100)
}
