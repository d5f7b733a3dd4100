package domain

// ClassificationMethod records which path produced a classification.
type ClassificationMethod string

const (
	ClassifiedByModel ClassificationMethod = "model"
	ClassifiedByRule  ClassificationMethod = "rule"
)

// LabelUnknown is returned when neither the model nor the rule table
// recognizes the message.
const LabelUnknown = "UNKNOWN"

// ClassificationResult is the per-request output of the intent
// classifier. Confidence is in [0,1]; for the model path it is the
// model-reported probability, never a synthesized number.
type ClassificationResult struct {
	Label      string               `json:"label"`
	Confidence float64              `json:"confidence"`
	Method     ClassificationMethod `json:"method"`
}

// Unknown returns the fixed result for unrecognized input.
func Unknown() ClassificationResult {
	return ClassificationResult{Label: LabelUnknown, Confidence: 0, Method: ClassifiedByRule}
}
