package models

// PendingUpload is a file the user picked but has not submitted yet. It only
// lives in memory and is dropped on submit or removal.
type PendingUpload struct {
	ID          string
	Name        string
	ContentType string
	Data        []byte
	// Preview is the original image as a data URL, shown instantly and
	// copied into the resulting EvaluationResult.
	Preview string
	// CorrelationID is sent alongside the image so the evaluator can echo
	// it back on the matching item.
	CorrelationID string
}

// Size returns the payload size in bytes.
func (p PendingUpload) Size() int64 {
	return int64(len(p.Data))
}
