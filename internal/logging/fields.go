package logging

// Standardized attribute keys. Every subsystem logs page identity and lane
// membership under the same keys so log lines can be correlated.
const (
	FieldComponent = "component"
	FieldPageID    = "page_id"
	FieldFileID    = "file_id"
	FieldLane      = "lane"
	FieldStage     = "stage"
	FieldStatus    = "status"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
)
