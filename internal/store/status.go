package store

import "strings"

// Status represents the lifecycle of a page moving through the pipeline.
type Status string

const (
	StatusPendingRender      Status = "pending_render"
	StatusRendering          Status = "rendering"
	StatusReady              Status = "ready"
	StatusRecognizing        Status = "recognizing"
	StatusOCRSuccess         Status = "ocr_success"
	StatusPendingGen         Status = "pending_gen"
	StatusGeneratingMarkdown Status = "generating_markdown"
	StatusMarkdownSuccess    Status = "markdown_success"
	StatusGeneratingPDF      Status = "generating_pdf"
	StatusPDFSuccess         Status = "pdf_success"
	StatusGeneratingDOCX     Status = "generating_docx"
	StatusCompleted          Status = "completed"
	StatusError              Status = "error"
)

var allStatuses = []Status{
	StatusPendingRender,
	StatusRendering,
	StatusReady,
	StatusRecognizing,
	StatusOCRSuccess,
	StatusPendingGen,
	StatusGeneratingMarkdown,
	StatusMarkdownSuccess,
	StatusGeneratingPDF,
	StatusPDFSuccess,
	StatusGeneratingDOCX,
	StatusCompleted,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// forwardTransitions lists the legal automatic successor statuses.
var forwardTransitions = map[Status][]Status{
	StatusPendingRender:      {StatusRendering},
	StatusRendering:          {StatusReady},
	StatusReady:              {StatusRecognizing},
	StatusRecognizing:        {StatusOCRSuccess},
	StatusOCRSuccess:         {StatusPendingGen},
	StatusPendingGen:         {StatusGeneratingMarkdown},
	StatusGeneratingMarkdown: {StatusMarkdownSuccess},
	StatusMarkdownSuccess:    {StatusGeneratingPDF},
	StatusGeneratingPDF:      {StatusPDFSuccess},
	StatusPDFSuccess:         {StatusGeneratingDOCX},
	StatusGeneratingDOCX:     {StatusCompleted},
}

// resetTargets are lane entry statuses a page may be moved back to when a
// task is re-submitted (cancel-then-replace) or a failed/finished page is
// explicitly reprocessed.
var resetTargets = map[Status]struct{}{
	StatusPendingRender: {},
	StatusRendering:     {},
	StatusRecognizing:   {},
	StatusPendingGen:    {},
}

var recognitionStatuses = map[Status]struct{}{
	StatusPendingRender: {},
	StatusRendering:     {},
	StatusReady:         {},
	StatusRecognizing:   {},
}

var generationStatuses = map[Status]struct{}{
	StatusOCRSuccess:         {},
	StatusPendingGen:         {},
	StatusGeneratingMarkdown: {},
	StatusMarkdownSuccess:    {},
	StatusGeneratingPDF:      {},
	StatusPDFSuccess:         {},
	StatusGeneratingDOCX:     {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further automatic transition occurs.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// InRecognitionLane reports whether the status belongs to the recognition
// half of the pipeline.
func (s Status) InRecognitionLane() bool {
	_, ok := recognitionStatuses[s]
	return ok
}

// InGenerationLane reports whether the status belongs to the generation half
// of the pipeline.
func (s Status) InGenerationLane() bool {
	_, ok := generationStatuses[s]
	return ok
}

// ValidTransition reports whether a page may move from one status to another.
// Same-status writes are always allowed (field-only updates). Error is
// reachable from every non-terminal status. Reset edges back to lane entry
// statuses model re-submission and explicit reprocessing.
func ValidTransition(from, to Status) bool {
	if _, ok := statusSet[to]; !ok {
		return false
	}
	if from == to {
		return true
	}
	if to == StatusError {
		return !from.IsTerminal()
	}
	if _, ok := resetTargets[to]; ok {
		return true
	}
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
