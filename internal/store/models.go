package store

import (
	"fmt"
	"strings"
	"time"
)

// Origin distinguishes how a page entered the system.
type Origin string

const (
	// OriginUpload is a page imported directly from a standalone image.
	OriginUpload Origin = "upload"
	// OriginPDFGenerated is a page rendered out of a multi-page PDF; it
	// carries a back-reference to the source File and its page number.
	OriginPDFGenerated Origin = "pdf_generated"
)

// Output records one generated artifact for a page.
type Output struct {
	Kind      string    `json:"kind"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry is a timestamped processing event. The log list is append-only;
// entries are never reordered or deleted individually.
type LogEntry struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Page is the unit of work moving through the pipeline.
type Page struct {
	ID         string
	FileID     string
	PageNumber int
	Origin     Origin

	FileName string
	FileSize int64
	MimeType string
	Width    int
	Height   int

	Status        Status
	Progress      float64
	OCRText       string
	OCRConfidence float64
	Outputs       []Output
	Logs          []LogEntry

	// Order is the user-visible sequence position. Uniqueness is not
	// enforced by the store; callers allocate values via NextOrderValue.
	Order int64

	// Data retains the original image or PDF page bytes so the page can be
	// re-rendered without re-importing.
	Data []byte

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// File is a raw uploaded blob with a lifecycle independent from pages.
type File struct {
	ID        string
	Name      string
	Size      int64
	MimeType  string
	Data      []byte
	CreatedAt time.Time
}

// QueueEntry is a durable marker that a page is logically queued for
// processing. It exists for resumability; it does not imply an in-memory
// task is currently running.
type QueueEntry struct {
	ID       string
	PageID   string
	Priority int
	AddedAt  time.Time
}

// Validate checks a page record before persistence, including the
// origin-variant constraints.
func (p *Page) Validate() error {
	switch p.Origin {
	case OriginUpload:
		if p.PageNumber != 0 {
			return fmt.Errorf("upload pages must not carry a page number (got %d)", p.PageNumber)
		}
	case OriginPDFGenerated:
		if strings.TrimSpace(p.FileID) == "" {
			return fmt.Errorf("pdf_generated pages require a file id")
		}
		if p.PageNumber < 1 {
			return fmt.Errorf("pdf_generated pages require a page number >= 1 (got %d)", p.PageNumber)
		}
	default:
		return fmt.Errorf("unknown origin %q", p.Origin)
	}
	if strings.TrimSpace(p.FileName) == "" {
		return fmt.Errorf("file name is required")
	}
	if p.Status != "" {
		if _, ok := statusSet[p.Status]; !ok {
			return fmt.Errorf("unknown status %q", p.Status)
		}
	}
	if p.Progress < 0 || p.Progress > 100 {
		return fmt.Errorf("progress %v out of range [0,100]", p.Progress)
	}
	return nil
}

// AppendLog adds a timestamped entry to the page's processing log.
func (p *Page) AppendLog(level, message string) {
	p.Logs = append(p.Logs, LogEntry{
		At:      time.Now().UTC(),
		Level:   level,
		Message: message,
	})
}

// AddOutput records a generated artifact.
func (p *Page) AddOutput(kind, path string, size int64) {
	p.Outputs = append(p.Outputs, Output{
		Kind:      kind,
		Path:      path,
		Size:      size,
		CreatedAt: time.Now().UTC(),
	})
}

// SetFailed marks the page as failed with a log entry describing the cause.
func (p *Page) SetFailed(message string) {
	p.Status = StatusError
	p.Progress = 0
	p.AppendLog("error", message)
}

// ResetForRecognition moves the page back to the recognition lane entry
// state, discarding partial recognition results. ProcessedAt is cleared
// explicitly here; no other transition touches it.
func (p *Page) ResetForRecognition() {
	p.Status = StatusRecognizing
	p.Progress = 0
	p.OCRText = ""
	p.OCRConfidence = 0
	p.ProcessedAt = nil
}

// ResetForGeneration moves the page back to the generation lane entry state,
// discarding generated artifacts. ProcessedAt is cleared explicitly.
func (p *Page) ResetForGeneration() {
	p.Status = StatusPendingGen
	p.Progress = 0
	p.Outputs = nil
	p.ProcessedAt = nil
}
