// Package pipeline coordinates page processing across two bounded lanes:
// recognition (render plus OCR) and generation (artifact production). Lanes
// admit queued tasks in submission order and enforce cancel-then-replace
// semantics: submitting work for a page that already has a live task cancels
// the old task before the new one is tracked, so each page has at most one
// live handle per lane.
//
// Queue entries in the store are the durable complement to the in-memory
// lanes; on startup the manager replays them so work survives restarts.
package pipeline
