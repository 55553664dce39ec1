// Package services defines the shared error vocabulary for pipeline stages.
//
// Stage implementations wrap failures with one of the exported sentinel
// markers so callers can classify them without inspecting message text:
// validation problems, missing records, storage-layer failures, external
// tool failures, and transient conditions. Cooperative cancellation is not
// an error category here; IsCancellation recognizes it so lanes can log it
// informationally instead of as a failure.
package services
