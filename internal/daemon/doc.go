// Package daemon ties the store and the processing pipeline into a single
// background lifecycle with flock-based locking to prevent multiple
// concurrent instances. Starting the daemon replays durable queue entries so
// work interrupted by a shutdown resumes automatically.
package daemon
