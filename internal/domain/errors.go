package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrUpstreamUnavailable indicates the content or reciter provider is unreachable
	ErrUpstreamUnavailable = errors.New("upstream provider is unreachable")

	// ErrNotConfigured indicates required upstream credentials are absent
	ErrNotConfigured = errors.New("upstream credentials are not configured")

	// ErrChapterNotFound indicates the requested surah does not exist
	ErrChapterNotFound = errors.New("chapter not found")

	// ErrNoReciterServer indicates the reciter exposes no playable audio server
	ErrNoReciterServer = errors.New("reciter has no audio server")

	// ErrNoAyahAudio indicates no audio source is known for the requested ayah
	ErrNoAyahAudio = errors.New("no audio source for ayah")
)

// SourceExhaustedError is returned when every candidate audio URL for a
// surah has failed. Attempts records how many sources were tried.
type SourceExhaustedError struct {
	Surah    int
	Reciter  string
	Attempts int
	Last     error
}

func (e *SourceExhaustedError) Error() string {
	return fmt.Sprintf("all %d audio sources failed for surah %d (reciter %s): %v",
		e.Attempts, e.Surah, e.Reciter, e.Last)
}

func (e *SourceExhaustedError) Unwrap() error { return e.Last }
