package audio

import "time"

// EventKind identifies what an Element is reporting.
type EventKind int

const (
	// EventCanPlay fires once a loaded source has decoded enough to
	// start. Duration may still be zero when the source length is
	// unknown.
	EventCanPlay EventKind = iota

	// EventProgress reports download progress as buffered duration.
	EventProgress

	// EventTime reports the advancing playback position.
	EventTime

	// EventEnded fires on natural end of media.
	EventEnded

	// EventError fires when the current source fails to load, decode,
	// or keep playing.
	EventError
)

// Event is a single notification from an Element about one loaded
// source. Gen identifies which Load the event belongs to, so a consumer
// can discard anything emitted for a source it has since replaced.
type Event struct {
	Kind     EventKind
	Gen      int // Load generation the event belongs to
	Position time.Duration
	Buffered time.Duration
	Duration time.Duration // 0 while unknown
	Err      error
}

// Element is the single playable audio output a Session owns. It mirrors
// a media element: Load swaps the source and starts fetching, Play/Pause
// control the transport, and everything asynchronous arrives on Events.
type Element interface {
	// Load replaces the current source and begins fetching it. The
	// returned generation is stamped on every event the new source
	// emits; events carrying an older generation must be ignored.
	Load(url string) int

	// Play starts or resumes playback. An immediate startup failure is
	// returned synchronously; later failures arrive as EventError.
	Play() error

	// Pause halts playback, keeping the position.
	Pause()

	// SeekTo moves the playback position.
	SeekTo(pos time.Duration)

	// Position returns the current playback position.
	Position() time.Duration

	// Duration returns the total media length, 0 while unknown.
	Duration() time.Duration

	// SetVolume sets the output gain in [0, 1].
	SetVolume(v float64)

	// Events returns the element's notification stream.
	Events() <-chan Event

	// Close releases the element and its audio device.
	Close() error
}
