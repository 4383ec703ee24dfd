package audio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mfarhan/tarteel/internal/domain"
)

// InitialBufferThreshold is the buffered fraction (percent of total
// duration) a full-surah source must reach before playback starts. It
// keeps long files from stuttering on slow connections while starting
// well before the full download.
const InitialBufferThreshold = 25.0

// State is the session's playback phase. The tagged enum replaces
// independent boolean flags so contradictory combinations cannot exist.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateWaitingForBuffer
	StatePlaying
	StatePaused
	StateEnded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateWaitingForBuffer:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is the read-only view of the session published to every
// observer. All fields describe the same instant.
type Snapshot struct {
	State     State
	SessionID string // Changes on every PlaySurah

	Surah     int
	ReciterID string

	CandidateURLs []string
	URLIndex      int

	Position        time.Duration
	Duration        time.Duration
	BufferedPercent float64
	Volume          float64

	AyahNumber    int       // Non-zero during single-ayah playback
	SleepDeadline time.Time // Zero when no sleep timer is armed

	Err error // Set when State is StateFailed
}

// IsPlaying reports whether audio is audibly progressing.
func (s Snapshot) IsPlaying() bool { return s.State == StatePlaying }

// IsBuffering reports whether the session is between a playback request
// and the initial buffer threshold.
func (s Snapshot) IsBuffering() bool {
	return s.State == StateLoading || s.State == StateWaitingForBuffer
}

// stopper abstracts the armed sleep timer so tests can fire it manually.
type stopper interface {
	Stop() bool
}

type timerFactory func(d time.Duration, f func()) stopper

type realTimer struct{ *time.Timer }

func defaultTimerFactory(d time.Duration, f func()) stopper {
	return realTimer{time.AfterFunc(d, f)}
}

// Session owns the one audio element and runs the playback state
// machine: candidate fallback, the initial buffer gate, transport
// controls, and the sleep timer. All mutations are serialized through a
// single event loop, so every observer sees the same ordered sequence of
// snapshots.
type Session struct {
	element Element
	events  <-chan Event
	logger  *slog.Logger

	cmds chan func()
	done chan struct{}

	// Loop-owned state. Only the run goroutine touches these.
	state       State
	elemGen     int // Generation of the current Load; older events are stale
	sessionID   string
	surah       int
	reciterID   string
	candidates  []string
	urlIndex    int
	position    time.Duration
	duration    time.Duration
	buffered    time.Duration
	volume      float64
	ayahNumber  int
	ayahMode    bool // Single-ayah playback: no gate, no fallback
	ayahSources map[int]string
	lastErr     error

	sleepTimer    stopper
	sleepDeadline time.Time
	newTimer      timerFactory
	now           func() time.Time

	observers []func(Snapshot)

	snapMu sync.RWMutex
	snap   Snapshot

	closeOnce sync.Once
}

// NewSession creates a session over the given element and starts its
// event loop.
func NewSession(element Element, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		element:  element,
		events:   element.Events(),
		logger:   logger,
		cmds:     make(chan func(), 16),
		done:     make(chan struct{}),
		state:    StateIdle,
		volume:   1.0,
		newTimer: defaultTimerFactory,
		now:      time.Now,
	}
	s.publish()
	go s.run()
	return s
}

// run is the single goroutine that owns all session state. Element
// events and public commands both funnel through it.
func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case cmd := <-s.cmds:
			cmd()
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

// do executes fn inside the event loop and waits for it to finish.
// Observers are invoked from the loop and must not call back into the
// session synchronously.
func (s *Session) do(fn func()) {
	doneCh := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(doneCh) }:
	case <-s.done:
		return
	}
	select {
	case <-doneCh:
	case <-s.done:
	}
}

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Subscribe registers an observer called synchronously, in registration
// order, for every published snapshot. All observers see every
// transition and always in the same order.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.do(func() {
		s.observers = append(s.observers, fn)
	})
}

// publish materializes a snapshot from loop state and fans it out.
func (s *Session) publish() {
	snap := Snapshot{
		State:           s.state,
		SessionID:       s.sessionID,
		Surah:           s.surah,
		ReciterID:       s.reciterID,
		CandidateURLs:   s.candidates,
		URLIndex:        s.urlIndex,
		Position:        s.position,
		Duration:        s.duration,
		BufferedPercent: s.bufferedPercent(),
		Volume:          s.volume,
		AyahNumber:      s.ayahNumber,
		SleepDeadline:   s.sleepDeadline,
		Err:             s.lastErr,
	}

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	for _, fn := range s.observers {
		fn(snap)
	}
}

func (s *Session) bufferedPercent() float64 {
	if s.duration <= 0 {
		return 0
	}
	pct := float64(s.buffered) / float64(s.duration) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// PlaySurah starts a full-surah playback session. Any previous session,
// including an in-flight fallback chain, is superseded: the candidate
// list is rebuilt, the index reset, and events still in flight from the
// old source are dropped by their stale load generation.
func (s *Session) PlaySurah(surah int, reciterID string) {
	s.do(func() {
		s.sessionID = uuid.NewString()
		s.surah = surah
		s.reciterID = reciterID
		s.candidates = Resolve(reciterID, surah)
		s.urlIndex = 0
		s.position = 0
		s.duration = 0
		s.buffered = 0
		s.ayahNumber = 0
		s.ayahMode = false
		s.lastErr = nil
		s.state = StateLoading

		s.logger.Info("loading surah",
			"surah", surah, "reciter", reciterID,
			"candidates", len(s.candidates), "session", s.sessionID)

		s.elemGen = s.element.Load(s.candidates[0])
		s.state = StateWaitingForBuffer
		s.publish()
	})
}

// SetAyahSources installs the pre-resolved per-ayah URL map fetched with
// the surah's audio metadata. PlayAyah refuses ayahs not present here.
func (s *Session) SetAyahSources(sources map[int]string) {
	s.do(func() {
		s.ayahSources = sources
	})
}

// PlayAyah plays a single ayah from the pre-resolved source map. It
// replaces the current source unconditionally but goes through neither
// the buffering gate nor the fallback chain, and leaves the active surah
// untouched.
func (s *Session) PlayAyah(ayah int) error {
	var err error
	s.do(func() {
		url, ok := s.ayahSources[ayah]
		if !ok {
			err = domain.ErrNoAyahAudio
			return
		}
		s.ayahNumber = ayah
		s.ayahMode = true
		s.position = 0
		s.duration = 0
		s.buffered = 0
		s.lastErr = nil
		s.state = StateLoading

		s.logger.Debug("loading ayah", "ayah", ayah, "url", url)

		s.elemGen = s.element.Load(url)
		s.publish()
	})
	return err
}

// TogglePlay flips between playing and paused. It is a no-op while
// loading, buffering, or after a terminal failure.
func (s *Session) TogglePlay() {
	s.do(func() {
		switch s.state {
		case StatePlaying:
			s.element.Pause()
			s.state = StatePaused
			s.publish()
		case StatePaused:
			if err := s.element.Play(); err != nil {
				s.onSourceFailure(err)
				return
			}
			s.state = StatePlaying
			s.publish()
		}
	})
}

// SeekTo sets the absolute playback position, clamped to the media.
func (s *Session) SeekTo(pos time.Duration) {
	s.do(func() {
		s.seekClamped(pos)
	})
}

// Skip moves the position by delta seconds, clamping into [0, duration].
func (s *Session) Skip(delta time.Duration) {
	s.do(func() {
		s.seekClamped(s.position + delta)
	})
}

func (s *Session) seekClamped(pos time.Duration) {
	if s.state == StateIdle || s.state == StateFailed {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if s.duration > 0 && pos > s.duration {
		pos = s.duration
	}
	s.element.SeekTo(pos)
	s.position = pos
	s.publish()
}

// SetVolume sets the output gain, clamped to [0, 1].
func (s *Session) SetVolume(v float64) {
	s.do(func() {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		s.volume = v
		s.element.SetVolume(v)
		s.publish()
	})
}

// SetSleepTimer arms a one-shot deadline that pauses playback when it
// expires. Re-arming replaces the previous deadline; a non-positive
// duration cancels without touching playback.
func (s *Session) SetSleepTimer(d time.Duration) {
	s.do(func() {
		if s.sleepTimer != nil {
			s.sleepTimer.Stop()
			s.sleepTimer = nil
			s.sleepDeadline = time.Time{}
		}
		if d <= 0 {
			s.publish()
			return
		}
		s.sleepDeadline = s.now().Add(d)
		s.sleepTimer = s.newTimer(d, s.onSleepTimerFired)
		s.logger.Info("sleep timer armed", "deadline", s.sleepDeadline)
		s.publish()
	})
}

// CancelSleepTimer disarms any armed sleep timer without affecting
// playback.
func (s *Session) CancelSleepTimer() {
	s.SetSleepTimer(0)
}

// onSleepTimerFired runs on the timer goroutine and re-enters the loop.
func (s *Session) onSleepTimerFired() {
	select {
	case s.cmds <- func() {
		s.sleepTimer = nil
		s.sleepDeadline = time.Time{}
		if s.state == StatePlaying {
			s.element.Pause()
			s.state = StatePaused
			s.logger.Info("sleep timer expired, playback paused")
		}
		s.publish()
	}:
	case <-s.done:
	}
}

// Stop ends the session and returns to idle. The element keeps its
// device but stops producing audio.
func (s *Session) Stop() {
	s.do(func() {
		s.element.Pause()
		s.state = StateIdle
		s.surah = 0
		s.reciterID = ""
		s.candidates = nil
		s.urlIndex = 0
		s.position = 0
		s.duration = 0
		s.buffered = 0
		s.ayahNumber = 0
		s.ayahMode = false
		s.lastErr = nil
		s.publish()
	})
}

// Close shuts down the loop and releases the element.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.do(func() {
			if s.sleepTimer != nil {
				s.sleepTimer.Stop()
				s.sleepTimer = nil
			}
		})
		close(s.done)
		err = s.element.Close()
	})
	return err
}

// === Element event handling (loop goroutine only) ===

func (s *Session) handleEvent(ev Event) {
	// Events from a superseded Load must never touch the current
	// session's state, however late they arrive.
	if ev.Gen != s.elemGen {
		return
	}
	switch ev.Kind {
	case EventCanPlay:
		s.onCanPlay(ev)
	case EventProgress:
		s.onProgress(ev)
	case EventTime:
		s.onTime(ev)
	case EventEnded:
		s.onEnded()
	case EventError:
		s.onSourceFailure(ev.Err)
	}
}

func (s *Session) onCanPlay(ev Event) {
	if ev.Duration > 0 {
		s.duration = ev.Duration
	}

	switch {
	case s.ayahMode && s.state == StateLoading:
		// Single-ayah playback starts as soon as the source is ready
		s.startPlayback()
	case s.state == StateWaitingForBuffer && s.duration == 0:
		// Unknown total length: playable is the best signal we get
		s.startPlayback()
	default:
		s.publish()
	}
}

func (s *Session) onProgress(ev Event) {
	s.buffered = ev.Buffered
	if ev.Duration > 0 {
		s.duration = ev.Duration
	}

	if s.state == StateWaitingForBuffer && s.bufferedPercent() >= InitialBufferThreshold {
		// The gate releases exactly once: startPlayback leaves
		// StateWaitingForBuffer, so later progress events fall through
		s.startPlayback()
		return
	}
	s.publish()
}

func (s *Session) startPlayback() {
	if err := s.element.Play(); err != nil {
		// Play rejections take the same fallback path as load errors
		s.onSourceFailure(err)
		return
	}
	s.state = StatePlaying
	s.logger.Info("playback started", "surah", s.surah, "urlIndex", s.urlIndex)
	s.publish()
}

func (s *Session) onTime(ev Event) {
	s.position = ev.Position
	if ev.Duration > 0 {
		s.duration = ev.Duration
	}
	s.publish()
}

func (s *Session) onEnded() {
	// Single-surah sessions only: natural end never auto-advances
	s.state = StateEnded
	s.ayahNumber = 0
	s.ayahMode = false
	s.publish()
}

// onSourceFailure advances the fallback chain. The index only ever moves
// forward; once every candidate has failed the session is terminally
// failed and no further attempts are made.
func (s *Session) onSourceFailure(err error) {
	if s.state == StateIdle || s.state == StateFailed || s.state == StateEnded {
		return
	}

	if s.ayahMode {
		// Single source only, no chain to walk
		s.state = StateFailed
		s.ayahMode = false
		s.lastErr = err
		s.logger.Error("ayah playback failed", "ayah", s.ayahNumber, "error", err)
		s.publish()
		return
	}

	next := s.urlIndex + 1
	if next < len(s.candidates) {
		s.urlIndex = next
		s.position = 0
		s.buffered = 0
		s.logger.Warn("audio source failed, trying next candidate",
			"error", err, "urlIndex", next, "of", len(s.candidates))
		s.elemGen = s.element.Load(s.candidates[next])
		s.state = StateWaitingForBuffer
		s.publish()
		return
	}

	s.state = StateFailed
	s.lastErr = &domain.SourceExhaustedError{
		Surah:    s.surah,
		Reciter:  s.reciterID,
		Attempts: len(s.candidates),
		Last:     err,
	}
	s.logger.Error("all audio sources exhausted",
		"surah", s.surah, "reciter", s.reciterID, "attempts", len(s.candidates))
	s.publish()
}
