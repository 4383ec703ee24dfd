package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mfarhan/tarteel/internal/domain"
	"github.com/mfarhan/tarteel/internal/log"
)

// fakeElement records calls and lets tests feed events by hand.
type fakeElement struct {
	mu        sync.Mutex
	events    chan Event
	gen       int
	loads     []string
	playCalls int
	playErr   error
	paused    bool
	seeks     []time.Duration
	volume    float64
	dur       time.Duration
}

func newFakeElement() *fakeElement {
	return &fakeElement{events: make(chan Event, 64)}
}

func (f *fakeElement) Load(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.loads = append(f.loads, url)
	return f.gen
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	f.paused = false
	return f.playErr
}

func (f *fakeElement) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

func (f *fakeElement) SeekTo(pos time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, pos)
}

func (f *fakeElement) Position() time.Duration { return 0 }

func (f *fakeElement) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dur
}

func (f *fakeElement) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakeElement) Events() <-chan Event { return f.events }
func (f *fakeElement) Close() error        { return nil }

// emit delivers an event for the current load generation.
func (f *fakeElement) emit(ev Event) {
	f.mu.Lock()
	ev.Gen = f.gen
	f.mu.Unlock()
	f.events <- ev
}

// emitGen delivers an event stamped with an explicit generation, the
// way a slow download goroutine would after its source was replaced.
func (f *fakeElement) emitGen(gen int, ev Event) {
	ev.Gen = gen
	f.events <- ev
}

// fakeTimer captures the sleep-timer callback so tests fire it manually.
type fakeTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return true
}

func (f *fakeTimer) fire() {
	f.mu.Lock()
	fn, stopped := f.fn, f.stopped
	f.mu.Unlock()
	if !stopped && fn != nil {
		fn()
	}
}

func newTestSession(t *testing.T) (*Session, *fakeElement) {
	t.Helper()
	el := newFakeElement()
	s := NewSession(el, log.NullLogger())
	t.Cleanup(func() { s.Close() })
	return s, el
}

// waitSnap polls until the snapshot satisfies cond or the test fails.
func waitSnap(t *testing.T, s *Session, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := s.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; last snapshot: %+v", what, s.Snapshot())
	return Snapshot{}
}

func TestPlaySurah_EntersBufferWait(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(2, "ar.alafasy")

	snap := s.Snapshot()
	if snap.State != StateWaitingForBuffer {
		t.Fatalf("Expected buffering state after PlaySurah, got %v", snap.State)
	}
	if snap.URLIndex != 0 {
		t.Errorf("Expected URL index 0, got %d", snap.URLIndex)
	}
	if len(snap.CandidateURLs) < 2 {
		t.Errorf("Expected resolved candidates, got %v", snap.CandidateURLs)
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if len(el.loads) != 1 || el.loads[0] != snap.CandidateURLs[0] {
		t.Errorf("Expected first candidate loaded, got %v", el.loads)
	}
}

func TestBufferGate_ReleasesOnceAtThreshold(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(2, "ar.alafasy")

	total := 10 * time.Minute
	el.emit(Event{Kind: EventProgress, Buffered: 1 * time.Minute, Duration: total})

	snap := waitSnap(t, s, "10% progress applied", func(sn Snapshot) bool { return sn.BufferedPercent > 9 })
	if snap.State != StateWaitingForBuffer {
		t.Fatalf("Gate must hold below threshold, got state %v", snap.State)
	}

	// Exactly 25% releases the gate
	el.emit(Event{Kind: EventProgress, Buffered: total / 4, Duration: total})
	waitSnap(t, s, "playback start", func(sn Snapshot) bool { return sn.State == StatePlaying })

	// A later progress event must not trigger a second play
	el.emit(Event{Kind: EventProgress, Buffered: total * 3 / 10, Duration: total})
	waitSnap(t, s, "30% progress applied", func(sn Snapshot) bool { return sn.BufferedPercent >= 30 })

	el.mu.Lock()
	defer el.mu.Unlock()
	if el.playCalls != 1 {
		t.Errorf("Gate must release exactly once, Play called %d times", el.playCalls)
	}
}

func TestBufferGate_UnknownDurationPlaysOnCanPlay(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(18, "ar.nobody")
	el.emit(Event{Kind: EventCanPlay})

	waitSnap(t, s, "playback start", func(sn Snapshot) bool { return sn.State == StatePlaying })
}

func TestFallback_IndexMonotonicUntilExhaustion(t *testing.T) {
	s, el := newTestSession(t)

	// ar.alafasy resolves to 3 candidates
	s.PlaySurah(2, "ar.alafasy")
	candidates := s.Snapshot().CandidateURLs
	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(candidates))
	}

	el.emit(Event{Kind: EventError, Err: errors.New("dns failure")})
	waitSnap(t, s, "advance to candidate 2", func(sn Snapshot) bool { return sn.URLIndex == 1 })

	el.emit(Event{Kind: EventError, Err: errors.New("http 503")})
	snap := waitSnap(t, s, "advance to candidate 3", func(sn Snapshot) bool { return sn.URLIndex == 2 })
	if snap.State != StateWaitingForBuffer {
		t.Errorf("Retry must re-enter buffering, got %v", snap.State)
	}

	el.emit(Event{Kind: EventError, Err: errors.New("decode failure")})
	snap = waitSnap(t, s, "terminal failure", func(sn Snapshot) bool { return sn.State == StateFailed })

	if snap.IsPlaying() {
		t.Error("Terminal failure must clear playing")
	}
	var exhausted *domain.SourceExhaustedError
	if !errors.As(snap.Err, &exhausted) {
		t.Fatalf("Expected SourceExhaustedError, got %v", snap.Err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Expected 3 attempts recorded, got %d", exhausted.Attempts)
	}

	// No wraparound: another error must not reload anything
	el.emit(Event{Kind: EventError, Err: errors.New("again")})
	time.Sleep(20 * time.Millisecond)
	el.mu.Lock()
	loads := len(el.loads)
	el.mu.Unlock()
	if loads != 3 {
		t.Errorf("Expected exactly 3 loads, got %d", loads)
	}
}

func TestFallback_PlayRejectionTakesSamePath(t *testing.T) {
	s, el := newTestSession(t)

	el.mu.Lock()
	el.playErr = errors.New("not allowed")
	el.mu.Unlock()

	s.PlaySurah(2, "ar.nobody") // Single generic candidate
	el.emit(Event{Kind: EventCanPlay})

	snap := waitSnap(t, s, "terminal failure", func(sn Snapshot) bool { return sn.State == StateFailed })
	if snap.IsPlaying() {
		t.Error("Play rejection with no further candidates must end failed")
	}
}

func TestPlaySurah_SupersedesPreviousSession(t *testing.T) {
	s, _ := newTestSession(t)

	s.PlaySurah(2, "ar.alafasy")
	first := s.Snapshot().SessionID

	s.PlaySurah(3, "ar.alafasy")
	snap := s.Snapshot()

	if snap.SessionID == first {
		t.Error("New surah must mint a new session id")
	}
	if snap.URLIndex != 0 {
		t.Errorf("Candidate index must reset, got %d", snap.URLIndex)
	}
	if snap.Surah != 3 {
		t.Errorf("Expected surah 3 active, got %d", snap.Surah)
	}
}

func TestStaleEventAfterNewSurahIsIgnored(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(2, "ar.alafasy")
	el.mu.Lock()
	oldGen := el.gen
	el.mu.Unlock()

	s.PlaySurah(3, "ar.alafasy")

	// A failure from the first surah's download arriving late must not
	// touch the new session
	el.emitGen(oldGen, Event{Kind: EventError, Err: errors.New("old source died")})
	time.Sleep(20 * time.Millisecond)

	snap := s.Snapshot()
	if snap.URLIndex != 0 {
		t.Errorf("Stale failure must not advance the candidate index, got %d", snap.URLIndex)
	}
	if snap.State != StateWaitingForBuffer {
		t.Errorf("Stale failure must not change state, got %v", snap.State)
	}

	// A stale progress report must not release the buffer gate either
	total := time.Minute
	el.emitGen(oldGen, Event{Kind: EventProgress, Buffered: total, Duration: total})
	time.Sleep(20 * time.Millisecond)
	if got := s.Snapshot().State; got != StateWaitingForBuffer {
		t.Errorf("Stale progress must not start playback, got %v", got)
	}

	// Events for the live source still work
	el.emit(Event{Kind: EventProgress, Buffered: total, Duration: total})
	waitSnap(t, s, "playback start", func(sn Snapshot) bool { return sn.State == StatePlaying })
}

func TestSkip_ClampsIntoMediaRange(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(2, "ar.alafasy")
	total := 5 * time.Minute
	el.emit(Event{Kind: EventProgress, Buffered: total, Duration: total})
	waitSnap(t, s, "playback start", func(sn Snapshot) bool { return sn.State == StatePlaying })

	s.Skip(-30 * time.Second)
	if pos := s.Snapshot().Position; pos != 0 {
		t.Errorf("Backward skip from start must clamp to 0, got %v", pos)
	}

	s.SeekTo(4 * time.Minute)
	s.Skip(2 * time.Minute)
	if pos := s.Snapshot().Position; pos != total {
		t.Errorf("Forward skip past end must clamp to duration, got %v", pos)
	}
}

func TestSleepTimer_PausesOnceAndClears(t *testing.T) {
	s, el := newTestSession(t)

	var timers []*fakeTimer
	var timersMu sync.Mutex
	s.newTimer = func(d time.Duration, fn func()) stopper {
		ft := &fakeTimer{fn: fn}
		timersMu.Lock()
		timers = append(timers, ft)
		timersMu.Unlock()
		return ft
	}

	s.PlaySurah(2, "ar.alafasy")
	total := time.Minute
	el.emit(Event{Kind: EventProgress, Buffered: total, Duration: total})
	waitSnap(t, s, "playback start", func(sn Snapshot) bool { return sn.State == StatePlaying })

	s.SetSleepTimer(1 * time.Minute)
	if s.Snapshot().SleepDeadline.IsZero() {
		t.Fatal("Deadline must be armed")
	}

	timersMu.Lock()
	first := timers[0]
	timersMu.Unlock()
	first.fire()

	snap := waitSnap(t, s, "sleep pause", func(sn Snapshot) bool { return sn.State == StatePaused })
	if !snap.SleepDeadline.IsZero() {
		t.Error("Expired timer must clear the deadline")
	}
}

func TestSleepTimer_RearmReplacesDeadline(t *testing.T) {
	s, _ := newTestSession(t)

	var timers []*fakeTimer
	var timersMu sync.Mutex
	s.newTimer = func(d time.Duration, fn func()) stopper {
		ft := &fakeTimer{fn: fn}
		timersMu.Lock()
		timers = append(timers, ft)
		timersMu.Unlock()
		return ft
	}

	s.SetSleepTimer(10 * time.Minute)
	s.SetSleepTimer(20 * time.Minute)

	timersMu.Lock()
	defer timersMu.Unlock()
	if len(timers) != 2 {
		t.Fatalf("Expected 2 timers created, got %d", len(timers))
	}
	if !timers[0].stopped {
		t.Error("Re-arming must stop the previous timer")
	}
	if timers[1].stopped {
		t.Error("Replacement timer must stay armed")
	}
}

func TestSleepTimer_CancelKeepsPlayback(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(2, "ar.alafasy")
	total := time.Minute
	el.emit(Event{Kind: EventProgress, Buffered: total, Duration: total})
	waitSnap(t, s, "playback start", func(sn Snapshot) bool { return sn.State == StatePlaying })

	s.SetSleepTimer(5 * time.Minute)
	s.CancelSleepTimer()

	snap := s.Snapshot()
	if !snap.SleepDeadline.IsZero() {
		t.Error("Cancel must clear the deadline")
	}
	if snap.State != StatePlaying {
		t.Errorf("Cancel must not affect playback, got %v", snap.State)
	}
}

func TestPlayAyah_SkipsGateAndKeepsSurah(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(2, "ar.alafasy")
	s.SetAyahSources(map[int]string{255: "https://cdn.islamic.network/quran/audio/128/ar.alafasy/262.mp3"})

	if err := s.PlayAyah(255); err != nil {
		t.Fatalf("PlayAyah failed: %v", err)
	}
	el.emit(Event{Kind: EventCanPlay})

	snap := waitSnap(t, s, "ayah playback", func(sn Snapshot) bool { return sn.State == StatePlaying })
	if snap.AyahNumber != 255 {
		t.Errorf("Expected ayah 255 active, got %d", snap.AyahNumber)
	}
	if snap.Surah != 2 {
		t.Errorf("PlayAyah must not change the active surah, got %d", snap.Surah)
	}
}

func TestPlayAyah_UnknownAyahFails(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.PlayAyah(99); !errors.Is(err, domain.ErrNoAyahAudio) {
		t.Fatalf("PlayAyah with no source map must report missing audio, got %v", err)
	}
}

func TestEnded_ClearsAyahWithoutAutoAdvance(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(114, "ar.alafasy")
	total := time.Minute
	el.emit(Event{Kind: EventProgress, Buffered: total, Duration: total})
	waitSnap(t, s, "playback start", func(sn Snapshot) bool { return sn.State == StatePlaying })

	el.emit(Event{Kind: EventEnded})
	snap := waitSnap(t, s, "ended", func(sn Snapshot) bool { return sn.State == StateEnded })

	if snap.AyahNumber != 0 {
		t.Errorf("End of media must clear the ayah number, got %d", snap.AyahNumber)
	}
	el.mu.Lock()
	loads := len(el.loads)
	el.mu.Unlock()
	if loads != 1 {
		t.Errorf("No auto-advance: expected 1 load, got %d", loads)
	}
}

func TestSubscribers_SeeSameOrderedSequence(t *testing.T) {
	s, el := newTestSession(t)

	var mu sync.Mutex
	var seqA, seqB []State
	s.Subscribe(func(sn Snapshot) {
		mu.Lock()
		seqA = append(seqA, sn.State)
		mu.Unlock()
	})
	s.Subscribe(func(sn Snapshot) {
		mu.Lock()
		seqB = append(seqB, sn.State)
		mu.Unlock()
	})

	s.PlaySurah(2, "ar.alafasy")
	total := time.Minute
	el.emit(Event{Kind: EventProgress, Buffered: total, Duration: total})
	waitSnap(t, s, "playback start", func(sn Snapshot) bool { return sn.State == StatePlaying })
	s.TogglePlay()

	mu.Lock()
	defer mu.Unlock()
	if len(seqA) != len(seqB) {
		t.Fatalf("Observers diverged: %d vs %d snapshots", len(seqA), len(seqB))
	}
	for i := range seqA {
		if seqA[i] != seqB[i] {
			t.Fatalf("Observers saw different order at %d: %v vs %v", i, seqA, seqB)
		}
	}
	last := seqA[len(seqA)-1]
	if last != StatePaused {
		t.Errorf("Expected final observed state paused, got %v", last)
	}
}

func TestTogglePlay_NoopWhileBuffering(t *testing.T) {
	s, el := newTestSession(t)

	s.PlaySurah(2, "ar.alafasy")
	s.TogglePlay()

	if snap := s.Snapshot(); snap.State != StateWaitingForBuffer {
		t.Errorf("Toggle during buffering must be a no-op, got %v", snap.State)
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.playCalls != 0 {
		t.Errorf("Toggle during buffering must not call Play, got %d calls", el.playCalls)
	}
}
