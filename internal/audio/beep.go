package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	speakerBufferLen = 200 * time.Millisecond
	fetchChunkSize   = 32 * 1024
	decodeReadyBytes = 64 * 1024
	timeTickInterval = 500 * time.Millisecond

	// Surah archives are served as constant-bitrate 128 kbps mp3, which
	// lets buffered bytes be mapped to buffered seconds before decode.
	assumedBitrateBps = 128_000

	volumeCurveExponent = 0.5
	minVolumeDB         = -8.0
)

// BeepElement is the real Element: it streams an mp3 source over HTTP,
// decodes it with beep, and plays through the system speaker. Download
// and decode overlap, so playback can start while the file is still
// arriving.
type BeepElement struct {
	logger     *slog.Logger
	httpClient *http.Client

	events chan Event
	done   chan struct{}

	mu        sync.Mutex
	gen       int // Load generation; events from superseded sources are dropped
	cancel    context.CancelFunc
	buf       *progressiveBuffer
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	volumeSet float64
	totalSize int64 // Content-Length, 0 when the server omits it
	speakerOn bool
	playing   bool
	tickStop  chan struct{}

	closeOnce sync.Once
}

// NewBeepElement creates an element with its own streaming HTTP client.
func NewBeepElement(logger *slog.Logger) *BeepElement {
	if logger == nil {
		logger = slog.Default()
	}
	return &BeepElement{
		logger: logger,
		httpClient: &http.Client{
			// No overall timeout: surah files are long downloads. Stall
			// detection lives in the dial and header timeouts.
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
			},
		},
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
		volumeSet: 1.0,
	}
}

func (e *BeepElement) Events() <-chan Event { return e.events }

// Load supersedes the current source: the previous download is
// cancelled and its remaining events, stamped with the old generation,
// are discarded by the consumer.
func (e *BeepElement) Load(url string) int {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	if e.cancel != nil {
		e.cancel()
	}
	if e.tickStop != nil {
		close(e.tickStop)
		e.tickStop = nil
	}
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	if e.buf != nil {
		e.buf.Abort()
	}
	if e.speakerOn {
		speaker.Clear()
	}
	e.playing = false
	e.ctrl = nil
	e.volume = nil
	e.totalSize = 0
	buf := newProgressiveBuffer()
	e.buf = buf

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	go e.fetch(ctx, gen, url, buf)
	return gen
}

// fetch downloads the source into buf, reporting progress and readiness.
func (e *BeepElement) fetch(ctx context.Context, gen int, url string, buf *progressiveBuffer) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		e.emit(gen, Event{Kind: EventError, Err: err})
		return
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.emit(gen, Event{Kind: EventError, Err: err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.emit(gen, Event{Kind: EventError, Err: fmt.Errorf("audio source returned status %d", resp.StatusCode)})
		return
	}

	total := resp.ContentLength
	if total > 0 {
		e.mu.Lock()
		if e.gen == gen {
			e.totalSize = total
		}
		e.mu.Unlock()
	}

	e.logger.Debug("audio download started", "url", url, "bytes", total)

	var received int64
	decodeStarted := false
	chunk := make([]byte, fetchChunkSize)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			received += int64(n)

			e.emit(gen, Event{
				Kind:     EventProgress,
				Buffered: bytesToDuration(received),
				Duration: bytesToDuration(total),
			})

			if !decodeStarted && (received >= decodeReadyBytes || readErr == io.EOF) {
				decodeStarted = true
				if err := e.startDecode(gen, buf, total); err != nil {
					e.emit(gen, Event{Kind: EventError, Err: err})
					return
				}
			}
		}
		if readErr == io.EOF {
			buf.Finish()
			if !decodeStarted {
				if err := e.startDecode(gen, buf, total); err != nil {
					e.emit(gen, Event{Kind: EventError, Err: err})
				}
			}
			e.logger.Debug("audio download complete", "url", url, "bytes", received)
			return
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return // Superseded, stay quiet
			}
			buf.Abort()
			e.emit(gen, Event{Kind: EventError, Err: readErr})
			return
		}
	}
}

// startDecode opens the mp3 stream over the partially downloaded buffer
// and announces readiness.
func (e *BeepElement) startDecode(gen int, buf *progressiveBuffer, total int64) error {
	streamer, format, err := mp3.Decode(io.NopCloser(buf.Reader()))
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		streamer.Close()
		return nil
	}
	e.streamer = streamer
	e.format = format
	e.mu.Unlock()

	e.emit(gen, Event{Kind: EventCanPlay, Duration: bytesToDuration(total)})
	return nil
}

// Play starts or resumes output on the speaker.
func (e *BeepElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return fmt.Errorf("audio source not ready")
	}

	if e.ctrl != nil {
		// Resume
		speaker.Lock()
		e.ctrl.Paused = false
		speaker.Unlock()
		e.playing = true
		return nil
	}

	if !e.speakerOn {
		if err := speaker.Init(e.format.SampleRate, e.format.SampleRate.N(speakerBufferLen)); err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		e.speakerOn = true
	}

	gen := e.gen
	e.ctrl = &beep.Ctrl{Streamer: e.streamer}
	e.volume = &effects.Volume{
		Streamer: e.ctrl,
		Base:     2,
		Volume:   gainToExponent(e.volumeSet),
		Silent:   e.volumeSet == 0,
	}

	speaker.Play(beep.Seq(e.volume, beep.Callback(func() {
		e.emit(gen, Event{Kind: EventEnded})
	})))

	e.playing = true
	e.tickStop = make(chan struct{})
	go e.tickTime(gen, e.tickStop)
	return nil
}

func (e *BeepElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.playing = false
}

func (e *BeepElement) SeekTo(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return
	}
	speaker.Lock()
	err := e.streamer.Seek(e.format.SampleRate.N(pos))
	speaker.Unlock()
	if err != nil {
		e.logger.Debug("seek not available for streaming source", "error", err)
	}
}

func (e *BeepElement) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(pos)
}

func (e *BeepElement) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return bytesToDuration(e.totalSize)
}

func (e *BeepElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volumeSet = v
	if e.volume == nil {
		return
	}
	speaker.Lock()
	e.volume.Volume = gainToExponent(v)
	e.volume.Silent = v == 0
	speaker.Unlock()
}

func (e *BeepElement) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		if e.cancel != nil {
			e.cancel()
		}
		if e.tickStop != nil {
			close(e.tickStop)
			e.tickStop = nil
		}
		if e.buf != nil {
			e.buf.Abort()
		}
		if e.streamer != nil {
			e.streamer.Close()
			e.streamer = nil
		}
		if e.speakerOn {
			speaker.Clear()
		}
		e.mu.Unlock()
		close(e.done)
	})
	return nil
}

// tickTime periodically reports the playback position while playing.
func (e *BeepElement) tickTime(gen int, stop chan struct{}) {
	ticker := time.NewTicker(timeTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-e.done:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.gen != gen || e.streamer == nil || !e.playing {
				e.mu.Unlock()
				continue
			}
			format := e.format
			streamer := e.streamer
			total := e.totalSize
			e.mu.Unlock()

			speaker.Lock()
			pos := streamer.Position()
			speaker.Unlock()

			e.emit(gen, Event{
				Kind:     EventTime,
				Position: format.SampleRate.D(pos),
				Duration: bytesToDuration(total),
			})
		}
	}
}

// emit stamps the event with its source's generation and delivers it.
// The consumer is responsible for dropping superseded generations; the
// check here only sheds events that are already known stale.
func (e *BeepElement) emit(gen int, ev Event) {
	ev.Gen = gen
	e.mu.Lock()
	current := e.gen
	e.mu.Unlock()
	if gen != current {
		return
	}
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

// bytesToDuration converts an mp3 byte count to playing time using the
// constant-bitrate assumption. Zero in, zero out.
func bytesToDuration(n int64) time.Duration {
	if n <= 0 {
		return 0
	}
	seconds := float64(n*8) / assumedBitrateBps
	return time.Duration(seconds * float64(time.Second))
}

// gainToExponent maps linear gain in [0, 1] onto the logarithmic volume
// scale beep expects.
func gainToExponent(gain float64) float64 {
	if gain <= 0 {
		return minVolumeDB
	}
	if gain >= 1 {
		return 0
	}
	adjusted := math.Pow(gain, volumeCurveExponent)
	return (1.0 - adjusted) * minVolumeDB
}

// progressiveBuffer is an append-only byte buffer whose readers block
// until the bytes they want have arrived. It lets the mp3 decoder start
// on a file that is still downloading.
type progressiveBuffer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	data    []byte
	done    bool
	aborted bool
}

func newProgressiveBuffer() *progressiveBuffer {
	b := &progressiveBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *progressiveBuffer) Write(p []byte) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Finish marks the download complete; blocked readers drain and see EOF.
func (b *progressiveBuffer) Finish() {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Abort unblocks all readers with an error.
func (b *progressiveBuffer) Abort() {
	b.mu.Lock()
	b.aborted = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Reader returns an independent sequential reader over the buffer.
func (b *progressiveBuffer) Reader() io.Reader {
	return &progressiveReader{buf: b}
}

type progressiveReader struct {
	buf *progressiveBuffer
	off int
}

func (r *progressiveReader) Read(p []byte) (int, error) {
	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	for r.off >= len(b.data) && !b.done && !b.aborted {
		b.cond.Wait()
	}
	if b.aborted {
		return 0, io.ErrClosedPipe
	}
	if r.off >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[r.off:])
	r.off += n
	return n, nil
}
