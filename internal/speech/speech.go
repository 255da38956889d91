// Package speech wraps a continuous speech-to-text capability behind a small
// event-driven interface. The underlying engine may be absent entirely; in
// that case every capture operation is a no-op and the rest of the system
// stays usable through manual text entry.
package speech

import (
	"fmt"
	"sync"
)

// CaptureStatus is the strict subset of the global status enum that capture
// itself can occupy.
type CaptureStatus string

const (
	StatusIdle       CaptureStatus = "idle"
	StatusListening  CaptureStatus = "listening"
	StatusProcessing CaptureStatus = "processing"
	StatusError      CaptureStatus = "error"
)

// Engine is the raw speech-to-text capability. Implementations push
// recognition events back into the Capture through the Events interface they
// are constructed with.
type Engine interface {
	// Start begins continuous recognition in the given language tag.
	Start(lang string) error
	// Stop ends recognition; the engine should emit an end event.
	Stop()
	// Abort tears recognition down without emitting further results.
	Abort()
}

// Events receives recognition callbacks from an Engine.
type Events interface {
	HandleStart()
	HandleResult(final, interim string)
	HandleError(msg string)
	HandleEnd()
}

// Capture accumulates transcripts from an Engine. It owns the growing final
// transcript, the transient interim fragment, and the capture status.
type Capture struct {
	mu         sync.Mutex
	engine     Engine
	status     CaptureStatus
	transcript string
	interim    string
	errText    string

	// OnFinal is invoked with the accumulated final transcript when capture
	// stops with non-empty text. Set before Start.
	OnFinal func(text string)
}

// NewCapture wraps the given engine. A nil engine means the capability is
// unavailable; Supported reports false and all operations are no-ops.
func NewCapture(engine Engine) *Capture {
	return &Capture{engine: engine, status: StatusIdle}
}

// Supported reports whether a speech engine is available.
func (c *Capture) Supported() bool {
	return c.engine != nil
}

// Status returns the current capture status.
func (c *Capture) Status() CaptureStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Transcript returns the accumulated final text.
func (c *Capture) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// Interim returns the currently-uttered-but-unconfirmed fragment.
func (c *Capture) Interim() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}

// Err returns the last capture error message, empty when none.
func (c *Capture) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errText
}

// Start clears both accumulators and begins listening. It is a no-op when the
// engine is unavailable or capture is not idle.
func (c *Capture) Start(lang string) error {
	c.mu.Lock()
	if c.engine == nil || c.status != StatusIdle {
		c.mu.Unlock()
		return nil
	}
	c.transcript = ""
	c.interim = ""
	c.errText = ""
	c.mu.Unlock()

	if err := c.engine.Start(lang); err != nil {
		c.mu.Lock()
		c.errText = fmt.Sprintf("capture error: %v", err)
		c.status = StatusError
		c.mu.Unlock()
		return err
	}
	return nil
}

// Stop ends capture. Status moves to processing the instant capture stops,
// before any downstream result is known, and the accumulated final text is
// handed to OnFinal.
func (c *Capture) Stop() {
	c.mu.Lock()
	if c.engine == nil || c.status != StatusListening {
		c.mu.Unlock()
		return
	}
	c.status = StatusProcessing
	text := c.transcript
	onFinal := c.OnFinal
	c.mu.Unlock()

	c.engine.Stop()
	if onFinal != nil && text != "" {
		onFinal(text)
	}
}

// Reset clears both accumulators and returns capture to idle without touching
// any other component.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine != nil && c.status == StatusListening {
		c.engine.Abort()
	}
	c.transcript = ""
	c.interim = ""
	c.errText = ""
	c.status = StatusIdle
}

// HandleStart marks capture as listening.
func (c *Capture) HandleStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusListening
	c.errText = ""
}

// HandleResult appends finalized text to the transcript and replaces the
// interim fragment.
func (c *Capture) HandleResult(final, interim string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if final != "" {
		c.transcript += final
	}
	c.interim = interim
}

// HandleError records an engine failure as text, never a panic, and parks
// capture in the error state.
func (c *Capture) HandleError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errText = "capture error: " + msg
	c.status = StatusError
}

// HandleEnd clears the interim fragment and, when the engine stopped on its
// own while listening, returns capture to idle.
func (c *Capture) HandleEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interim = ""
	if c.status == StatusListening {
		c.status = StatusIdle
	}
}
