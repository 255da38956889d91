package speech

// ScriptEngine is a deterministic Engine for tests and headless use. It
// replays a scripted sequence of recognition results when started.
type ScriptEngine struct {
	events Events

	// Script is replayed in order on Start. Entries with Final text append to
	// the transcript; Interim text replaces the interim fragment.
	Script []ScriptResult
	// FailWith, when non-empty, is emitted as an engine error instead of the
	// script (e.g. "not-allowed" for a denied microphone).
	FailWith string

	started bool
}

// ScriptResult is one scripted recognition event.
type ScriptResult struct {
	Final   string
	Interim string
}

// NewScriptEngine creates a scripted engine delivering events to the given
// sink.
func NewScriptEngine(events Events, script ...ScriptResult) *ScriptEngine {
	return &ScriptEngine{events: events, Script: script}
}

// Bind replaces the event sink. Used when the Capture is constructed after
// the engine.
func (e *ScriptEngine) Bind(events Events) {
	e.events = events
}

func (e *ScriptEngine) Start(lang string) error {
	e.started = true
	e.events.HandleStart()
	if e.FailWith != "" {
		e.events.HandleError(e.FailWith)
		e.events.HandleEnd()
		return nil
	}
	for _, r := range e.Script {
		e.events.HandleResult(r.Final, r.Interim)
	}
	return nil
}

func (e *ScriptEngine) Stop() {
	if !e.started {
		return
	}
	e.started = false
	e.events.HandleEnd()
}

func (e *ScriptEngine) Abort() {
	e.started = false
}
