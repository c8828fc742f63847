package assistant

import (
	"log/slog"
	"strings"
	"time"

	"vstep-prep-backend/agui"
)

// Reducer applies one agent event at a time to chat state. It must never
// panic on malformed or unknown events: those are logged and skipped so
// the stream keeps flowing.
type Reducer struct {
	state  *ChatState
	logger *slog.Logger

	// Per-run text accumulator; delta chunks are concatenated in
	// arrival order.
	acc map[string]*strings.Builder

	// Correlation store: call id -> handle into the owning message's
	// tool-call list. Scoped to one run, cleared at the terminal event.
	calls map[string]*ToolCall

	runID string

	// Calls that reached a terminal state since the last TakeCompleted,
	// copied for the auto-open host.
	completed []ToolCall
}

func NewReducer(state *ChatState, logger *slog.Logger) *Reducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{
		state:  state,
		logger: logger,
		acc:    make(map[string]*strings.Builder),
		calls:  make(map[string]*ToolCall),
	}
}

// Apply performs one state transition. activeID names the assistant
// placeholder message of the current turn.
func (r *Reducer) Apply(ev agui.Event, activeID string) {
	switch ev.Type {
	case agui.EventRunStart:
		r.applyRunStart(ev)
	case agui.EventTextMessageContent:
		r.applyText(ev, activeID)
	case agui.EventToolCallStart:
		r.applyToolStart(ev, activeID)
	case agui.EventToolCallResult:
		r.applyToolResult(ev)
	case agui.EventStateDelta:
		r.applyStateDelta(ev)
	case agui.EventRunComplete:
		r.applyRunComplete(ev, activeID)
	case agui.EventError:
		r.applyError(ev, activeID)
	default:
		r.logger.Warn("skipping unknown event type", "type", ev.Type)
	}
}

// TakeCompleted drains the terminal-transition queue.
func (r *Reducer) TakeCompleted() []ToolCall {
	done := r.completed
	r.completed = nil
	return done
}

func (r *Reducer) applyRunStart(ev agui.Event) {
	r.runID = ev.RunID
	r.state.SharedState["runId"] = ev.RunID
}

func (r *Reducer) applyText(ev agui.Event, activeID string) {
	msg := r.state.MessageByID(activeID)
	if msg == nil {
		r.logger.Warn("text event for unknown message", "message_id", activeID)
		return
	}

	b := r.acc[r.runID]
	if b == nil {
		b = &strings.Builder{}
		r.acc[r.runID] = b
	}

	if ev.Delta {
		if ev.Content != nil {
			b.WriteString(*ev.Content)
		}
		msg.Content = b.String()
		return
	}

	// A full payload always wins over whatever was accumulated.
	full := b.String()
	if ev.Content != nil {
		full = *ev.Content
	}
	b.Reset()
	b.WriteString(full)
	msg.Content = full
}

func (r *Reducer) applyToolStart(ev agui.Event, activeID string) {
	msg := r.state.MessageByID(activeID)
	if msg == nil {
		r.logger.Warn("tool call start for unknown message", "message_id", activeID)
		return
	}

	if existing, ok := r.calls[ev.CallID]; ok && !existing.Terminal() {
		// Call ids must be unique among pending calls; upstream behavior
		// on reuse is unspecified, so keep last-writer-wins and say so.
		r.logger.Warn("tool call id reused while pending", "call_id", ev.CallID)
	}

	call := &ToolCall{
		ID:        ev.CallID,
		Name:      ev.ToolName,
		Args:      ev.Args,
		Status:    ToolPending,
		StartTime: time.Now(),
	}
	r.calls[ev.CallID] = call
	msg.ToolCalls = append(msg.ToolCalls, call)
}

func (r *Reducer) applyToolResult(ev agui.Event) {
	call, ok := r.calls[ev.CallID]
	if !ok {
		r.logger.Warn("tool result for unknown call", "call_id", ev.CallID)
		return
	}
	if call.Terminal() {
		// Duplicate terminal events are ignored rather than re-applied.
		r.logger.Warn("duplicate tool result ignored", "call_id", ev.CallID)
		return
	}

	call.EndTime = time.Now()
	if ev.Success {
		call.Status = ToolComplete
		call.Result = ev.Result
		r.synthesizeContext(call)
	} else {
		call.Status = ToolError
		call.Error = ev.Error
		if call.Error == "" {
			call.Error = "tool call failed"
		}
	}

	r.completed = append(r.completed, *call)
}

func (r *Reducer) applyStateDelta(ev agui.Event) {
	for k, v := range ev.State {
		r.state.SharedState[k] = v
	}
}

func (r *Reducer) applyRunComplete(ev agui.Event, activeID string) {
	r.state.IsStreaming = false

	if msg := r.state.MessageByID(activeID); msg != nil {
		switch {
		case r.state.SuppressAssistantText():
			msg.Content = ""
		case msg.Content == PlaceholderContent:
			msg.Content = FallbackPanelContent
		}
	}

	delete(r.acc, r.runID)
	r.calls = make(map[string]*ToolCall)
}

func (r *Reducer) applyError(ev agui.Event, activeID string) {
	r.state.Err = ev.Error

	// The server may still follow up with RUN_COMPLETE, so streaming
	// state is left alone here.
	if msg := r.state.MessageByID(activeID); msg != nil {
		if msg.Content == "" || msg.Content == PlaceholderContent {
			msg.Content = errorContentPrefix + ev.Error
		}
		msg.Type = MessageError
	}
}
