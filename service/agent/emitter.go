package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"vstep-prep-backend/agui"
	"vstep-prep-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/schema"
)

const (
	// Output buffer size threshold for prefix detection
	prefixBufferMaxKeep = 10

	// Marker the conversational agent puts in front of its final answer
	finalAnswerPrefix = "AI:"
)

// AGUIEmitter is a langchaingo callback handler that renders agent
// activity as AG-UI events over SSE. Reasoning text before the final
// answer marker is swallowed; everything after it streams as
// TEXT_MESSAGE_CONTENT deltas.
type AGUIEmitter struct {
	callbacks.SimpleHandler

	ctx   *gin.Context
	runID string

	mu sync.Mutex

	// Accumulates the learner-visible answer of the turn
	finalAnswer *strings.Builder

	// Buffers chunks so the answer marker is found across chunk boundaries
	prefixBuffer *strings.Builder

	hasFinalAnswer bool

	// Tool calls of the turn, in start order. The last entry without a
	// result receives the next HandleToolEnd.
	calls []*emittedCall
}

type emittedCall struct {
	ID       string
	Name     string
	Args     map[string]any
	Finished bool
}

var _ callbacks.Handler = &AGUIEmitter{}

func NewAGUIEmitter(ctx *gin.Context, runID string) *AGUIEmitter {
	return &AGUIEmitter{
		ctx:          ctx,
		runID:        runID,
		finalAnswer:  &strings.Builder{},
		prefixBuffer: &strings.Builder{},
	}
}

// Begin announces the run before the agent starts producing output.
func (e *AGUIEmitter) Begin() {
	e.send(agui.Event{Type: agui.EventRunStart, RunID: e.runID})
}

func (e *AGUIEmitter) HandleStreamingFunc(ctx context.Context, chunk []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	text := string(chunk)

	if e.hasFinalAnswer {
		e.finalAnswer.WriteString(text)
		e.send(agui.TextDelta(text))
		return
	}

	e.prefixBuffer.WriteString(text)
	bufferStr := e.prefixBuffer.String()

	if idx := strings.Index(bufferStr, finalAnswerPrefix); idx != -1 {
		after := bufferStr[idx+len(finalAnswerPrefix):]
		if len(after) > 0 {
			e.finalAnswer.WriteString(after)
			e.send(agui.TextDelta(after))
		}

		e.prefixBuffer.Reset()
		e.hasFinalAnswer = true
	} else if e.prefixBuffer.Len() > 0 {
		// Keep only the last prefixBufferMaxKeep runes so the buffer
		// stays small while the agent is still reasoning
		runes := []rune(bufferStr)
		if len(runes) > prefixBufferMaxKeep {
			remaining := string(runes[len(runes)-prefixBufferMaxKeep:])
			e.prefixBuffer.Reset()
			e.prefixBuffer.WriteString(remaining)
		}
	}
}

func (e *AGUIEmitter) HandleAgentAction(ctx context.Context, action schema.AgentAction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	call := &emittedCall{
		ID:   uuid.NewString(),
		Name: action.Tool,
		Args: parseToolInput(action.ToolInput),
	}
	e.calls = append(e.calls, call)

	e.send(agui.Event{
		Type:     agui.EventToolCallStart,
		CallID:   call.ID,
		ToolName: call.Name,
		Args:     call.Args,
	})
}

func (e *AGUIEmitter) HandleToolEnd(ctx context.Context, output string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	call := e.openCall()
	if call == nil {
		return
	}
	call.Finished = true

	e.send(agui.Event{
		Type:     agui.EventToolCallResult,
		CallID:   call.ID,
		ToolName: call.Name,
		Success:  true,
		Result:   toRawResult(output),
	})
}

func (e *AGUIEmitter) HandleToolError(ctx context.Context, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	call := e.openCall()
	if call == nil {
		return
	}
	call.Finished = true

	e.send(agui.Event{
		Type:     agui.EventToolCallResult,
		CallID:   call.ID,
		ToolName: call.Name,
		Success:  false,
		Error:    err.Error(),
	})
}

// Finish closes the run. When the agent produced no streamed answer the
// executor's return value is sent as one full-content event; a run whose
// answer lives entirely in tool panels suppresses the transcript text.
func (e *AGUIEmitter) Finish(result string, suppressText bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finalAnswer.Len() == 0 && result != "" {
		e.finalAnswer.WriteString(result)
		e.send(agui.TextFull(result))
	}

	if suppressText {
		e.send(agui.Event{
			Type:  agui.EventStateDelta,
			State: map[string]any{"suppressAssistantText": true},
		})
	}

	e.send(agui.Event{Type: agui.EventRunComplete, RunID: e.runID})
}

func (e *AGUIEmitter) Fail(err error, code string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.send(agui.Event{Type: agui.EventError, Error: err.Error(), Code: code})
	e.send(agui.Event{Type: agui.EventRunComplete, RunID: e.runID})
}

// FinalAnswer returns the learner-visible text accumulated so far.
func (e *AGUIEmitter) FinalAnswer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalAnswer.String()
}

// Calls returns a serializable view of the turn's tool calls.
func (e *AGUIEmitter) Calls() []ToolCallRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	records := make([]ToolCallRecord, 0, len(e.calls))
	for _, call := range e.calls {
		records = append(records, ToolCallRecord{
			ID:   call.ID,
			Name: call.Name,
			Args: call.Args,
		})
	}
	return records
}

type ToolCallRecord struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

func (e *AGUIEmitter) openCall() *emittedCall {
	for i := len(e.calls) - 1; i >= 0; i-- {
		if !e.calls[i].Finished {
			return e.calls[i]
		}
	}
	return nil
}

func (e *AGUIEmitter) send(ev agui.Event) {
	_ = utils.SendSSEData(e.ctx, ev)
}

func parseToolInput(input string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return map[string]any{"input": input}
	}
	return args
}

// toRawResult keeps JSON tool output structured; plain text is quoted
// into a JSON string.
func toRawResult(output string) json.RawMessage {
	trimmed := strings.TrimSpace(output)
	if json.Valid([]byte(trimmed)) && trimmed != "" {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(output)
	return quoted
}
