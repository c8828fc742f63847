package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"vstep-prep-backend/agui"
)

// ErrUnauthorized reports a 401 from the chat endpoint. The stored
// credential has already been cleared when this is returned.
var ErrUnauthorized = errors.New("assistant session unauthorized")

var errStreamStalled = errors.New("stream stalled")

const streamRecordSeparator = "\n\n"

type Options struct {
	HTTPClient       *http.Client
	Logger           *slog.Logger
	MaxMessages      int
	ContextDetection bool

	// Zero disables the stalled-stream watchdog.
	IdleTimeout time.Duration

	// Called on a 401 so the host can redirect to login.
	OnUnauthorized func()

	// Called once per tool call reaching a terminal state, with a copy
	// of the call. Hosts feed this into an AutoOpenTracker.
	OnToolComplete func(ToolCall)
}

// Orchestrator owns one conversation: it appends the user/assistant
// turn messages, opens the HTTP stream against the agent endpoint,
// parses SSE records and dispatches the events to the reducer. At most
// one request is in flight; a newer SendMessage aborts the previous one.
type Orchestrator struct {
	endpoint    string
	client      *http.Client
	session     *Session
	detector    *ContextDetector
	logger      *slog.Logger
	idleTimeout time.Duration
	maxMessages int

	onUnauthorized func()
	onToolComplete func(ToolCall)

	mu      sync.Mutex
	state   *ChatState
	reducer *Reducer
	cancel  context.CancelCauseFunc
	seq     int
}

func NewOrchestrator(endpoint string, session *Session, opts Options) *Orchestrator {
	client := opts.HTTPClient
	if client == nil {
		// Streaming runs may outlive any sane request timeout, so the
		// stream client has none; the idle watchdog covers stalls.
		client = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := NewChatState(opts.MaxMessages)
	return &Orchestrator{
		endpoint:       endpoint,
		client:         client,
		session:        session,
		detector:       NewContextDetector(opts.ContextDetection),
		logger:         logger,
		idleTimeout:    opts.IdleTimeout,
		maxMessages:    opts.MaxMessages,
		onUnauthorized: opts.OnUnauthorized,
		onToolComplete: opts.OnToolComplete,
		state:          state,
		reducer:        NewReducer(state, logger),
	}
}

type wireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Prompt      string         `json:"prompt"`
	Context     Topic          `json:"context"`
	Preferences map[string]any `json:"preferences,omitempty"`
	Messages    []wireMessage  `json:"messages"`
}

// SendMessage runs one turn to completion. Empty input after trimming is
// a no-op. A call made while another turn is streaming aborts that turn
// first; its partial state is left as-is.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel(context.Canceled)
	}
	o.seq++
	seq := o.seq

	topic := o.detector.Detect(text)
	o.state.CurrentContext = topic
	o.state.Err = ""

	msgType := MessageText
	if topic == TopicQuizHelp {
		msgType = MessageQuizHelp
	}
	o.state.Append(&ChatMessage{
		ID:        newMessageID(),
		Role:      RoleUser,
		Content:   text,
		Type:      msgType,
		Timestamp: time.Now(),
	})

	placeholder := &ChatMessage{
		ID:        newMessageID(),
		Role:      RoleAssistant,
		Content:   PlaceholderContent,
		Type:      MessageText,
		Timestamp: time.Now(),
		ToolCalls: []*ToolCall{},
	}
	o.state.Append(placeholder)
	o.state.IsStreaming = true

	body := o.buildRequestLocked(text, topic, placeholder.ID)

	runCtx, cancel := context.WithCancelCause(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	return o.stream(runCtx, cancel, seq, placeholder.ID, body)
}

// CancelStream aborts the in-flight request, if any. Cancellation is not
// an error: state.Err stays untouched and the partial content stands.
func (o *Orchestrator) CancelStream() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel(context.Canceled)
		o.cancel = nil
	}
	o.state.IsStreaming = false
}

// ClearConversation resets the chat state to a fresh welcome message.
func (o *Orchestrator) ClearConversation() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel(context.Canceled)
		o.cancel = nil
	}
	o.seq++
	o.state = NewChatState(o.maxMessages)
	o.reducer = NewReducer(o.state, o.logger)
}

// transcript-so-far, with hidden messages relabeled as system turns and
// the fresh placeholder excluded.
func (o *Orchestrator) buildRequestLocked(prompt string, topic Topic, placeholderID string) chatRequest {
	msgs := make([]wireMessage, 0, len(o.state.Messages))
	for _, m := range o.state.Messages {
		if m.ID == placeholderID {
			continue
		}
		role := m.Role
		if m.Hidden {
			role = RoleSystem
		}
		msgs = append(msgs, wireMessage{Role: role, Content: m.Content})
	}

	return chatRequest{
		Prompt:      prompt,
		Context:     topic,
		Preferences: o.session.Preferences(),
		Messages:    msgs,
	}
}

func (o *Orchestrator) stream(runCtx context.Context, cancel context.CancelCauseFunc, seq int, msgID string, body chatRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		o.failStream(seq, msgID, err.Error())
		return fmt.Errorf("failed to marshal chat request: %v", err)
	}

	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		o.failStream(seq, msgID, err.Error())
		return fmt.Errorf("failed to build chat request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if token := o.session.Credential(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		if o.aborted(runCtx) {
			return nil
		}
		o.failStream(seq, msgID, err.Error())
		return fmt.Errorf("chat request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Fatal to the session, not to the conversation: no in-chat
		// error message, the host redirects to login instead.
		o.session.ClearCredential()
		o.finishStreaming(seq)
		if o.onUnauthorized != nil {
			o.onUnauthorized()
		}
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("chat endpoint returned %d", resp.StatusCode)
		o.failStream(seq, msgID, msg)
		return errors.New(msg)
	}

	var watchdog *time.Timer
	if o.idleTimeout > 0 {
		watchdog = time.AfterFunc(o.idleTimeout, func() {
			cancel(errStreamStalled)
		})
		defer watchdog.Stop()
	}

	// Incremental SSE decode: split the byte stream on blank-line
	// record separators, keeping the trailing partial record.
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if watchdog != nil {
				watchdog.Reset(o.idleTimeout)
			}
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.Index(pending, []byte(streamRecordSeparator))
				if idx < 0 {
					break
				}
				record := pending[:idx]
				pending = pending[idx+len(streamRecordSeparator):]
				o.handleRecord(seq, msgID, record)
			}
		}

		if readErr == nil {
			continue
		}
		if readErr == io.EOF {
			o.finishStreaming(seq)
			return nil
		}
		if cause := context.Cause(runCtx); cause == errStreamStalled {
			o.failStream(seq, msgID, "stream stalled")
			return errStreamStalled
		}
		if o.aborted(runCtx) {
			return nil
		}
		o.failStream(seq, msgID, readErr.Error())
		return fmt.Errorf("chat stream read failed: %v", readErr)
	}
}

// handleRecord parses one SSE record and applies it. Records without the
// data prefix are ignored; malformed JSON is logged and skipped so the
// stream keeps going.
func (o *Orchestrator) handleRecord(seq int, msgID string, record []byte) {
	record = bytes.Trim(record, "\r\n")
	data, ok := bytes.CutPrefix(record, []byte("data: "))
	if !ok {
		return
	}

	ev, err := agui.ParseEvent(data)
	if err != nil {
		o.logger.Warn("skipping malformed stream record", "err", err)
		return
	}

	o.mu.Lock()
	if seq != o.seq {
		// Superseded by a newer SendMessage.
		o.mu.Unlock()
		return
	}
	o.reducer.Apply(ev, msgID)
	completed := o.reducer.TakeCompleted()
	o.mu.Unlock()

	if o.onToolComplete != nil {
		for _, call := range completed {
			o.onToolComplete(call)
		}
	}
}

// aborted distinguishes user/supersede cancellation from genuine
// failure: an aborted run ends silently.
func (o *Orchestrator) aborted(runCtx context.Context) bool {
	return runCtx.Err() != nil && context.Cause(runCtx) != errStreamStalled
}

func (o *Orchestrator) finishStreaming(seq int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.seq {
		return
	}
	o.state.IsStreaming = false
	o.cancel = nil
}

func (o *Orchestrator) failStream(seq int, msgID, errMsg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.seq {
		return
	}
	o.state.Err = errMsg
	if msg := o.state.MessageByID(msgID); msg != nil {
		msg.Content = RetryContent
		msg.Type = MessageError
	}
	o.state.IsStreaming = false
	o.cancel = nil
}

// StateSnapshot is a render-safe copy of the conversation state.
type StateSnapshot struct {
	Messages       []*ChatMessage `json:"messages"`
	IsStreaming    bool           `json:"is_streaming"`
	CurrentContext Topic          `json:"current_context"`
	SharedState    map[string]any `json:"shared_state,omitempty"`
	Err            string         `json:"error,omitempty"`
}

// Snapshot deep-copies the message list so hosts can render without
// holding the orchestrator lock. Tool-call results share their raw
// bytes; everything else is copied.
func (o *Orchestrator) Snapshot() StateSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := make([]*ChatMessage, 0, len(o.state.Messages))
	for _, m := range o.state.Messages {
		mc := *m
		if m.ToolCalls != nil {
			mc.ToolCalls = make([]*ToolCall, 0, len(m.ToolCalls))
			for _, call := range m.ToolCalls {
				cc := *call
				mc.ToolCalls = append(mc.ToolCalls, &cc)
			}
		}
		msgs = append(msgs, &mc)
	}

	shared := make(map[string]any, len(o.state.SharedState))
	for k, v := range o.state.SharedState {
		shared[k] = v
	}

	return StateSnapshot{
		Messages:       msgs,
		IsStreaming:    o.state.IsStreaming,
		CurrentContext: o.state.CurrentContext,
		SharedState:    shared,
		Err:            o.state.Err,
	}
}
