package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vstep-prep-backend/agui"
)

func writeSSE(w http.ResponseWriter, ev agui.Event) {
	payload, _ := json.Marshal(ev)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOrchestratorFullTurn(t *testing.T) {
	historyResult := `{"data":[{"attemptId":5,"quizType":"READING","totalScore":7.0}],"pagination":{"total":1}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, agui.Event{Type: agui.EventRunStart, RunID: "run-1"})
		writeSSE(w, agui.Event{Type: agui.EventToolCallStart, CallID: "call-1", ToolName: "get_quiz_history"})
		writeSSE(w, agui.Event{Type: agui.EventToolCallResult, CallID: "call-1", Success: true, Result: json.RawMessage(historyResult)})
		writeSSE(w, agui.TextDelta("Bạn đã làm "))
		writeSSE(w, agui.TextDelta("1 bài thi."))
		writeSSE(w, agui.Event{Type: agui.EventRunComplete, RunID: "run-1"})
	}))
	defer srv.Close()

	var mu sync.Mutex
	var completed []ToolCall
	o := NewOrchestrator(srv.URL, NewSession("token-123", nil), Options{
		Logger: quietLogger(),
		OnToolComplete: func(call ToolCall) {
			mu.Lock()
			completed = append(completed, call)
			mu.Unlock()
		},
	})

	err := o.SendMessage(context.Background(), "Tôi đã làm những bài nào?")
	require.NoError(t, err)

	snap := o.Snapshot()
	assert.False(t, snap.IsStreaming)
	assert.Empty(t, snap.Err)
	assert.Equal(t, "run-1", snap.SharedState["runId"])

	var user, reply, hidden *ChatMessage
	for _, m := range snap.Messages {
		switch {
		case m.Role == RoleUser:
			user = m
		case m.Hidden:
			hidden = m
		case m.Role == RoleAssistant && m.ID != welcomeMessageID:
			reply = m
		}
	}
	require.NotNil(t, user)
	require.NotNil(t, reply)
	require.NotNil(t, hidden)

	assert.Equal(t, "Bạn đã làm 1 bài thi.", reply.Content)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, ToolComplete, reply.ToolCalls[0].Status)

	assert.Contains(t, hidden.Content, "Học viên có 1 bài thi đã làm.")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, completed, 1)
	assert.Equal(t, "call-1", completed[0].ID)
}

func TestOrchestratorTranscriptRoles(t *testing.T) {
	var mu sync.Mutex
	var captured []chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		turn := len(captured)
		captured = append(captured, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, agui.Event{Type: agui.EventRunStart, RunID: fmt.Sprintf("run-%d", turn+1)})
		if turn == 0 {
			writeSSE(w, agui.Event{Type: agui.EventToolCallStart, CallID: "call-1", ToolName: "get_quiz_history"})
			writeSSE(w, agui.Event{Type: agui.EventToolCallResult, CallID: "call-1", Success: true,
				Result: json.RawMessage(`{"data":[],"pagination":{"total":0}}`)})
		}
		writeSSE(w, agui.TextFull("Đã rõ."))
		writeSSE(w, agui.Event{Type: agui.EventRunComplete})
	}))
	defer srv.Close()

	o := NewOrchestrator(srv.URL, NewSession("token", nil), Options{Logger: quietLogger()})
	require.NoError(t, o.SendMessage(context.Background(), "Lịch sử của tôi?"))
	require.NoError(t, o.SendMessage(context.Background(), "Cảm ơn"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, captured, 2)

	second := captured[1]
	assert.Equal(t, "Cảm ơn", second.Prompt)

	var roles []Role
	for _, m := range second.Messages {
		roles = append(roles, m.Role)
		assert.NotEqual(t, PlaceholderContent, m.Content, "placeholder never goes on the wire")
	}
	// welcome, first user turn, first reply, synthesized context as a
	// system turn, then the new user message.
	assert.Equal(t, []Role{RoleAssistant, RoleUser, RoleAssistant, RoleSystem, RoleUser}, roles)
	assert.Contains(t, second.Messages[3].Content, historyContextPrefix)
}

func TestOrchestratorUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	session := NewSession("stale-token", nil)
	var redirected bool
	o := NewOrchestrator(srv.URL, session, Options{
		Logger:         quietLogger(),
		OnUnauthorized: func() { redirected = true },
	})

	err := o.SendMessage(context.Background(), "xin chào")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, redirected)
	assert.Empty(t, session.Credential())

	snap := o.Snapshot()
	assert.False(t, snap.IsStreaming)
	assert.Empty(t, snap.Err, "a 401 is a session problem, not a chat error")
}

func TestOrchestratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := NewOrchestrator(srv.URL, NewSession("token", nil), Options{Logger: quietLogger()})

	err := o.SendMessage(context.Background(), "xin chào")
	require.Error(t, err)

	snap := o.Snapshot()
	assert.False(t, snap.IsStreaming)
	assert.Contains(t, snap.Err, "502")

	last := snap.Messages[len(snap.Messages)-1]
	assert.Equal(t, RetryContent, last.Content)
	assert.Equal(t, MessageError, last.Type)
}

func TestOrchestratorCancelIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, agui.Event{Type: agui.EventRunStart, RunID: "run-1"})
		writeSSE(w, agui.TextDelta("Đang trả lời"))
		<-r.Context().Done()
	}))
	defer srv.Close()

	o := NewOrchestrator(srv.URL, NewSession("token", nil), Options{Logger: quietLogger()})

	errc := make(chan error, 1)
	go func() { errc <- o.SendMessage(context.Background(), "câu hỏi dài") }()

	// Wait until the partial delta has been applied before cancelling.
	require.Eventually(t, func() bool {
		snap := o.Snapshot()
		last := snap.Messages[len(snap.Messages)-1]
		return last.Content == "Đang trả lời"
	}, 5*time.Second, 10*time.Millisecond)

	o.CancelStream()

	select {
	case err := <-errc:
		assert.NoError(t, err, "user cancellation is not a failure")
	case <-time.After(5 * time.Second):
		t.Fatal("SendMessage did not return after cancel")
	}

	snap := o.Snapshot()
	assert.False(t, snap.IsStreaming)
	assert.Empty(t, snap.Err)

	last := snap.Messages[len(snap.Messages)-1]
	assert.Equal(t, "Đang trả lời", last.Content, "partial content stands")
	assert.NotEqual(t, MessageError, last.Type)
}

func TestOrchestratorIdleWatchdog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, agui.Event{Type: agui.EventRunStart, RunID: "run-1"})
		<-r.Context().Done()
	}))
	defer srv.Close()

	o := NewOrchestrator(srv.URL, NewSession("token", nil), Options{
		Logger:      quietLogger(),
		IdleTimeout: 50 * time.Millisecond,
	})

	err := o.SendMessage(context.Background(), "xin chào")
	assert.ErrorIs(t, err, errStreamStalled)

	snap := o.Snapshot()
	assert.Equal(t, "stream stalled", snap.Err)
	last := snap.Messages[len(snap.Messages)-1]
	assert.Equal(t, RetryContent, last.Content)
}

func TestOrchestratorMalformedRecordSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, agui.Event{Type: agui.EventRunStart, RunID: "run-1"})
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		writeSSE(w, agui.TextFull("Vẫn hoạt động."))
		writeSSE(w, agui.Event{Type: agui.EventRunComplete})
	}))
	defer srv.Close()

	o := NewOrchestrator(srv.URL, NewSession("token", nil), Options{Logger: quietLogger()})
	require.NoError(t, o.SendMessage(context.Background(), "xin chào"))

	snap := o.Snapshot()
	last := snap.Messages[len(snap.Messages)-1]
	assert.Equal(t, "Vẫn hoạt động.", last.Content)
}

func TestOrchestratorEmptyInputNoop(t *testing.T) {
	o := NewOrchestrator("http://unused.invalid", NewSession("token", nil), Options{Logger: quietLogger()})

	require.NoError(t, o.SendMessage(context.Background(), "   \n\t"))

	snap := o.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, welcomeMessageID, snap.Messages[0].ID)
}

func TestOrchestratorClearConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, agui.Event{Type: agui.EventRunStart, RunID: "run-1"})
		writeSSE(w, agui.TextFull("Trả lời."))
		writeSSE(w, agui.Event{Type: agui.EventRunComplete})
	}))
	defer srv.Close()

	o := NewOrchestrator(srv.URL, NewSession("token", nil), Options{Logger: quietLogger()})
	require.NoError(t, o.SendMessage(context.Background(), "xin chào"))
	require.Greater(t, len(o.Snapshot().Messages), 1)

	o.ClearConversation()

	snap := o.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, WelcomeContent, snap.Messages[0].Content)
	assert.Empty(t, snap.Err)
}

func TestOrchestratorSupersededTurnAborts(t *testing.T) {
	release := make(chan struct{})
	var turns int
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		turns++
		first := turns == 1
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, agui.Event{Type: agui.EventRunStart, RunID: "run"})
		if first {
			close(release)
			<-r.Context().Done()
			return
		}
		writeSSE(w, agui.TextFull("Lượt thứ hai."))
		writeSSE(w, agui.Event{Type: agui.EventRunComplete})
	}))
	defer srv.Close()

	o := NewOrchestrator(srv.URL, NewSession("token", nil), Options{Logger: quietLogger()})

	errc := make(chan error, 1)
	go func() { errc <- o.SendMessage(context.Background(), "câu thứ nhất") }()
	<-release

	require.NoError(t, o.SendMessage(context.Background(), "câu thứ hai"))

	select {
	case err := <-errc:
		assert.NoError(t, err, "the superseded turn ends silently")
	case <-time.After(5 * time.Second):
		t.Fatal("first SendMessage did not return")
	}

	snap := o.Snapshot()
	assert.Empty(t, snap.Err)
	last := snap.Messages[len(snap.Messages)-1]
	assert.Equal(t, "Lượt thứ hai.", last.Content)
}
