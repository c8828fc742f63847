package assistant

import (
	"encoding/json"
	"fmt"
)

// PanelKind names the four specialized detail panels.
type PanelKind string

const (
	PanelAttemptDetail PanelKind = "attempt_detail"
	PanelQuizHistory   PanelKind = "quiz_history"
	PanelWriting       PanelKind = "writing"
	PanelSpeaking      PanelKind = "speaking"
)

// displayPriority is the precedence when several panel payloads are
// available at once.
var displayPriority = []PanelKind{PanelAttemptDetail, PanelQuizHistory, PanelWriting, PanelSpeaking}

// classPriority orders tool classes for the summary chip and for
// auto-open tie-breaking.
var classPriority = []ToolClass{ClassAttemptDetail, ClassWriting, ClassSpeaking, ClassQuizHistory}

func panelForClass(class ToolClass) (PanelKind, bool) {
	switch class {
	case ClassAttemptDetail:
		return PanelAttemptDetail, true
	case ClassQuizHistory:
		return PanelQuizHistory, true
	case ClassWriting:
		return PanelWriting, true
	case ClassSpeaking:
		return PanelSpeaking, true
	}
	return "", false
}

// PanelSelection is one externally selected payload routed to a
// specialized panel.
type PanelSelection struct {
	Kind PanelKind       `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// SelectPanel picks the panel to show when several payloads are present,
// in fixed precedence order. Returns nil when nothing is selected.
func SelectPanel(available map[PanelKind]json.RawMessage) *PanelSelection {
	for _, kind := range displayPriority {
		if data, ok := available[kind]; ok && data != nil {
			return &PanelSelection{Kind: kind, Data: data}
		}
	}
	return nil
}

// ToolCallGroup splits calls by lifecycle for the generic expanded list.
type ToolCallGroup struct {
	Pending  []*ToolCall `json:"pending"`
	Finished []*ToolCall `json:"finished"`
}

// DisplayView is what the tool-call display renders: exactly one of the
// empty state, a specialized panel, or the generic grouped list.
type DisplayView struct {
	Empty  bool            `json:"empty"`
	Panel  *PanelSelection `json:"panel,omitempty"`
	Groups *ToolCallGroup  `json:"groups,omitempty"`
}

// BuildDisplay routes the full tool-call list and an optional external
// selection into one display mode.
func BuildDisplay(calls []*ToolCall, selection *PanelSelection) DisplayView {
	if len(calls) == 0 && selection == nil {
		return DisplayView{Empty: true}
	}
	if selection != nil {
		return DisplayView{Panel: selection}
	}

	groups := &ToolCallGroup{}
	for _, call := range calls {
		if call.Terminal() {
			groups.Finished = append(groups.Finished, call)
		} else {
			groups.Pending = append(groups.Pending, call)
		}
	}
	return DisplayView{Groups: groups}
}

// ToolCallSummary condenses one message's tool calls into a single chip.
// Result points at the raw tool payload, not a copy, so the click
// callback hands the panel the exact bytes the tool returned.
type ToolCallSummary struct {
	Label     string          `json:"label"`
	Panel     PanelKind       `json:"panel,omitempty"`
	Clickable bool            `json:"clickable"`
	Result    json.RawMessage `json:"-"`
	Count     int             `json:"count"`
}

var summaryLabels = map[ToolClass]string{
	ClassAttemptDetail: "Xem chi tiết bài làm",
	ClassWriting:       "Xem bài viết",
	ClassSpeaking:      "Xem phần nói",
	ClassQuizHistory:   "Xem lịch sử làm bài",
}

// SummarizeToolCalls builds the chip for one message. Class priority:
// attempt-detail > writing > speaking > quiz-history > generic count.
// Only complete calls with a result are clickable; pending and failed
// calls stay inert here but remain visible in the expanded view.
func SummarizeToolCalls(msg *ChatMessage) *ToolCallSummary {
	if msg == nil || len(msg.ToolCalls) == 0 {
		return nil
	}

	for _, class := range classPriority {
		for _, call := range msg.ToolCalls {
			if call.Class() != class {
				continue
			}
			if call.Status != ToolComplete || call.Result == nil {
				continue
			}
			kind, _ := panelForClass(class)
			return &ToolCallSummary{
				Label:     summaryLabels[class],
				Panel:     kind,
				Clickable: true,
				Result:    call.Result,
				Count:     len(msg.ToolCalls),
			}
		}
	}

	return &ToolCallSummary{
		Label: fmt.Sprintf("%d công cụ đã chạy", len(msg.ToolCalls)),
		Count: len(msg.ToolCalls),
	}
}

// AutoOpenTracker decides when a freshly completed tool call should
// auto-open its detail panel. Each call id is handled at most once.
type AutoOpenTracker struct {
	handled map[string]struct{}
}

func NewAutoOpenTracker() *AutoOpenTracker {
	return &AutoOpenTracker{handled: make(map[string]struct{})}
}

// Next picks the most recently completed unhandled call with a non-empty
// result (ties on EndTime broken by class priority), marks it handled,
// and returns it. Nil when nothing should open.
func (t *AutoOpenTracker) Next(calls []*ToolCall) *ToolCall {
	var best *ToolCall
	for _, call := range calls {
		if call.Status != ToolComplete || len(call.Result) == 0 {
			continue
		}
		if _, done := t.handled[call.ID]; done {
			continue
		}
		if best == nil || call.EndTime.After(best.EndTime) {
			best = call
			continue
		}
		if call.EndTime.Equal(best.EndTime) && classRank(call.Class()) < classRank(best.Class()) {
			best = call
		}
	}

	if best == nil {
		return nil
	}
	t.handled[best.ID] = struct{}{}
	return best
}

func classRank(class ToolClass) int {
	for i, c := range classPriority {
		if c == class {
			return i
		}
	}
	return len(classPriority)
}
