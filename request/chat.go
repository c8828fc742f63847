package request

// TranscriptMessage is one replayed turn of the conversation. Hidden
// context messages arrive already relabeled as role "system".
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AgentConfig struct {
	Model         string   `json:"model"`
	Tools         []string `json:"tools"`
	MaxIterations int      `json:"max_iterations"`
}

// ChatRequest is the body of the agent chat endpoint.
type ChatRequest struct {
	Prompt      string              `json:"prompt" binding:"required"`
	Context     string              `json:"context"`
	Preferences map[string]any      `json:"preferences"`
	Messages    []TranscriptMessage `json:"messages"`

	// Optional: persist the turn into a stored chat session
	SessionID string `json:"session_id"`

	AgentConfig AgentConfig `json:"agent_config"`
}

type UpdateSessionTitleRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Title     string `json:"title" binding:"required"`
}
