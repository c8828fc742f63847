package agent

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"vstep-prep-backend/config"
	"vstep-prep-backend/request"
	"vstep-prep-backend/utils"

	"github.com/gin-gonic/gin"
	mcpadapter "github.com/i2y/langchaingo-mcp-adapter"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/vectorstores"
	v2 "github.com/tmc/langchaingo/vectorstores/milvus/v2"
)

const (
	BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

	methodToolCompleted = "tool_completed"

	defaultMaxIterations = 5

	embeddingModel     = "text-embedding-v4"
	embeddingBatchSize = 10

	// Milvus collection holding embedded study-material chunks
	MaterialCollectionName = "study_material_doc"
)

var (
	// 300s timeout accommodates slow streamed completions
	agentHTTPClient *http.Client = utils.NewHTTPClient(
		utils.WithTimeout(300 * time.Second),
	)

	mcpHTTPClient *http.Client = utils.DefaultHTTPClient()
)

var (
	//go:embed prompts/conversational_format_instructions.txt
	conversationalFormatInstructions string

	//go:embed prompts/conversational_prefix.txt
	conversationalPrefix string

	//go:embed prompts/conversational_suffix.txt
	conversationalSuffix string
)

type Agent struct {
	Executor    *agents.Executor
	MCPClient   *client.Client
	ChatHistory *MySQLChatMessageHistory
	Emitter     *AGUIEmitter
}

func NewAgent(c *gin.Context, req request.ChatRequest, email, runID string) (*Agent, error) {
	modelName := req.AgentConfig.Model
	if modelName == "" {
		modelName = config.Cfg.Model.Name
	}

	llm, err := openai.New(
		openai.WithModel(modelName),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(BaseURL),
		openai.WithHTTPClient(agentHTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %v", err)
	}

	emitter := NewAGUIEmitter(c, runID)

	agentTools := builtinTools(email, materialStore())

	var mcpClient *client.Client
	if config.Cfg.MCP.Enabled && len(req.AgentConfig.Tools) > 0 {
		mcpClient, err = createMCPClient(c)
		if err != nil {
			return nil, fmt.Errorf("failed to create mcp client: %v", err)
		}

		ctx := context.Background()
		if err := mcpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to init connection to the mcp server: %v", err)
		}

		mcpTools, err := getMCPTools(mcpClient, req.AgentConfig.Tools)
		if err != nil {
			slog.Error("failed to get mcp tools", "err", err)
		}
		agentTools = append(agentTools, mcpTools...)

		registerMCPClientNotifications(ctx, mcpClient, emitter)
	}

	a := agents.NewConversationalAgent(llm, agentTools,
		agents.WithCallbacksHandler(emitter),
		agents.WithPromptPrefix(conversationalPrefix),
		agents.WithPromptFormatInstructions(conversationalFormatInstructions),
		agents.WithPromptSuffix(conversationalSuffix),
	)

	maxIterations := req.AgentConfig.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	var chatHistory *MySQLChatMessageHistory
	var mem *memory.ConversationBuffer
	if req.SessionID != "" {
		chatHistory = NewMySQLChatMessageHistory(req.SessionID)
		mem = memory.NewConversationBuffer(
			memory.WithChatHistory(chatHistory),
		)
	} else {
		// Stateless turn: the caller replays the transcript itself
		mem = memory.NewConversationBuffer(
			memory.WithChatHistory(transcriptHistory(req.Messages)),
		)
	}

	executor := agents.NewExecutor(
		a,
		agents.WithMemory(mem),
		agents.WithMaxIterations(maxIterations),
	)

	return &Agent{
		Executor:    executor,
		MCPClient:   mcpClient,
		ChatHistory: chatHistory,
		Emitter:     emitter,
	}, nil
}

func (a *Agent) Call(ctx context.Context, req request.ChatRequest) (string, error) {
	prompt := req.Prompt
	if req.Context != "" && req.Context != "general" {
		prompt = fmt.Sprintf("[Chủ đề: %s] %s", req.Context, req.Prompt)
	}

	result, err := chains.Run(ctx, a.Executor, prompt)
	if err != nil {
		return "", err
	}
	return result, nil
}

// SaveToolCalls persists the turn's tool calls onto the stored agent
// message. A stateless turn has no chat history and nothing to save.
func (a *Agent) SaveToolCalls(ctx context.Context) error {
	if a.ChatHistory == nil {
		return nil
	}
	return a.ChatHistory.SetToolCalls(ctx, a.Emitter.Calls())
}

func (a *Agent) Close() error {
	if a.MCPClient != nil {
		return a.MCPClient.Close()
	}
	return nil
}

// transcriptHistory seeds an in-memory history from the request's
// replayed messages. Hidden context turns arrive already relabeled as
// role "system".
func transcriptHistory(messages []request.TranscriptMessage) *memory.ChatMessageHistory {
	history := memory.NewChatMessageHistory()
	ctx := context.Background()
	for _, msg := range messages {
		switch msg.Role {
		case "assistant", string(llms.ChatMessageTypeAI):
			_ = history.AddAIMessage(ctx, msg.Content)
		case "system":
			_ = history.AddMessage(ctx, llms.SystemChatMessage{Content: msg.Content})
		default:
			_ = history.AddUserMessage(ctx, msg.Content)
		}
	}
	return history
}

var (
	materialStoreOnce sync.Once
	materialStoreInst vectorstores.VectorStore
)

// materialStore lazily builds the shared milvus-backed store used by the
// study-material search tool. Returns nil when milvus is not configured.
func materialStore() vectorstores.VectorStore {
	materialStoreOnce.Do(func() {
		if config.Cfg.Milvus.Endpoint == "" {
			return
		}

		embedderClient, err := openai.New(
			openai.WithEmbeddingModel(embeddingModel),
			openai.WithToken(config.Cfg.Model.APIKey),
			openai.WithBaseURL(BaseURL),
			openai.WithHTTPClient(utils.NewHTTPClient(utils.WithTimeout(60*time.Second))),
		)
		if err != nil {
			slog.Error("failed to create embedder client", "err", err)
			return
		}

		embedder, err := embeddings.NewEmbedder(embedderClient,
			embeddings.WithBatchSize(embeddingBatchSize),
			embeddings.WithStripNewLines(false),
		)
		if err != nil {
			slog.Error("failed to create embedder", "err", err)
			return
		}

		store, err := v2.New(context.Background(),
			milvusclient.ClientConfig{
				Address: config.Cfg.Milvus.Endpoint,
				APIKey:  config.Cfg.Milvus.APIKey,
			},
			v2.WithEmbedder(embedder),
			v2.WithCollectionName(MaterialCollectionName),
		)
		if err != nil {
			slog.Error("failed to create milvus store", "err", err)
			return
		}

		materialStoreInst = store
	})
	return materialStoreInst
}

func createMCPClient(c *gin.Context) (*client.Client, error) {
	mcpServerPath := fmt.Sprintf("http://%s:%s/mcp", config.Cfg.MCP.Host, config.Cfg.MCP.Port)
	mcpClient, err := client.NewStreamableHttpClient(mcpServerPath,
		transport.WithHTTPBasicClient(mcpHTTPClient),
		transport.WithHTTPHeaders(map[string]string{
			"Authorization": c.GetHeader("Authorization"),
		}),
		transport.WithContinuousListening(),
	)
	if err != nil {
		return nil, err
	}
	return mcpClient, nil
}

// Returns the user-selected MCP tools
func getMCPTools(mcpClient *client.Client, toolNames []string) ([]tools.Tool, error) {
	if len(toolNames) == 0 {
		return nil, nil
	}

	mcpAdapter, err := mcpadapter.New(mcpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp adapter: %v", err)
	}

	mcpTools, err := mcpAdapter.Tools()
	if err != nil {
		return nil, fmt.Errorf("failed to get mcp tools: %v", err)
	}

	toolMap := make(map[string]bool)
	for _, name := range toolNames {
		toolMap[name] = true
	}

	var filteredTools []tools.Tool
	for _, tool := range mcpTools {
		if toolMap[tool.Name()] {
			filteredTools = append(filteredTools, tool)
		}
	}

	return filteredTools, nil
}

// Forwards tool results pushed by the MCP server into the event stream
func registerMCPClientNotifications(ctx context.Context, mcpClient *client.Client, emitter *AGUIEmitter) {
	mcpClient.OnNotification(func(notification mcp.JSONRPCNotification) {
		if notification.Method != methodToolCompleted {
			return
		}

		results, ok := notification.Params.AdditionalFields["result"].([]any)
		if !ok {
			slog.Error("invalid tool call result type")
			return
		}

		for _, res := range results {
			if content, ok := res.(map[string]any); ok {
				switch contentType := content["type"].(string); contentType {
				case "text":
					textContent := content["text"].(string)
					emitter.HandleToolEnd(ctx, textContent)
				}
			}
		}
	})
}
