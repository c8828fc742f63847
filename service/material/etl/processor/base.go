package processor

import (
	"context"
	"fmt"
	"time"

	"vstep-prep-backend/config"
	"vstep-prep-backend/utils"

	"github.com/milvus-io/milvus/client/v2/column"
	client "github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	embeddingBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	embeddingModel   = "text-embedding-v4"

	chunkSize          = 4000
	chunkOverlap       = 200
	embeddingBatchSize = 10

	vectorDim = 1024

	CollectionName = "study_material_doc"
)

type BaseETLProcessor struct {
	TextSplitter textsplitter.TextSplitter
	Embedder     embeddings.Embedder
	MilvusClient *client.Client
}

func NewBaseETLProcessor(textSplitter textsplitter.TextSplitter) (*BaseETLProcessor, error) {
	embedderClient, err := openai.New(
		openai.WithEmbeddingModel(embeddingModel),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(embeddingBaseURL),
		openai.WithHTTPClient(utils.NewHTTPClient(utils.WithTimeout(60*time.Second))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(embedderClient,
		embeddings.WithBatchSize(embeddingBatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}

	milvusClient, err := client.New(context.Background(), &client.ClientConfig{
		Address: config.Cfg.Milvus.Endpoint,
		APIKey:  config.Cfg.Milvus.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %v", err)
	}

	return &BaseETLProcessor{
		TextSplitter: textSplitter,
		Embedder:     embedder,
		MilvusClient: milvusClient,
	}, nil
}

type Metadata struct {
	objectName string
}

// addMetadataColumns repeats the per-file metadata onto every chunk row.
func addMetadataColumns(columns []column.Column, rows int, meta *Metadata) ([]column.Column, error) {
	if meta == nil {
		return columns, nil
	}

	objectNames := make([]string, rows)
	for i := range objectNames {
		objectNames[i] = meta.objectName
	}
	columns = append(columns, column.NewColumnVarChar("object_name", objectNames))
	return columns, nil
}
