package processor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"vstep-prep-backend/model"

	"github.com/milvus-io/milvus/client/v2/column"
	client "github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/textsplitter"
)

type PDFETLProcessor struct {
	BaseETLProcessor
}

var _ ETLProcessor = &PDFETLProcessor{}

func NewPDFETLProcessor() (*PDFETLProcessor, error) {
	separators := []string{"\n\n", "\n", ".", "!", "?", ";", ",", " ", ""}
	textSplitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators(separators),
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	baseETLProcessor, err := NewBaseETLProcessor(textSplitter)
	if err != nil {
		return nil, err
	}

	return &PDFETLProcessor{
		BaseETLProcessor: *baseETLProcessor,
	}, nil
}

func (p *PDFETLProcessor) CanProcess(fileType model.FileType) bool {
	return fileType == model.FileTypePDF
}

func (p *PDFETLProcessor) ExecuteETLPipeline(ctx context.Context, object []byte, objectName string) error {
	reader := bytes.NewReader(object)
	loader := documentloaders.NewPDF(reader, int64(len(object)))

	docs, err := loader.LoadAndSplit(ctx, p.TextSplitter)
	if err != nil {
		return fmt.Errorf("error loading and spliting pdf: %v", err)
	}

	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.PageContent)
	}

	vectors, err := p.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("error embedding pdf: %v", err)
	}

	slog.Debug("embedded pdf successfully",
		"object_name", objectName,
		"vectors_num", len(vectors),
	)

	columns := make([]column.Column, 0)
	columns = append(columns, column.NewColumnVarChar("text", texts))
	columns = append(columns, column.NewColumnFloatVector("vector", vectorDim, vectors))

	columns, err = addMetadataColumns(columns, len(texts), &Metadata{
		objectName: objectName,
	})
	if err != nil {
		return fmt.Errorf("error adding metadata columns: %v", err)
	}

	insertOption := client.NewColumnBasedInsertOption(CollectionName).WithColumns(columns...)
	_, err = p.MilvusClient.Insert(ctx, insertOption)
	if err != nil {
		return fmt.Errorf("error inserting pdf chunks: %v", err)
	}

	return nil
}

// DeleteByObjectName removes all chunks of one file from the collection.
func (p *BaseETLProcessor) DeleteByObjectName(ctx context.Context, objectName string) error {
	deleteOption := client.NewDeleteOption(CollectionName).
		WithExpr(fmt.Sprintf(`object_name == "%s"`, objectName))
	_, err := p.MilvusClient.Delete(ctx, deleteOption)
	if err != nil {
		return fmt.Errorf("error deleting chunks of %s: %v", objectName, err)
	}
	return nil
}
