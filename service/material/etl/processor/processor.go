package processor

import (
	"context"

	"vstep-prep-backend/model"
)

// ETLProcessor turns one uploaded study-material file into embedded
// chunks in the vector store.
type ETLProcessor interface {
	CanProcess(fileType model.FileType) bool

	ExecuteETLPipeline(ctx context.Context, object []byte, objectName string) error
}
