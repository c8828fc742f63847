package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"vstep-prep-backend/config"
	"vstep-prep-backend/model"
	"vstep-prep-backend/service/material"
	"vstep-prep-backend/service/material/etl/processor"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/apache/rocketmq-client-go/v2/primitive"
)

const (
	TagETL    = "tag_etl"
	TagDelete = "tag_delete"
)

type ETLMessage struct {
	FileType   model.FileType `json:"file_type"`
	ObjectName string         `json:"object_name"`
}

type DeleteMessage struct {
	FileType   model.FileType `json:"file_type"`
	ObjectName string         `json:"object_name"`
}

var (
	registryOnce sync.Once
	registryErr  error

	etlProcessorRegistry []processor.ETLProcessor
)

// processors are built on first use; they need model and milvus config
// that is absent in tests and one-off tools.
func registry() ([]processor.ETLProcessor, error) {
	registryOnce.Do(func() {
		pdfProcessor, err := processor.NewPDFETLProcessor()
		if err != nil {
			registryErr = fmt.Errorf("error creating PDFETLProcessor: %v", err)
			return
		}

		markdownProcessor, err := processor.NewMarkdownETLProcessor()
		if err != nil {
			registryErr = fmt.Errorf("error creating MarkdownETLProcessor: %v", err)
			return
		}

		etlProcessorRegistry = []processor.ETLProcessor{
			pdfProcessor,
			markdownProcessor,
		}
	})
	return etlProcessorRegistry, registryErr
}

// HandleMessage dispatches study-material tasks by tag.
func HandleMessage(ctx context.Context, msg *primitive.MessageExt) error {
	switch tag := msg.GetTags(); tag {
	case TagETL:
		return HandleETLMessage(ctx, msg)
	case TagDelete:
		return HandleDeleteMessage(ctx, msg)
	default:
		slog.Warn("unknown study-material tag", "tag", tag)
		return nil
	}
}

func HandleETLMessage(ctx context.Context, msg *primitive.MessageExt) error {
	var etlMessage ETLMessage
	if err := json.Unmarshal(msg.Body, &etlMessage); err != nil {
		return fmt.Errorf("failed to unmarshal message body: %v", err)
	}

	object, err := getObjectFromOSS(ctx, etlMessage.ObjectName)
	if err != nil {
		return fmt.Errorf("failed to get object from oss: %v", err)
	}

	processors, err := registry()
	if err != nil {
		return err
	}

	for _, p := range processors {
		if p.CanProcess(etlMessage.FileType) {
			if err := p.ExecuteETLPipeline(ctx, object, etlMessage.ObjectName); err != nil {
				if statusErr := material.UpdateMaterialStatus(etlMessage.ObjectName, model.StatusProcessedFailed); statusErr != nil {
					slog.Error("failed to mark material as failed", "object_name", etlMessage.ObjectName, "err", statusErr)
				}
				return fmt.Errorf("failed to execute ETL pipeline: %v", err)
			}
			return material.UpdateMaterialStatus(etlMessage.ObjectName, model.StatusProcessed)
		}
	}

	return fmt.Errorf("no processor found for file type: %s", etlMessage.FileType)
}

// HandleDeleteMessage removes a deleted file's chunks from the vector
// store and the object itself from OSS.
func HandleDeleteMessage(ctx context.Context, msg *primitive.MessageExt) error {
	var deleteMessage DeleteMessage
	if err := json.Unmarshal(msg.Body, &deleteMessage); err != nil {
		return fmt.Errorf("failed to unmarshal message body: %v", err)
	}

	processors, err := registry()
	if err != nil {
		return err
	}
	if len(processors) > 0 {
		if p, ok := processors[0].(interface {
			DeleteByObjectName(context.Context, string) error
		}); ok {
			if err := p.DeleteByObjectName(ctx, deleteMessage.ObjectName); err != nil {
				return err
			}
		}
	}

	client := newOSSClient()
	_, err = client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(deleteMessage.ObjectName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from oss: %v", err)
	}

	return nil
}

func newOSSClient() *oss.Client {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	return oss.NewClient(cfg)
}

func getObjectFromOSS(ctx context.Context, objectName string) ([]byte, error) {
	client := newOSSClient()

	result, err := client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from oss: %v", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %v", err)
	}

	return data, nil
}
