package speaking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"vstep-prep-backend/config"
	"vstep-prep-backend/dao"
	"vstep-prep-backend/model"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/apache/rocketmq-client-go/v2/primitive"
)

const TagTranscribe = "tag_transcribe"

type TranscriptionMessage struct {
	RecordingID uint   `json:"recording_id"`
	ObjectName  string `json:"object_name"`
}

// HandleTranscriptionMessage pulls a recorded answer from OSS, runs ASR
// and stores the transcript on the recording row.
func HandleTranscriptionMessage(ctx context.Context, msg *primitive.MessageExt) error {
	var task TranscriptionMessage
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		return fmt.Errorf("failed to unmarshal message body: %v", err)
	}

	audio, err := getAudioFromOSS(ctx, task.ObjectName)
	if err != nil {
		return fmt.Errorf("failed to get audio from oss: %v", err)
	}

	transcript, err := Recognize(audio)
	if err != nil {
		if statusErr := dao.UpdateRecordingTranscript(task.RecordingID, model.RecordingTranscribeFailed, ""); statusErr != nil {
			slog.Error("failed to mark recording as failed", "recording_id", task.RecordingID, "err", statusErr)
		}
		return fmt.Errorf("failed to recognize audio: %v", err)
	}

	return dao.UpdateRecordingTranscript(task.RecordingID, model.RecordingTranscribed, transcript)
}

func getAudioFromOSS(ctx context.Context, objectName string) ([]byte, error) {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	client := oss.NewClient(cfg)

	result, err := client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}
