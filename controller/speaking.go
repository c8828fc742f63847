package controller

import (
	"log/slog"
	"net/http"
	"strconv"

	"vstep-prep-backend/dao"
	"vstep-prep-backend/model"
	"vstep-prep-backend/request"
	"vstep-prep-backend/response"
	"vstep-prep-backend/service/mq"
	"vstep-prep-backend/service/speaking"

	"github.com/gin-gonic/gin"
)

// UploadRecording runs after the browser uploaded a speaking answer to
// OSS: record it and queue transcription.
func UploadRecording(c *gin.Context) {
	var req request.UploadRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	recording := model.SpeakingRecording{
		UserEmail:       email,
		AttemptID:       req.AttemptID,
		Part:            req.Part,
		ObjectName:      req.ObjectName,
		DurationSeconds: req.DurationSeconds,
		Status:          model.RecordingUploaded,
	}
	if err := dao.CreateSpeakingRecording(&recording); err != nil {
		slog.Error(ErrUploadRecording.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadRecording.Error(),
		})
		return
	}

	if err := mq.SendMessage(c.Request.Context(), &mq.Message{
		Topic: mq.TopicSpeaking,
		Tag:   speaking.TagTranscribe,
		Payload: speaking.TranscriptionMessage{
			RecordingID: recording.ID,
			ObjectName:  recording.ObjectName,
		},
	}); err != nil {
		slog.Error("failed to queue transcription task", "recording_id", recording.ID, "err", err)
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: recordingResponse(&recording),
	})
}

func GetRecordings(c *gin.Context) {
	email := c.GetString("email")
	attemptID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	recordings, err := dao.GetRecordingsByAttempt(email, uint(attemptID))
	if err != nil {
		slog.Error(ErrGetRecordings.Error(), "attempt_id", attemptID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetRecordings.Error(),
		})
		return
	}

	resp := make([]response.RecordingResponse, 0, len(recordings))
	for i := range recordings {
		resp = append(resp, recordingResponse(&recordings[i]))
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func recordingResponse(r *model.SpeakingRecording) response.RecordingResponse {
	return response.RecordingResponse{
		ID:              r.ID,
		AttemptID:       r.AttemptID,
		Part:            r.Part,
		DurationSeconds: r.DurationSeconds,
		Status:          string(r.Status),
		Transcript:      r.Transcript,
	}
}
