package request

type UploadMaterialMetadataRequest struct {
	FileName   string `json:"file_name" binding:"required"`
	FileType   string `json:"file_type" binding:"required"`
	FileSize   int64  `json:"file_size" binding:"required"`
	ObjectName string `json:"object_name" binding:"required"`
}

type UploadRecordingRequest struct {
	AttemptID       uint   `json:"attempt_id" binding:"required"`
	Part            int    `json:"part" binding:"required"`
	ObjectName      string `json:"object_name" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
}
