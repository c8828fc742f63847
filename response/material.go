package response

// GetPolicyTokenResponse carries browser-direct OSS upload credentials.
type GetPolicyTokenResponse struct {
	Policy           string `json:"policy"`
	SecurityToken    string `json:"security_token"`
	SignatureVersion string `json:"x_oss_signature_version"`
	Credential       string `json:"x_oss_credential"`
	Date             string `json:"x_oss_date"`
	Signature        string `json:"signature"`
	Host             string `json:"host"`
	Dir              string `json:"dir"`
}

type MaterialResponse struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	Status   string `json:"status"`
}

type ListMaterialsResponse struct {
	Materials []MaterialResponse `json:"materials"`
}

type GetPreSignedURLResponse struct {
	URL string `json:"url"`
}

type RecordingResponse struct {
	ID              uint   `json:"id"`
	AttemptID       uint   `json:"attempt_id"`
	Part            int    `json:"part"`
	DurationSeconds int    `json:"duration_seconds"`
	Status          string `json:"status"`
	Transcript      string `json:"transcript,omitempty"`
}
