package material

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vstep-prep-backend/config"
	"vstep-prep-backend/dao"
	"vstep-prep-backend/model"
	"vstep-prep-backend/request"
	"vstep-prep-backend/response"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
)

const (
	policyExpiry       = 10 * time.Minute
	presignedURLExpiry = 15 * time.Minute

	// Browser uploads go under <email>/<file-name>
	maxUploadSize = 100 << 20
)

func ossClient() *oss.Client {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	return oss.NewClient(cfg)
}

// GeneratePolicyToken builds a V4 post-policy so the browser uploads
// study material straight to OSS without routing bytes through us.
func GeneratePolicyToken(email string) (*response.GetPolicyTokenResponse, error) {
	now := time.Now().UTC()
	date := now.Format("20060102")
	dateTime := now.Format("20060102T150405Z")
	region := config.Cfg.OSS.Region

	credential := fmt.Sprintf("%s/%s/%s/oss/aliyun_v4_request",
		config.Cfg.OSS.AccessKeyID, date, strings.TrimPrefix(region, "oss-"))

	dir := email + "/"
	policyDoc := map[string]any{
		"expiration": now.Add(policyExpiry).Format("2006-01-02T15:04:05.000Z"),
		"conditions": []any{
			map[string]string{"bucket": config.Cfg.OSS.BucketName},
			map[string]string{"x-oss-signature-version": "OSS4-HMAC-SHA256"},
			map[string]string{"x-oss-credential": credential},
			map[string]string{"x-oss-date": dateTime},
			[]any{"starts-with", "$key", dir},
			[]any{"content-length-range", 1, maxUploadSize},
		},
	}

	policyJSON, err := json.Marshal(policyDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy: %v", err)
	}
	policy := base64.StdEncoding.EncodeToString(policyJSON)

	signature := signV4(policy, date, strings.TrimPrefix(region, "oss-"))

	host := fmt.Sprintf("https://%s.%s.aliyuncs.com", config.Cfg.OSS.BucketName, region)
	return &response.GetPolicyTokenResponse{
		Policy:           policy,
		SignatureVersion: "OSS4-HMAC-SHA256",
		Credential:       credential,
		Date:             dateTime,
		Signature:        signature,
		Host:             host,
		Dir:              dir,
	}, nil
}

func signV4(policy, date, region string) string {
	signingKey := []byte("aliyun_v4" + config.Cfg.OSS.AccessKeySecret)
	for _, scope := range []string{date, region, "oss", "aliyun_v4_request"} {
		mac := hmac.New(sha256.New, signingKey)
		mac.Write([]byte(scope))
		signingKey = mac.Sum(nil)
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(policy))
	return hex.EncodeToString(mac.Sum(nil))
}

// UploadMaterialMetadata records a finished browser upload.
func UploadMaterialMetadata(req request.UploadMaterialMetadataRequest, email string) error {
	existing, err := dao.GetMaterialByEmailAndFileName(email, req.FileName)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("material %s already exists", req.FileName)
	}
	return dao.SaveMaterialMetadata(req, email)
}

// GeneratePresignedURL signs a temporary download link for one object.
func GeneratePresignedURL(objectName string) (string, error) {
	result, err := ossClient().Presign(context.Background(), &oss.GetObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
	}, oss.PresignExpires(presignedURLExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %v", objectName, err)
	}
	return result.URL, nil
}

// UpdateMaterialStatus resolves the owner and file name from the object
// name ("<email>/<file-name>") and updates the processing status.
func UpdateMaterialStatus(objectName string, status model.Status) error {
	email, fileName, ok := strings.Cut(objectName, "/")
	if !ok {
		return fmt.Errorf("malformed object name: %s", objectName)
	}
	return dao.UpdateMaterialStatus(email, fileName, status)
}
