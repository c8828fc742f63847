package controller

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"vstep-prep-backend/dao"
	"vstep-prep-backend/model"
	"vstep-prep-backend/request"
	"vstep-prep-backend/response"
	"vstep-prep-backend/service/material"
	"vstep-prep-backend/service/material/etl"
	"vstep-prep-backend/service/mq"

	"github.com/gin-gonic/gin"
)

func GetPolicyToken(c *gin.Context) {
	email := c.GetString("email")
	policyToken, err := material.GeneratePolicyToken(email)
	if err != nil {
		slog.Error(ErrGeneratePolicyToken.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGeneratePolicyToken.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: policyToken,
	})
}

func GetMaterials(c *gin.Context) {
	email := c.GetString("email")
	materials, err := dao.GetMaterialsByEmail(email)
	if err != nil {
		slog.Error(ErrGetMaterials.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetMaterials.Error(),
		})
		return
	}

	var resp response.ListMaterialsResponse
	for _, item := range materials {
		resp.Materials = append(resp.Materials, response.MaterialResponse{
			FileName: item.FileName,
			FileType: string(item.FileType),
			FileSize: item.FileSize,
			Status:   string(item.Status),
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

// UploadMaterialMetadata runs after the browser finished its direct
// upload to OSS: record the metadata, queue the vectorization task.
func UploadMaterialMetadata(c *gin.Context) {
	var req request.UploadMaterialMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	if err := material.UploadMaterialMetadata(req, email); err != nil {
		slog.Error(ErrUploadMaterial.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUploadMaterial.Error(),
		})
		return
	}

	if err := mq.SendMessage(c.Request.Context(), &mq.Message{
		Topic: mq.TopicStudyMaterial,
		Tag:   etl.TagETL,
		Payload: etl.ETLMessage{
			FileType:   model.FileType(req.FileType),
			ObjectName: req.ObjectName,
		},
	}); err != nil {
		slog.Error("failed to queue ETL task", "object_name", req.ObjectName, "err", err)
	}

	c.JSON(http.StatusOK, response.Response{})
}

// DeleteMaterial drops the metadata row and queues cleanup of the
// vectors and the stored object.
func DeleteMaterial(c *gin.Context) {
	email := c.GetString("email")
	fileName := c.Query("file-name")
	if err := dao.DeleteMaterialByEmailAndFileName(email, fileName); err != nil {
		slog.Error(ErrDeleteMaterial.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteMaterial.Error(),
		})
		return
	}

	extension := filepath.Ext(fileName)
	fileType := strings.TrimPrefix(extension, ".")

	if err := mq.SendMessage(c.Request.Context(), &mq.Message{
		Topic: mq.TopicStudyMaterial,
		Tag:   etl.TagDelete,
		Payload: etl.DeleteMessage{
			FileType:   model.FileType(fileType),
			ObjectName: email + "/" + fileName,
		},
	}); err != nil {
		slog.Error("failed to queue delete task", "file_name", fileName, "err", err)
	}

	c.JSON(http.StatusOK, response.Response{})
}

func GetPresignedURL(c *gin.Context) {
	email := c.GetString("email")
	fileName := c.Query("file-name")
	objectName := email + "/" + fileName

	url, err := material.GeneratePresignedURL(objectName)
	if err != nil {
		slog.Error(ErrGetPreSignedURL.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetPreSignedURL.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.GetPreSignedURLResponse{
			URL: url,
		},
	})
}
