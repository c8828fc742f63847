package dao

import (
	"errors"

	"vstep-prep-backend/model"
	"vstep-prep-backend/request"

	"gorm.io/gorm"
)

func SaveMaterialMetadata(req request.UploadMaterialMetadataRequest, email string) error {
	material := model.StudyMaterial{
		UserEmail:  email,
		FileName:   req.FileName,
		FileType:   model.FileType(req.FileType),
		FileSize:   req.FileSize,
		ObjectName: req.ObjectName,
		Status:     model.StatusUploaded,
	}
	return DB.Create(&material).Error
}

func GetMaterialsByEmail(email string) ([]model.StudyMaterial, error) {
	var materials []model.StudyMaterial
	if err := DB.Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func GetMaterialByEmailAndFileName(email, fileName string) (*model.StudyMaterial, error) {
	var material model.StudyMaterial
	if err := DB.Where("user_email = ? AND file_name = ?", email, fileName).
		First(&material).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &material, nil
}

func DeleteMaterialByEmailAndFileName(email, fileName string) error {
	return DB.Where("user_email = ? AND file_name = ?", email, fileName).
		Delete(&model.StudyMaterial{}).Error
}

func UpdateMaterialStatus(email, fileName string, status model.Status) error {
	return DB.Model(&model.StudyMaterial{}).
		Where("user_email = ? AND file_name = ?", email, fileName).
		Update("status", status).Error
}
