package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ShotStatusPending    = "pending"
	ShotStatusProcessing = "processing"
	ShotStatusCompleted  = "completed"
	ShotStatusFailed     = "failed"
)

type Shot struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectId   string    `gorm:"index" json:"projectId"`
	Order       int       `gorm:"column:sort_order" json:"order"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Prompt      string    `json:"prompt"`
	Narration   string    `json:"narration"`
	Bgm         string    `json:"bgm"`
	Status      string    `json:"status"`
	ImagePath   string    `json:"imagePath"`
	AudioPath   string    `json:"audioPath"`
	VideoPath   string    `json:"videoPath"`
	Duration    float64   `json:"duration"`
	Transition  string    `json:"transition"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Shot) TableName() string {
	return "shot"
}

func BatchCreateShots(db *gorm.DB, shots []Shot) error {
	if len(shots) == 0 {
		return nil
	}
	return db.Create(&shots).Error
}

func GetShotsByProjectID(db *gorm.DB, projectID string) ([]Shot, error) {
	var shots []Shot
	if err := db.Where("project_id = ?", projectID).Order("sort_order ASC").Find(&shots).Error; err != nil {
		return nil, err
	}
	return shots, nil
}

func GetShotByID(db *gorm.DB, projectID, shotID string) (*Shot, error) {
	var shot Shot
	if err := db.First(&shot, "id = ? AND project_id = ?", shotID, projectID).Error; err != nil {
		return nil, err
	}
	return &shot, nil
}

// UpdateShotByID 只更新非空参数。
func UpdateShotByID(db *gorm.DB, projectID, shotID, title, prompt, transition string) error {
	updates := map[string]interface{}{}
	if title != "" {
		updates["title"] = title
	}
	if prompt != "" {
		updates["prompt"] = prompt
	}
	if transition != "" {
		updates["transition"] = transition
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return db.Model(&Shot{}).Where("id = ? AND project_id = ?", shotID, projectID).Updates(updates).Error
}

func (s *Shot) UpdateImage(db *gorm.DB, imagePath string) error {
	return db.Model(s).Updates(map[string]interface{}{
		"image_path": imagePath,
		"status":     ShotStatusCompleted,
		"updated_at": time.Now(),
	}).Error
}

func DeleteShotByID(db *gorm.DB, projectID, shotID string) error {
	return db.Delete(&Shot{}, "id = ? AND project_id = ?", shotID, projectID).Error
}
