package models

import (
	"time"

	"gorm.io/gorm"
)

// 项目状态常量
const (
	ProjectStatusCreated        = "created"          // 项目已创建，未开始任何生成任务
	ProjectStatusShotsGenerated = "shots_generated"  // 分镜已生成
	ProjectStatusVideoGenerated = "video_generated"  // 整片视频已生成
	ProjectStatusFailed         = "failed"
)

type Project struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title       string    `json:"title"`
	StoryText   string    `json:"storyText"`
	Style       string    `json:"style"`
	Status      string    `json:"status"`
	CoverImage  string    `json:"coverImage"`
	Duration    int       `json:"duration"`
	VideoUrl    string    `json:"videoUrl"`
	Description string    `json:"description"`
	ShotCount   int       `json:"shotCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Project) TableName() string {
	return "project"
}

func CreateProject(db *gorm.DB, p *Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return db.Create(p).Error
}

func GetProjectByID(db *gorm.DB, id string) (*Project, error) {
	var p Project
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func UpdateProjectByID(db *gorm.DB, id, title, description string) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if title != "" {
		updates["title"] = title
	}
	if description != "" {
		updates["description"] = description
	}
	return db.Model(&Project{}).Where("id = ?", id).Updates(updates).Error
}

func UpdateProjectStatus(db *gorm.DB, id, status string) error {
	return db.Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error
}

func DeleteProjectByID(db *gorm.DB, id string) error {
	if err := db.Delete(&Shot{}, "project_id = ?", id).Error; err != nil {
		return err
	}
	return db.Delete(&Project{}, "id = ?", id).Error
}
