package api

import (
	"net/http"

	"StoryToVideo-gateway/models"
	"StoryToVideo-gateway/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 分镜列表：GET /v1/api/projects/:project_id/shots
func GetShots(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	projectID := c.Param("project_id")
	if _, err := models.GetProjectByID(DB, projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	shots, err := models.GetShotsByProjectID(DB, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project_id":  projectID,
		"total_shots": len(shots),
		"shots":       shots,
	})
}

// 分镜详情：GET /v1/api/projects/:project_id/shots/:shot_id
func GetShotDetail(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	projectID := c.Param("project_id")
	shotID := c.Param("shot_id")
	shot, err := models.GetShotByID(DB, projectID, shotID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "shot not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot_detail": shot})
}

// 更新分镜：POST /v1/api/projects/:project_id/shots/:shot_id
// 提示词有变化时顺带发起关键帧重绘任务。
func UpdateShot(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	projectID := c.Param("project_id")
	shotID := c.Param("shot_id")
	var req struct {
		Title      string `form:"title" json:"title"`
		Prompt     string `form:"prompt" json:"prompt"`
		Transition string `form:"transition" json:"transition"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := models.GetShotByID(DB, projectID, shotID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "shot not found"})
		return
	}
	if err := models.UpdateShotByID(DB, projectID, shotID, req.Title, req.Prompt, req.Transition); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	taskID := ""
	if req.Prompt != "" {
		task := &models.Task{
			ID:        uuid.NewString(),
			ProjectId: projectID,
			ShotId:    shotID,
			Type:      models.TaskTypeShotImage,
			Status:    models.TaskStatusPending,
			Message:   "queued",
			Parameters: models.JSONMap{
				"shot": models.JSONMap{"style": req.Prompt},
			},
		}
		Registry.Create(task)
		run := service.RunContext{PromptText: req.Prompt}
		if err := Dispatcher.Dispatch(task.ID, run); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "任务分发失败: " + err.Error()})
			return
		}
		taskID = task.ID
	}

	c.JSON(http.StatusOK, gin.H{"shot_id": shotID, "task_id": taskID, "message": "updated"})
}

// 删除分镜：DELETE /v1/api/shots/:shot_id
func DeleteShot(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	shotID := c.Param("shot_id")
	var shot models.Shot
	if err := DB.First(&shot, "id = ?", shotID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "shot not found"})
		return
	}
	if err := models.DeleteShotByID(DB, shot.ProjectId, shotID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted", "shot_id": shotID, "project_id": shot.ProjectId})
}
