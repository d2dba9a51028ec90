package api

import (
	"net/http"

	"StoryToVideo-gateway/models"
	"StoryToVideo-gateway/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func requireDB(c *gin.Context) bool {
	if DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "数据库未配置，项目接口不可用"})
		return false
	}
	return true
}

// 创建项目：插入项目记录并立即发起分镜脚本任务
func CreateProject(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	var req struct {
		Title     string `form:"Title" json:"title"`
		StoryText string `form:"StoryText" json:"story_text"`
		Style     string `form:"Style" json:"style"`
		ShotCount int    `form:"ShotCount" json:"shot_count"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 默认分镜数量
	if req.ShotCount <= 0 {
		req.ShotCount = 5
	}

	project := models.Project{
		ID:        uuid.NewString(),
		Title:     req.Title,
		StoryText: req.StoryText,
		Style:     req.Style,
		Status:    models.ProjectStatusCreated,
		ShotCount: req.ShotCount,
	}
	if err := models.CreateProject(DB, &project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建项目失败: " + err.Error()})
		return
	}

	task := &models.Task{
		ID:        uuid.NewString(),
		ProjectId: project.ID,
		Type:      models.TaskTypeStoryboard,
		Status:    models.TaskStatusPending,
		Message:   "项目创建任务已创建,正在生成分镜脚本...",
		Parameters: models.JSONMap{
			"shot": models.JSONMap{
				"style":      req.Style,
				"shot_count": req.ShotCount,
			},
		},
	}
	Registry.Create(task)

	run := service.RunContext{
		Story:  req.StoryText,
		Style:  req.Style,
		Scenes: req.ShotCount,
	}
	if err := Dispatcher.Dispatch(task.ID, run); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "任务分发失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project_id":   project.ID,
		"text_task_id": task.ID,
	})
}

// 项目详情：GET /v1/api/projects/:project_id
func GetProject(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	projectID := c.Param("project_id")
	project, err := models.GetProjectByID(DB, projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	shots, err := models.GetShotsByProjectID(DB, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	project.ShotCount = len(shots)

	var recent interface{}
	if t, ok := Registry.FindByProject(projectID); ok {
		recent = t
	}
	c.JSON(http.StatusOK, gin.H{
		"project_detail": project,
		"recent_task":    recent,
		"shots":          shots,
	})
}

// 更新项目：PUT /v1/api/projects/:project_id
func UpdateProject(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	projectID := c.Param("project_id")
	var req struct {
		Title       string `form:"Title" json:"title"`
		Description string `form:"Description" json:"description"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := models.GetProjectByID(DB, projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err := models.UpdateProjectByID(DB, projectID, req.Title, req.Description); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": projectID, "updateAT": models.NowISO()})
}

// 删除项目：DELETE /v1/api/projects/:project_id（连带删除分镜）
func DeleteProject(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	projectID := c.Param("project_id")
	_, err := models.GetProjectByID(DB, projectID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "deleteAt": models.NowISO(), "message": "not found"})
		return
	}
	if err := models.DeleteProjectByID(DB, projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleteAt": models.NowISO(), "message": "deleted"})
}

// 项目配音：POST /v1/api/projects/:project_id/tts
func GenerateProjectTTS(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	projectID := c.Param("project_id")
	project, err := models.GetProjectByID(DB, projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	task := &models.Task{
		ID:        uuid.NewString(),
		ProjectId: project.ID,
		Type:      models.TaskTypeProjectAudio,
		Status:    models.TaskStatusPending,
		Message:   "queued",
	}
	Registry.Create(task)

	run := service.RunContext{
		Story:      project.StoryText,
		PromptText: project.StoryText,
		Speed:      1.0,
	}
	if err := Dispatcher.Dispatch(task.ID, run); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "任务分发失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.ID, "message": "accepted", "project_id": projectID})
}

// 项目成片：POST /v1/api/projects/:project_id/video
// 用项目的故事文本、画风和分镜数量跑完整流水线。
func GenerateShotVideo(c *gin.Context) {
	if !requireDB(c) {
		return
	}
	projectID := c.Param("project_id")
	project, err := models.GetProjectByID(DB, projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	req := models.RenderRequest{
		Story:  project.StoryText,
		Style:  project.Style,
		Scenes: project.ShotCount,
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ApplyDefaults()

	task := &models.Task{
		ID:         uuid.NewString(),
		ProjectId:  project.ID,
		Type:       models.TaskTypeVideoGen,
		Status:     models.TaskStatusPending,
		Message:    "queued",
		Parameters: models.ParametersFromRender(req),
	}
	Registry.Create(task)

	run := service.RunContext{
		Render:  &req,
		Story:   req.Story,
		Style:   req.Style,
		Scenes:  req.Scenes,
		Speaker: req.Speaker,
		Speed:   req.Speed,
	}
	if err := Dispatcher.Dispatch(task.ID, run); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "任务分发失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.ID, "message": "accepted", "project_id": projectID})
}
