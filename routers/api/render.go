package api

import (
	"net/http"

	"StoryToVideo-gateway/models"
	"StoryToVideo-gateway/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RenderResponse 两个提交入口共用的响应体。
type RenderResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Render 扁平渲染请求入口：POST /render
// 未给出的参数取默认值并收敛到合法区间，提交后立即返回任务号。
func Render(c *gin.Context) {
	var req models.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ApplyDefaults()

	task := &models.Task{
		ID:         uuid.NewString(),
		Type:       models.TaskTypeVideoGen,
		Status:     models.TaskStatusPending,
		Progress:   0,
		Message:    "queued",
		Parameters: models.ParametersFromRender(req),
		Result:     models.DefaultResult(),
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

	c.JSON(http.StatusOK, RenderResponse{JobID: task.ID, Message: "accepted"})
}

// GenerateV1 任务信封入口：POST /v1/generate
// 兼容旧版调度端下发的 TaskState 形态，信封字段映射成内部渲染请求。
func GenerateV1(c *gin.Context) {
	var env models.TaskEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	render := models.RenderFromEnvelope(env)
	taskType := env.Type
	if taskType == "" {
		taskType = models.TaskTypeVideoGen
	}
	message := env.Message
	if message == "" {
		message = "queued"
	}
	shotID := ""
	if env.Parameters != nil && env.Parameters.Shot != nil {
		shotID = env.Parameters.Shot.ShotId
	}

	task := &models.Task{
		ID:                uuid.NewString(),
		ProjectId:         env.ProjectId,
		ShotId:            shotID,
		Type:              taskType,
		Status:            models.TaskStatusPending,
		Progress:          0,
		Message:           message,
		Parameters:        models.ParametersFromEnvelope(env),
		Result:            models.NormalizeResult(env.Result),
		Error:             env.Error,
		EstimatedDuration: env.EstimatedDuration,
	}
	Registry.Create(task)

	run := service.RunContext{
		Render:     &render,
		Story:      render.Story,
		Style:      render.Style,
		Scenes:     render.Scenes,
		PromptText: models.PromptFromEnvelope(env),
		Speaker:    render.Speaker,
		Speed:      render.Speed,
	}
	if err := Dispatcher.Dispatch(task.ID, run); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "任务分发失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, RenderResponse{JobID: task.ID, Message: "accepted"})
}

// Health 服务自检：GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"services": gin.H{
			"storyboard": Cfg.Generators.Storyboard.URL,
			"image":      Cfg.Generators.Image.URL,
			"video":      Cfg.Generators.Video.URL,
			"narration":  Cfg.Generators.Narration.URL,
		},
	})
}
