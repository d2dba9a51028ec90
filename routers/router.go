package routers

import (
	"StoryToVideo-gateway/config"
	"StoryToVideo-gateway/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter(cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Static("/files", cfg.Server.StaticRoot)
	r.GET("/health", api.Health)

	r.POST("/render", api.Render)
	r.GET("/tasks/:task_id", api.GetTaskStatus)
	r.GET("/tasks/:task_id/stream", api.TaskStream)
	r.GET("/tasks/:task_id/wss", api.TaskProgressWebSocket)

	r.POST("/v1/generate", api.GenerateV1)
	r.GET("/v1/tasks/:task_id", api.GetTaskStatusV1)
	r.GET("/v1/jobs/:job_id", api.GetJobStatus)
	r.DELETE("/v1/jobs/:job_id", api.StopJob)

	v1 := r.Group("/v1/api")
	{
		v1.POST("/projects", api.CreateProject)
		v1.GET("/projects/:project_id", api.GetProject)
		v1.PUT("/projects/:project_id", api.UpdateProject)
		v1.DELETE("/projects/:project_id", api.DeleteProject)
		v1.GET("/projects/:project_id/shots", api.GetShots)
		v1.GET("/projects/:project_id/shots/:shot_id", api.GetShotDetail)
		v1.POST("/projects/:project_id/shots/:shot_id", api.UpdateShot)
		v1.DELETE("/shots/:shot_id", api.DeleteShot)
		v1.POST("/projects/:project_id/tts", api.GenerateProjectTTS)
		v1.POST("/projects/:project_id/video", api.GenerateShotVideo)
	}
	return r
}
