package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"StoryToVideo-gateway/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 查询任务状态：GET /tasks/:task_id
func GetTaskStatus(c *gin.Context) {
	taskID := c.Param("task_id")
	t, err := Registry.Get(taskID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// 查询任务状态（包装格式）：GET /v1/tasks/:task_id
func GetTaskStatusV1(c *gin.Context) {
	taskID := c.Param("task_id")
	t, err := Registry.Get(taskID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

// 查询 job：GET /v1/jobs/:job_id（job 与 task 同一标识空间）
func GetJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	t, err := Registry.Get(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// 取消 job：DELETE /v1/jobs/:job_id
// 只把任务置为 cancelled；执行中的阶段跑完后其写入被终态守卫丢弃。
func StopJob(c *gin.Context) {
	jobID := c.Param("job_id")
	t, err := Registry.Cancel(jobID, "stopped by user")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleteAT": t.FinishedAt, "error": ""})
}

// 任务进度 SSE 推送：GET /tasks/:task_id/stream
// 订阅后立刻推一帧当前快照，之后有更新推更新，空闲时 15 秒一次心跳。
func TaskStream(c *gin.Context) {
	taskID := c.Param("task_id")
	if _, err := Registry.Get(taskID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	ch := Registry.Subscribe(taskID)
	defer Registry.Unsubscribe(taskID, ch)

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case snap, open := <-ch:
			if !open {
				return
			}
			// 有数据就不需要心跳，间隔从本帧重新计
			heartbeat.Reset(HeartbeatInterval)
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", data)
			flusher.Flush()
			if snap.Terminal() {
				return
			}
		}
	}
}

// 任务进度 WebSocket 推送：GET /tasks/:task_id/wss
// 与 SSE 同源，推送完终态帧后关闭连接。
func TaskProgressWebSocket(c *gin.Context) {
	taskID := c.Param("task_id")
	if _, err := Registry.Get(taskID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "WebSocket升级失败"})
		return
	}
	defer conn.Close()

	ch := Registry.Subscribe(taskID)
	defer Registry.Unsubscribe(taskID, ch)

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		var snap models.Task
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
			continue
		case s, open := <-ch:
			if !open {
				return
			}
			heartbeat.Reset(HeartbeatInterval)
			snap = s
		}
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
		if snap.Terminal() {
			return
		}
	}
}
