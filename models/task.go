package models

import (
	"time"

	"github.com/google/uuid"
)

// 任务状态（在系统中统一使用这些状态）
const (
	// pending: 任务已创建，等待执行器取走执行
	TaskStatusPending = "pending"
	// processing: 流水线正在执行中
	TaskStatusProcessing = "processing"
	TaskStatusSuccess    = "finished"
	TaskStatusFailed     = "failed"
	// cancelled: 任务被用户取消；执行中的阶段不会被打断，但其后续写入会被丢弃
	TaskStatusCancelled = "cancelled"

	// 四种核心任务类型
	TaskTypeStoryboard   = "generate_storyboard" // 文本 -> 分镜脚本
	TaskTypeShotImage    = "generate_shot"       // 提示词 -> 关键帧图片
	TaskTypeProjectAudio = "generate_audio"      // 文本 -> 旁白语音
	TaskTypeVideoGen     = "generate_video"      // 完整故事 -> 成片
)

// 资源类型（result.resources 中 resource_type 的取值）
const (
	ResourceStoryboard = "storyboard"
	ResourceImage      = "image"
	ResourceVideoClip  = "video_clip"
	ResourceMuxVideo   = "mux_video"
	ResourceAudio      = "audio"
	ResourceVideo      = "video"
)

// JSONMap 承载 parameters / result 的规范化嵌套结构。
// 采用通用 map 而不是强类型结构，是为了支持各阶段的部分更新：
// 合并时只覆盖调用方显式给出的键，其余键保持不变。
type JSONMap = map[string]interface{}

// Task 任务快照。注册表是唯一属主，所有修改都经由 Registry.Update。
type Task struct {
	ID                string  `json:"id"`
	ProjectId         string  `json:"projectId,omitempty"`
	ShotId            string  `json:"shotId,omitempty"`
	Type              string  `json:"type"`
	Status            string  `json:"status"`
	Progress          int     `json:"progress"`
	Message           string  `json:"message"`
	Parameters        JSONMap `json:"parameters"`
	Result            JSONMap `json:"result"`
	Error             string  `json:"error"`
	EstimatedDuration int     `json:"estimatedDuration"`
	StartedAt         string  `json:"startedAt,omitempty"`
	FinishedAt        string  `json:"finishedAt,omitempty"`
	CreatedAt         string  `json:"createdAt,omitempty"`
	UpdatedAt         string  `json:"updatedAt,omitempty"`
}

// Terminal 终态任务不再接受任何修改。
func (t *Task) Terminal() bool {
	switch t.Status {
	case TaskStatusSuccess, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// NowISO 统一的时间戳格式（UTC、RFC3339）。
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// NewResource 构造一条资源引用。rid 为空时按 url 文件名推导，均为空则分配新 id。
func NewResource(url, rtype, rid string, meta JSONMap) JSONMap {
	if rid == "" {
		if url != "" {
			rid = resourceIDFromURL(url)
		} else {
			rid = uuid.NewString()
		}
	}
	res := JSONMap{
		"resource_type": rtype,
		"resource_id":   rid,
		"resource_url":  url,
	}
	if meta != nil {
		res["meta"] = meta
	}
	return res
}

func resourceIDFromURL(url string) string {
	if url == "" {
		return ""
	}
	base := url
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}
