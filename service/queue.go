package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"StoryToVideo-gateway/config"

	"github.com/hibiken/asynq"
)

const (
	TypeGenerateTask = "task:generate"
)

// TaskPayload 队列消息体。任务参数不从注册表回查，
// 连同执行上下文一起下发，消费者拿到即可执行。
type TaskPayload struct {
	TaskID string     `json:"task_id"`
	Run    RunContext `json:"run"`
}

// Dispatcher 任务分发入口。Redis 可用时经 asynq 入队，
// 否则直接在本进程起 goroutine 执行，行为对调用方一致。
type Dispatcher struct {
	client *asynq.Client
	orch   *Orchestrator
}

func NewDispatcher(cfg *config.Config, orch *Orchestrator) *Dispatcher {
	d := &Dispatcher{orch: orch}
	if cfg.Redis.Addr != "" {
		d.client = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
	}
	return d
}

// Dispatch 把任务送去执行。失败降级在图生视频阶段内部处理，
// 队列级别不做重试（MaxRetry 0），避免半成品流水线重复跑。
func (d *Dispatcher) Dispatch(taskID string, run RunContext) error {
	if d.client == nil {
		d.runDirect(taskID, run)
		return nil
	}

	payload, err := json.Marshal(TaskPayload{TaskID: taskID, Run: run})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypeGenerateTask, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute), // 显卡生成较慢，设置较长超时
		asynq.Retention(24*time.Hour),
	)

	info, err := d.client.Enqueue(task)
	if err != nil {
		// Redis 不可达时退回本进程执行
		log.Printf("[Queue] 入队失败，改为本地执行: %v", err)
		d.runDirect(taskID, run)
		return nil
	}

	log.Printf("[Queue] Task Enqueued: ID=%s, TaskID=%s", info.ID, taskID)
	return nil
}

func (d *Dispatcher) runDirect(taskID string, run RunContext) {
	go d.orch.Run(context.Background(), taskID, run)
}
