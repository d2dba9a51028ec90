package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"StoryToVideo-gateway/config"

	"github.com/hibiken/asynq"
)

// Processor 队列消费者，把 asynq 消息交给编排器执行。
type Processor struct {
	orch *Orchestrator
}

func NewProcessor(orch *Orchestrator) *Processor {
	return &Processor{orch: orch}
}

// StartProcessor 启动任务消费者。Redis 未配置时不启动，
// 此时分发器走本地 goroutine，消费者没有存在的必要。
func (p *Processor) StartProcessor(cfg *config.Config, concurrency int) {
	if cfg.Redis.Addr == "" {
		log.Println("Redis 未配置，任务在本进程直接执行")
		return
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateTask, p.HandleGenerateTask)

	log.Printf("Starting Task Processor with concurrency %d...", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run server: %v", err)
		}
	}()
}

// HandleGenerateTask 消费一条任务消息。业务失败写入任务状态即可，
// 返回 nil 防止队列重试整条流水线。
func (p *Processor) HandleGenerateTask(ctx context.Context, t *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing Task: %s", payload.TaskID)
	p.orch.Run(ctx, payload.TaskID, payload.Run)
	return nil
}
