package service

import (
	"sync"

	"StoryToVideo-gateway/models"
)

// 每个订阅者的缓冲队列长度。写满即丢弃本次快照（drop-newest），
// 保证执行流的前进优先于严格送达。
const subscriberBuffer = 16

// HeartbeatIntervalSec 无更新时向长连接发送保活心跳的间隔（秒）。
const HeartbeatIntervalSec = 15

// Publisher 按任务 id 做快照扇出。只持有订阅者通道，不拥有任务数据。
type Publisher struct {
	mu   sync.Mutex
	subs map[string]map[chan models.Task]bool
}

func NewPublisher() *Publisher {
	return &Publisher{
		subs: make(map[string]map[chan models.Task]bool),
	}
}

// Subscribe 注册一个订阅者通道。通道由 Publisher 创建，
// 调用方取消订阅后不应再读取。
func (p *Publisher) Subscribe(taskID string) chan models.Task {
	ch := make(chan models.Task, subscriberBuffer)
	p.mu.Lock()
	set, ok := p.subs[taskID]
	if !ok {
		set = make(map[chan models.Task]bool)
		p.subs[taskID] = set
	}
	set[ch] = true
	p.mu.Unlock()
	return ch
}

// Unsubscribe 只移除该订阅者自己的队列。
func (p *Publisher) Unsubscribe(taskID string, ch chan models.Task) {
	p.mu.Lock()
	if set, ok := p.subs[taskID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(p.subs, taskID)
		}
	}
	p.mu.Unlock()
}

// Publish 把快照推给该任务的所有订阅者。尽力送达：队列满则丢弃，绝不阻塞。
func (p *Publisher) Publish(taskID string, snap models.Task) {
	p.mu.Lock()
	set := p.subs[taskID]
	for ch := range set {
		select {
		case ch <- snap:
		default:
			// 订阅者没有及时消费，丢弃本条
		}
	}
	p.mu.Unlock()
}

// SubscriberCount 当前任务的订阅者数量（测试与诊断用）。
func (p *Publisher) SubscriberCount(taskID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs[taskID])
}
