package service

import (
	"sync"

	"StoryToVideo-gateway/models"
)

// TaskUpdate 对任务的一次部分更新。
// Parameters / Result 与当前值（任务没有时与 schema 默认值）做结构化合并，
// 其余字段为指针可选，nil 表示不更新。
type TaskUpdate struct {
	Status     string
	Progress   *int
	Message    *string
	Error      *string
	Parameters models.JSONMap
	Result     models.JSONMap
	StartedAt  string
	FinishedAt string
}

// Registry 任务注册表：任务记录的唯一属主，进程生命周期内保留，无淘汰。
// 每个任务只有其所属的执行流和取消动作两个写入方，不同任务可并发创建/更新。
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
	pub   *Publisher
}

func NewRegistry(pub *Publisher) *Registry {
	return &Registry{
		tasks: make(map[string]*models.Task),
		pub:   pub,
	}
}

// Create 登记新任务。参数与结果先走规范化，保证后续合并有完整的 schema 基座。
func (r *Registry) Create(t *models.Task) *models.Task {
	now := models.NowISO()
	t.Parameters = models.NormalizeParameters(t.Parameters)
	t.Result = models.NormalizeResult(t.Result)
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if t.CreatedAt == "" {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	r.mu.Lock()
	r.tasks[t.ID] = t
	snap := *t
	r.mu.Unlock()

	r.pub.Publish(snap.ID, snap)
	return &snap
}

// Get 返回任务快照。
func (r *Registry) Get(id string) (*models.Task, error) {
	r.mu.RLock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.RUnlock()
		return nil, &NotFoundError{Kind: "task", ID: id}
	}
	snap := *t
	r.mu.RUnlock()
	return &snap, nil
}

// Update 合并更新任务并广播完整快照。
// 终态任务不再接受任何修改；progress 只增不减。
// 合并总是生成新的 map，已发出的快照不会被后续更新改写。
func (r *Registry) Update(id string, up TaskUpdate) (*models.Task, error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, &NotFoundError{Kind: "task", ID: id}
	}
	if t.Terminal() {
		snap := *t
		r.mu.Unlock()
		return &snap, nil
	}

	if up.Parameters != nil {
		base := t.Parameters
		if base == nil {
			base = models.DefaultParameters()
		}
		t.Parameters = models.NormalizeParameters(models.DeepMerge(base, up.Parameters))
	}
	if up.Result != nil {
		base := t.Result
		if base == nil {
			base = models.DefaultResult()
		}
		t.Result = models.NormalizeResult(models.DeepMerge(base, up.Result))
	}
	if up.Status != "" {
		t.Status = up.Status
	}
	if up.Progress != nil && *up.Progress > t.Progress {
		t.Progress = *up.Progress
	}
	if up.Message != nil {
		t.Message = *up.Message
	}
	if up.Error != nil {
		t.Error = *up.Error
	}
	if up.StartedAt != "" {
		t.StartedAt = up.StartedAt
	}
	if up.FinishedAt != "" {
		t.FinishedAt = up.FinishedAt
	}
	t.UpdatedAt = models.NowISO()

	snap := *t
	r.mu.Unlock()

	r.pub.Publish(snap.ID, snap)
	return &snap, nil
}

// Cancel 把非终态任务置为 cancelled 并广播。正在执行的阶段不会被打断，
// 但它之后的写入会被终态保护丢弃。
func (r *Registry) Cancel(id, message string) (*models.Task, error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, &NotFoundError{Kind: "task", ID: id}
	}
	if t.Terminal() {
		snap := *t
		r.mu.Unlock()
		return &snap, nil
	}
	t.Status = models.TaskStatusCancelled
	t.Message = message
	t.FinishedAt = models.NowISO()
	t.UpdatedAt = t.FinishedAt
	snap := *t
	r.mu.Unlock()

	r.pub.Publish(snap.ID, snap)
	return &snap, nil
}

// FindByProject 返回该项目下最近更新的任务快照。
func (r *Registry) FindByProject(projectID string) (*models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *models.Task
	for _, t := range r.tasks {
		if t.ProjectId != projectID {
			continue
		}
		if best == nil || t.UpdatedAt > best.UpdatedAt {
			best = t
		}
	}
	if best == nil {
		return nil, false
	}
	snap := *best
	return &snap, true
}

// Subscribe 订阅任务快照流。任务已存在时立即压入当前快照，
// 避免“创建之后、首次更新之前订阅”丢失初始状态。
func (r *Registry) Subscribe(taskID string) chan models.Task {
	ch := r.pub.Subscribe(taskID)
	if snap, err := r.Get(taskID); err == nil {
		select {
		case ch <- *snap:
		default:
		}
	}
	return ch
}

func (r *Registry) Unsubscribe(taskID string, ch chan models.Task) {
	r.pub.Unsubscribe(taskID, ch)
}
