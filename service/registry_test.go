package service

import (
	"fmt"
	"sync"
	"testing"

	"StoryToVideo-gateway/models"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewPublisher())
}

func TestCreateNormalizesSchema(t *testing.T) {
	reg := newTestRegistry()
	snap := reg.Create(&models.Task{ID: "t1", Type: models.TaskTypeVideoGen})

	if snap.Status != models.TaskStatusPending {
		t.Errorf("Status = %q, want pending", snap.Status)
	}
	if _, ok := snap.Parameters["shot"].(models.JSONMap); !ok {
		t.Errorf("参数 schema 未补全: %v", snap.Parameters)
	}
	if _, ok := snap.Result["legacy"].(models.JSONMap); !ok {
		t.Errorf("结果信封未补全: %v", snap.Result)
	}
	if snap.CreatedAt == "" || snap.UpdatedAt == "" {
		t.Errorf("时间戳缺失")
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(&models.Task{ID: "t1"})

	a, err := reg.Get("t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	a.Status = "mangled"

	b, _ := reg.Get("t1")
	if b.Status == "mangled" {
		t.Fatalf("Get 返回了内部指针而不是快照")
	}

	if _, err := reg.Get("missing"); err == nil {
		t.Fatalf("未知任务应返回 NotFoundError")
	}
}

func TestTerminalGuard(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(&models.Task{ID: "t1"})

	if _, err := reg.Update("t1", TaskUpdate{
		Status:     models.TaskStatusSuccess,
		Progress:   intp(100),
		FinishedAt: models.NowISO(),
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// 终态之后迟到的阶段写入应被整体丢弃
	snap, err := reg.Update("t1", TaskUpdate{
		Status:   models.TaskStatusProcessing,
		Progress: intp(50),
		Message:  strp("late write"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if snap.Status != models.TaskStatusSuccess {
		t.Errorf("终态被改写: %q", snap.Status)
	}
	if snap.Message == "late write" {
		t.Errorf("终态任务的 message 被改写")
	}
}

func TestProgressMonotonic(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(&models.Task{ID: "t1"})

	reg.Update("t1", TaskUpdate{Progress: intp(40)})
	snap, _ := reg.Update("t1", TaskUpdate{Progress: intp(25), Message: strp("still ok")})

	if snap.Progress != 40 {
		t.Errorf("进度回退: %d", snap.Progress)
	}
	if snap.Message != "still ok" {
		t.Errorf("进度之外的字段应正常更新: %q", snap.Message)
	}
}

func TestCancelSemantics(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(&models.Task{ID: "t1"})

	snap, err := reg.Cancel("t1", "stopped by user")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if snap.Status != models.TaskStatusCancelled {
		t.Errorf("Status = %q, want cancelled", snap.Status)
	}
	if snap.FinishedAt == "" {
		t.Errorf("取消应写 FinishedAt")
	}

	// 已终态任务再取消不改变状态
	reg.Create(&models.Task{ID: "t2", Status: models.TaskStatusSuccess})
	snap, _ = reg.Cancel("t2", "ignored")
	if snap.Status != models.TaskStatusSuccess {
		t.Errorf("终态任务被取消改写: %q", snap.Status)
	}

	if _, err := reg.Cancel("missing", "x"); err == nil {
		t.Errorf("未知任务取消应报错")
	}
}

func TestResultMergeKeepsEarlierStages(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(&models.Task{ID: "t1"})

	reg.Update("t1", TaskUpdate{Result: models.JSONMap{
		"resources": []interface{}{models.JSONMap{"resource_type": "storyboard"}},
	}})
	snap, _ := reg.Update("t1", TaskUpdate{Result: models.JSONMap{
		"legacy": models.JSONMap{"task_audio": models.JSONMap{"total_audios": 2}},
	}})

	resources := snap.Result["resources"].([]interface{})
	if len(resources) != 1 {
		t.Errorf("legacy 更新抹掉了 resources: %v", resources)
	}
	audio := snap.Result["legacy"].(models.JSONMap)["task_audio"].(models.JSONMap)
	if audio["total_audios"] != 2 {
		t.Errorf("task_audio 未合并: %v", audio)
	}
}

func TestConcurrentCreates(t *testing.T) {
	reg := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("t%d", n)
			reg.Create(&models.Task{ID: id})
			reg.Update(id, TaskUpdate{Progress: intp(n)})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		if _, err := reg.Get(fmt.Sprintf("t%d", i)); err != nil {
			t.Fatalf("任务 t%d 丢失: %v", i, err)
		}
	}
}

func TestSubscribePrimesCurrentSnapshot(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(&models.Task{ID: "t1", Message: "queued"})

	ch := reg.Subscribe("t1")
	defer reg.Unsubscribe("t1", ch)

	select {
	case snap := <-ch:
		if snap.Message != "queued" {
			t.Errorf("初始快照不符: %q", snap.Message)
		}
	default:
		t.Fatalf("订阅已有任务应立即收到当前快照")
	}
}

func TestFindByProject(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(&models.Task{ID: "t1", ProjectId: "p1"})
	reg.Create(&models.Task{ID: "t2", ProjectId: "p1"})
	reg.Update("t2", TaskUpdate{Progress: intp(5)})

	snap, ok := reg.FindByProject("p1")
	if !ok {
		t.Fatalf("项目任务未找到")
	}
	if snap.ID != "t2" {
		t.Errorf("应返回最近更新的任务, got %s", snap.ID)
	}

	if _, ok := reg.FindByProject("nope"); ok {
		t.Errorf("未知项目不应命中")
	}
}
