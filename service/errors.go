package service

import "fmt"

// 错误分类：
//   - ValidationError / NotFoundError 直接返回给 HTTP 调用方
//   - 其余错误在任务执行边界被捕获，写入任务的 error/message 字段并终止为 failed，
//     不会回抛给发起请求的调用方

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// UpstreamError 生成服务返回错误、超时或非法负载。
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PipelineInvariantError 流水线不变量被破坏：数量不匹配、必须有结果处为空等。
type PipelineInvariantError struct {
	Reason  string // no_image / narration_count_mismatch / missing_audio
	SceneID string
	Detail  string
}

func (e *PipelineInvariantError) Error() string {
	if e.SceneID != "" {
		return fmt.Sprintf("pipeline invariant %s (scene %s): %s", e.Reason, e.SceneID, e.Detail)
	}
	return fmt.Sprintf("pipeline invariant %s: %s", e.Reason, e.Detail)
}

// EncodingError 外部编码器非零退出。
type EncodingError struct {
	Desc   string
	Stderr string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s failed: %v: %s", e.Desc, e.Err, e.Stderr)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
