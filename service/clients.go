package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"StoryToVideo-gateway/config"
	"StoryToVideo-gateway/models"
)

// Generators 聚合四个下游生成服务的客户端。
// 每类服务携带独立的超时：分镜/生图/配音超时即阶段失败，
// 图生视频超时由调用方触发本地降级。
type Generators struct {
	Storyboard config.GeneratorConfig
	Image      config.GeneratorConfig
	Video      config.GeneratorConfig
	Narration  config.GeneratorConfig

	client *http.Client
}

func NewGenerators(cfg *config.Config) *Generators {
	return &Generators{
		Storyboard: cfg.Generators.Storyboard,
		Image:      cfg.Generators.Image,
		Video:      cfg.Generators.Video,
		Narration:  cfg.Generators.Narration,
		client:     &http.Client{},
	}
}

type StoryboardScene struct {
	SceneID     string `json:"scene_id"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Prompt      string `json:"prompt"`
	Description string `json:"description"`
	Narration   string `json:"narration"`
	Text        string `json:"text"`
	Bgm         string `json:"bgm"`
}

// Key 场景标识，scene_id / id 两种返回形态都兼容。
func (s StoryboardScene) Key(fallbackIdx int) string {
	if s.SceneID != "" {
		return s.SceneID
	}
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("s%d", fallbackIdx+1)
}

// BasePrompt 场景的原始（未加风格前缀）提示词。
func (s StoryboardScene) BasePrompt() string {
	if s.Prompt != "" {
		return s.Prompt
	}
	return s.Description
}

// NarrationText 旁白文本，缺失时由调用方回退到提示词。
func (s StoryboardScene) NarrationText() string {
	if s.Narration != "" {
		return s.Narration
	}
	return s.Text
}

type NarrationLine struct {
	SceneID string `json:"scene_id"`
	Text    string `json:"text"`
}

// postJSON 统一的 JSON 调用入口，非 2xx、网络错误、非 JSON 响应均包装为 UpstreamError。
func (g *Generators) postJSON(ctx context.Context, service string, gc config.GeneratorConfig, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &UpstreamError{Service: service, Err: fmt.Errorf("marshal request: %w", err)}
	}

	callCtx := ctx
	if gc.TimeoutSec > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(gc.TimeoutSec)*time.Second)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, gc.URL, bytes.NewReader(body))
	if err != nil {
		return &UpstreamError{Service: service, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &UpstreamError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &UpstreamError{Service: service, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Service: service, Err: fmt.Errorf("non-JSON response: %w", err)}
	}
	return nil
}

// GenerateStoryboard 请求分镜脚本，返回有序的场景列表。
func (g *Generators) GenerateStoryboard(ctx context.Context, story, style string, scenes int) ([]StoryboardScene, error) {
	payload := models.JSONMap{
		"story":  story,
		"style":  style,
		"scenes": scenes,
	}
	var resp struct {
		Storyboard []StoryboardScene `json:"storyboard"`
		Shots      []StoryboardScene `json:"shots"`
	}
	if err := g.postJSON(ctx, "storyboard", g.Storyboard, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Storyboard) > 0 {
		return resp.Storyboard, nil
	}
	return resp.Shots, nil
}

// GenerateImage 单次文生图调用，返回原始 image 描述列表（path/url 字段按服务实现而定）。
func (g *Generators) GenerateImage(ctx context.Context, prompt, sceneID string, width, height, steps int, cfgScale float64) ([]models.JSONMap, error) {
	payload := models.JSONMap{
		"prompt":   prompt,
		"scene_id": sceneID,
		"style": models.JSONMap{
			"width":               width,
			"height":              height,
			"num_inference_steps": steps,
			"guidance_scale":      cfgScale,
		},
	}
	var resp struct {
		Images []models.JSONMap `json:"images"`
	}
	if err := g.postJSON(ctx, "image", g.Image, payload, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// GenerateVideo 图生视频调用。错误或空结果由调用方降级处理。
func (g *Generators) GenerateVideo(ctx context.Context, framePath, sceneID string, fps, numFrames int) (string, error) {
	payload := models.JSONMap{
		"frame":      framePath,
		"scene_id":   sceneID,
		"fps":        fps,
		"num_frames": numFrames,
	}
	var resp struct {
		Video string `json:"video"`
	}
	if err := g.postJSON(ctx, "video", g.Video, payload, &resp); err != nil {
		return "", err
	}
	return resp.Video, nil
}

// GenerateNarration 全部分镜一次批量配音。
func (g *Generators) GenerateNarration(ctx context.Context, lines []NarrationLine, speaker string, speed float64) ([]models.JSONMap, error) {
	payload := models.JSONMap{
		"lines":   lines,
		"speaker": speaker,
		"speed":   speed,
	}
	var resp struct {
		Audios []models.JSONMap `json:"audios"`
	}
	if err := g.postJSON(ctx, "narration", g.Narration, payload, &resp); err != nil {
		return nil, err
	}
	return resp.Audios, nil
}

// getString 安全地从通用 map 中取字符串。
func getString(m models.JSONMap, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstString 依次尝试多个键，返回第一个非空字符串。
func firstString(m models.JSONMap, keys ...string) string {
	for _, k := range keys {
		if s := getString(m, k); s != "" {
			return s
		}
	}
	return ""
}
