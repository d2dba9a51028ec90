package models

import (
	"fmt"
	"strconv"
)

// RenderRequest 扁平渲染请求（POST /render）。
type RenderRequest struct {
	Story          string  `json:"story"`
	Style          string  `json:"style"`
	Scenes         int     `json:"scenes"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	ImgSteps       int     `json:"img_steps"`
	CfgScale       float64 `json:"cfg_scale"`
	ImagesPerScene int     `json:"images_per_scene"`
	FPS            int     `json:"fps"`
	ClipSeconds    float64 `json:"clip_seconds"`
	VideoFrames    int     `json:"video_frames"`
	Speaker        string  `json:"speaker"`
	Speed          float64 `json:"speed"`
}

// ApplyDefaults 零值字段取默认值，并把所有数值钳制到合法区间。
func (r *RenderRequest) ApplyDefaults() {
	if r.Scenes == 0 {
		r.Scenes = 4
	}
	if r.Width == 0 {
		r.Width = 768
	}
	if r.Height == 0 {
		r.Height = 512
	}
	if r.ImgSteps == 0 {
		r.ImgSteps = 4
	}
	if r.CfgScale == 0 {
		r.CfgScale = 1.5
	}
	if r.ImagesPerScene == 0 {
		r.ImagesPerScene = 1
	}
	if r.FPS == 0 {
		r.FPS = 12
	}
	if r.ClipSeconds == 0 {
		r.ClipSeconds = 5.0
	}
	if r.VideoFrames == 0 {
		r.VideoFrames = 60
	}
	if r.Speed == 0 {
		r.Speed = 1.0
	}
	r.Scenes = ClampInt(r.Scenes, 1, 20)
	r.Width = ClampInt(r.Width, 256, 2048)
	r.Height = ClampInt(r.Height, 256, 2048)
	r.ImgSteps = ClampInt(r.ImgSteps, 1, 50)
	r.ImagesPerScene = ClampInt(r.ImagesPerScene, 1, 3)
	r.FPS = ClampInt(r.FPS, 4, 30)
	if r.ClipSeconds < 1.0 {
		r.ClipSeconds = 1.0
	}
	if r.ClipSeconds > 30.0 {
		r.ClipSeconds = 30.0
	}
	r.VideoFrames = ClampInt(r.VideoFrames, 8, 480)
	if r.Speed < 0.5 {
		r.Speed = 0.5
	}
	if r.Speed > 2.0 {
		r.Speed = 2.0
	}
}

// Validate 只校验无法通过钳制修复的字段。
func (r *RenderRequest) Validate() error {
	if r.Story == "" {
		return fmt.Errorf("story 不能为空")
	}
	return nil
}

// ---- 通用任务信封（POST /v1/generate，兼容旧版 server 的下发格式）----

type ShotDefaultsParams struct {
	ShotCount int    `json:"shot_count"`
	Style     string `json:"style"`
	StoryText string `json:"storyText"`
}

type ShotParams struct {
	Transition  string `json:"transition"`
	ShotId      string `json:"shotId,omitempty"`
	ImageWidth  string `json:"image_width"`
	ImageHeight string `json:"image_height"`
	Prompt      string `json:"prompt"`
	Style       string `json:"style"`
	TextLLM     string `json:"text_llm"`
	ImageLLM    string `json:"image_llm"`
	GenerateTTS bool   `json:"generate_tts"`
}

type VideoParams struct {
	Resolution string `json:"resolution"`
	FPS        int    `json:"fps"`
	Format     string `json:"format"`
	Bitrate    int    `json:"bitrate"`
}

type TTSParams struct {
	Voice      string `json:"voice"`
	Lang       string `json:"lang"`
	SampleRate int    `json:"sample_rate"`
	Format     string `json:"format"`
}

type EnvelopeParameters struct {
	ShotDefaults *ShotDefaultsParams `json:"shot_defaults,omitempty"`
	Shot         *ShotParams         `json:"shot,omitempty"`
	Video        *VideoParams        `json:"video,omitempty"`
	TTS          *TTSParams          `json:"tts,omitempty"`
}

// TaskEnvelope 任务信封请求，也兼容直接提交 TaskState 形态的更新
// （status/progress/result 等字段原样进入规范化流程）。
type TaskEnvelope struct {
	ID                string              `json:"id"`
	ProjectId         string              `json:"projectId"`
	ShotId            string              `json:"shotId"`
	Type              string              `json:"type"`
	Status            string              `json:"status"`
	Progress          int                 `json:"progress"`
	Message           string              `json:"message"`
	Parameters        *EnvelopeParameters `json:"parameters,omitempty"`
	Result            JSONMap             `json:"result,omitempty"`
	Error             string              `json:"error"`
	EstimatedDuration int                 `json:"estimated_duration"`
}

// ParseIntDefault 字符串数字解析，失败时返回默认值而不是报错。
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ParametersFromRender 扁平渲染请求 -> 规范化参数。
func ParametersFromRender(r RenderRequest) JSONMap {
	return NormalizeParameters(JSONMap{
		"shot": JSONMap{
			"style":        r.Style,
			"shot_count":   r.Scenes,
			"image_count":  r.ImagesPerScene,
			"image_width":  r.Width,
			"image_height": r.Height,
		},
		"video": JSONMap{
			"resolution": fmt.Sprintf("%dx%d", r.Width, r.Height),
			"fps":        strconv.Itoa(r.FPS),
			"format":     "mp4",
		},
	})
}

// ParametersFromEnvelope 任务信封 -> 规范化参数。
// 数值字段（宽高）来自字符串，解析失败回退 0，绝不报错。
func ParametersFromEnvelope(env TaskEnvelope) JSONMap {
	params := env.Parameters
	if params == nil {
		params = &EnvelopeParameters{}
	}
	defaults := params.ShotDefaults
	if defaults == nil {
		defaults = &ShotDefaultsParams{}
	}
	shot := params.Shot
	if shot == nil {
		shot = &ShotParams{}
	}
	video := params.Video
	if video == nil {
		video = &VideoParams{}
	}

	width := ParseIntDefault(shot.ImageWidth, 0)
	height := ParseIntDefault(shot.ImageHeight, 0)
	resolution := video.Resolution
	if resolution == "" && width > 0 && height > 0 {
		resolution = fmt.Sprintf("%dx%d", width, height)
	}
	fps := ""
	if video.FPS != 0 {
		fps = strconv.Itoa(video.FPS)
	}
	style := shot.Style
	if style == "" {
		style = defaults.Style
	}

	return NormalizeParameters(JSONMap{
		"shot": JSONMap{
			"style":        style,
			"text_llm":     shot.TextLLM,
			"image_llm":    shot.ImageLLM,
			"generate_tts": shot.GenerateTTS,
			"shot_count":   defaults.ShotCount,
			"image_width":  width,
			"image_height": height,
		},
		"video": JSONMap{
			"format":             video.Format,
			"resolution":         resolution,
			"fps":                fps,
			"transition_effects": shot.Transition,
		},
	})
}

// RenderFromEnvelope 从信封推导内部渲染请求，缺失字段取与旧网关一致的默认值。
func RenderFromEnvelope(env TaskEnvelope) RenderRequest {
	params := env.Parameters
	if params == nil {
		params = &EnvelopeParameters{}
	}
	defaults := params.ShotDefaults
	if defaults == nil {
		defaults = &ShotDefaultsParams{}
	}
	shot := params.Shot
	if shot == nil {
		shot = &ShotParams{}
	}
	video := params.Video
	if video == nil {
		video = &VideoParams{}
	}
	tts := params.TTS
	if tts == nil {
		tts = &TTSParams{}
	}

	story := defaults.StoryText
	if story == "" {
		story = shot.Prompt
	}
	if story == "" {
		story = env.Message
	}
	if story == "" {
		story = "story"
	}

	scenes := defaults.ShotCount
	if scenes == 0 {
		scenes = 1
	}
	fps := video.FPS
	if fps == 0 {
		fps = 12
	}
	fps = ClampInt(fps, 4, 30)
	clipSeconds := 5.0
	req := RenderRequest{
		Story:          story,
		Style:          defaults.Style,
		Scenes:         ClampInt(scenes, 1, 20),
		Width:          ClampInt(ParseIntDefault(shot.ImageWidth, 768), 256, 2048),
		Height:         ClampInt(ParseIntDefault(shot.ImageHeight, 512), 256, 2048),
		ImgSteps:       4,
		CfgScale:       1.5,
		ImagesPerScene: 1,
		FPS:            fps,
		ClipSeconds:    clipSeconds,
		VideoFrames:    max(int(float64(fps)*clipSeconds), 8),
		Speaker:        tts.Voice,
		Speed:          1.0,
	}
	return req
}

// PromptFromEnvelope 单阶段任务（生图/配音）使用的文本。
func PromptFromEnvelope(env TaskEnvelope) string {
	if env.Parameters != nil && env.Parameters.Shot != nil && env.Parameters.Shot.Prompt != "" {
		return env.Parameters.Shot.Prompt
	}
	if env.Parameters != nil && env.Parameters.ShotDefaults != nil && env.Parameters.ShotDefaults.StoryText != "" {
		return env.Parameters.ShotDefaults.StoryText
	}
	return env.Message
}
