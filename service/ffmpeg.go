package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"StoryToVideo-gateway/config"
)

// 分镜间淡入淡出时长（秒）
const fadeDuration = 0.35

// Finisher 把场景时间参数转换为编码器调用并同步执行。
// 编码是 CPU/子进程密集的，通过槽位上限隔离，避免拖住其他任务的网络阶段。
type Finisher struct {
	Bin      string
	FinalDir string
	ClipsDir string
	TmpDir   string

	slots chan struct{}

	// run 可注入，测试中替换掉真实的 ffmpeg 进程
	run func(ctx context.Context, desc string, args []string) error
}

func NewFinisher(cfg *config.Config) *Finisher {
	maxConcurrent := cfg.Encoder.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	f := &Finisher{
		Bin:      cfg.Encoder.FFmpegBin,
		FinalDir: cfg.Pipeline.FinalDir,
		ClipsDir: cfg.Pipeline.ClipsDir,
		TmpDir:   filepath.Join(cfg.Pipeline.FinalDir, "tmp"),
		slots:    make(chan struct{}, maxConcurrent),
	}
	f.run = f.execRun
	return f
}

// FallbackClip 图生视频服务不可用时，用静帧本地合成等时长的降级片段。
func (f *Finisher) FallbackClip(ctx context.Context, framePath, sceneID string, fps, numFrames int) (string, error) {
	if err := os.MkdirAll(f.ClipsDir, 0o755); err != nil {
		return "", fmt.Errorf("创建 clips 目录失败: %w", err)
	}
	out := filepath.Join(f.ClipsDir, sceneID+"_fallback.mp4")
	duration := float64(numFrames) / float64(max(fps, 1))
	if duration < 0.5 {
		duration = 0.5
	}
	args := fallbackArgs(framePath, out, fps, duration)
	if err := f.runFFmpeg(ctx, "fallback "+sceneID, args); err != nil {
		return "", err
	}
	return out, nil
}

func fallbackArgs(framePath, out string, fps int, duration float64) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-t", fmt.Sprintf("%.2f", duration),
		"-i", framePath,
		"-vf", fmt.Sprintf("fps=%d", fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		out,
	}
}

// MuxClip 为单个分镜合成画面与旁白：淡入淡出 + 音频补齐/截断到较短流。
func (f *Finisher) MuxClip(ctx context.Context, videoPath, audioPath, sceneID string, clipDuration float64) (string, error) {
	if err := os.MkdirAll(f.TmpDir, 0o755); err != nil {
		return "", fmt.Errorf("创建 tmp 目录失败: %w", err)
	}
	out := filepath.Join(f.TmpDir, sceneID+"_mux.mp4")
	args := muxArgs(videoPath, audioPath, out, clipDuration)
	if err := f.runFFmpeg(ctx, "mux "+sceneID, args); err != nil {
		return "", err
	}
	return out, nil
}

func muxArgs(videoPath, audioPath, out string, clipDuration float64) []string {
	fadeOutStart := clipDuration - fadeDuration
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}
	vf := fmt.Sprintf("format=yuv420p,fade=t=in:st=0:d=%.2f,fade=t=out:st=%.2f:d=%.2f",
		fadeDuration, fadeOutStart, fadeDuration)
	return []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-af", "apad",
		"-shortest",
		out,
	}
}

// Concat 按顺序清单拼接已合成的分镜片段，产出最终成片。
func (f *Finisher) Concat(ctx context.Context, taskID string, clipPaths []string) (string, error) {
	if err := os.MkdirAll(f.TmpDir, 0o755); err != nil {
		return "", fmt.Errorf("创建 tmp 目录失败: %w", err)
	}
	if err := os.MkdirAll(f.FinalDir, 0o755); err != nil {
		return "", fmt.Errorf("创建 final 目录失败: %w", err)
	}

	listFile := filepath.Join(f.TmpDir, "concat_"+taskID+".txt")
	var manifest strings.Builder
	for _, p := range clipPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		fmt.Fprintf(&manifest, "file '%s'\n", filepath.ToSlash(abs))
	}
	if err := os.WriteFile(listFile, []byte(manifest.String()), 0o644); err != nil {
		return "", fmt.Errorf("写入拼接清单失败: %w", err)
	}

	out := filepath.Join(f.FinalDir, "final_"+taskID+".mp4")
	if err := f.runFFmpeg(ctx, "concat "+taskID, concatArgs(listFile, out)); err != nil {
		return "", err
	}
	return out, nil
}

func concatArgs(listFile, out string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-profile:v", "main",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		out,
	}
}

// runFFmpeg 占用一个编码槽位后同步执行。
func (f *Finisher) runFFmpeg(ctx context.Context, desc string, args []string) error {
	select {
	case f.slots <- struct{}{}:
	case <-ctx.Done():
		return &EncodingError{Desc: desc, Err: ctx.Err()}
	}
	defer func() { <-f.slots }()
	return f.run(ctx, desc, args)
}

func (f *Finisher) execRun(ctx context.Context, desc string, args []string) error {
	cmd := exec.CommandContext(ctx, f.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &EncodingError{Desc: desc, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}
