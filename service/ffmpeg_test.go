package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"StoryToVideo-gateway/config"
)

type ffmpegCall struct {
	desc string
	args []string
}

func newTestFinisher(t *testing.T) (*Finisher, *[]ffmpegCall) {
	t.Helper()
	cfg := config.Default()
	root := t.TempDir()
	cfg.Pipeline.FinalDir = filepath.Join(root, "final")
	cfg.Pipeline.ClipsDir = filepath.Join(root, "clips")
	cfg.Encoder.MaxConcurrent = 1

	f := NewFinisher(cfg)
	calls := &[]ffmpegCall{}
	f.run = func(ctx context.Context, desc string, args []string) error {
		*calls = append(*calls, ffmpegCall{desc: desc, args: args})
		return nil
	}
	return f, calls
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestFallbackClipArgs(t *testing.T) {
	f, calls := newTestFinisher(t)

	out, err := f.FallbackClip(context.Background(), "frame.png", "s1", 12, 24)
	if err != nil {
		t.Fatalf("FallbackClip: %v", err)
	}
	if filepath.Base(out) != "s1_fallback.mp4" {
		t.Errorf("输出文件名 = %s", filepath.Base(out))
	}

	args := (*calls)[0].args
	if got := argAfter(args, "-t"); got != "2.00" {
		t.Errorf("时长 = %s, want 2.00 (24帧@12fps)", got)
	}
	if got := argAfter(args, "-vf"); got != "fps=12" {
		t.Errorf("vf = %s", got)
	}
	if argAfter(args, "-loop") != "1" {
		t.Errorf("静帧应循环输入")
	}
}

func TestFallbackClipMinDuration(t *testing.T) {
	f, calls := newTestFinisher(t)

	if _, err := f.FallbackClip(context.Background(), "frame.png", "s1", 30, 1); err != nil {
		t.Fatalf("FallbackClip: %v", err)
	}
	if got := argAfter((*calls)[0].args, "-t"); got != "0.50" {
		t.Errorf("过短片段应抬到 0.5s, got %s", got)
	}
}

func TestMuxArgsFadeWindow(t *testing.T) {
	f, calls := newTestFinisher(t)

	if _, err := f.MuxClip(context.Background(), "v.mp4", "a.wav", "s2", 4.0); err != nil {
		t.Fatalf("MuxClip: %v", err)
	}

	args := (*calls)[0].args
	vf := argAfter(args, "-vf")
	if !strings.Contains(vf, "format=yuv420p") {
		t.Errorf("缺少像素格式归一: %s", vf)
	}
	if !strings.Contains(vf, "fade=t=in:st=0:d=0.35") {
		t.Errorf("淡入参数不符: %s", vf)
	}
	if !strings.Contains(vf, "fade=t=out:st=3.65:d=0.35") {
		t.Errorf("淡出起点应为 时长-0.35: %s", vf)
	}
	if argAfter(args, "-af") != "apad" {
		t.Errorf("音频应补齐")
	}
	found := false
	for _, a := range args {
		if a == "-shortest" {
			found = true
		}
	}
	if !found {
		t.Errorf("应以较短流截断")
	}
}

func TestMuxFadeOutNeverNegative(t *testing.T) {
	f, calls := newTestFinisher(t)

	if _, err := f.MuxClip(context.Background(), "v.mp4", "a.wav", "s1", 0.1); err != nil {
		t.Fatalf("MuxClip: %v", err)
	}
	vf := argAfter((*calls)[0].args, "-vf")
	if !strings.Contains(vf, "fade=t=out:st=0.00:") {
		t.Errorf("极短片段淡出起点应钳到 0: %s", vf)
	}
}

func TestConcatWritesManifest(t *testing.T) {
	f, calls := newTestFinisher(t)

	clips := []string{"/data/tmp/s1_mux.mp4", "/data/tmp/s2_mux.mp4"}
	out, err := f.Concat(context.Background(), "task-9", clips)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if filepath.Base(out) != "final_task-9.mp4" {
		t.Errorf("输出文件名 = %s", filepath.Base(out))
	}

	args := (*calls)[0].args
	if argAfter(args, "-f") != "concat" || argAfter(args, "-safe") != "0" {
		t.Errorf("concat demuxer 参数不符: %v", args)
	}

	listFile := argAfter(args, "-i")
	data, err := os.ReadFile(listFile)
	if err != nil {
		t.Fatalf("清单文件未写入: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("清单行数 = %d, want 2", len(lines))
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "file '") || !strings.Contains(line, filepath.Base(clips[i])) {
			t.Errorf("清单第 %d 行格式不符: %s", i+1, line)
		}
	}
}

func TestRunFFmpegCanceledContext(t *testing.T) {
	f, _ := newTestFinisher(t)

	// 先占满唯一槽位，再用已取消的 ctx 排队
	f.slots <- struct{}{}
	defer func() { <-f.slots }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.MuxClip(ctx, "v.mp4", "a.wav", "s1", 1.0)
	if err == nil {
		t.Fatalf("取消的 ctx 应直接失败")
	}
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Errorf("错误类型不符: %T", err)
	}
}
