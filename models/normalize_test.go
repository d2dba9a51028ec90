package models

import "testing"

func TestApplyDefaultsZeroValues(t *testing.T) {
	r := RenderRequest{Story: "一只猫的冒险"}
	r.ApplyDefaults()

	if r.Scenes != 4 {
		t.Errorf("Scenes = %d, want 4", r.Scenes)
	}
	if r.Width != 768 || r.Height != 512 {
		t.Errorf("分辨率默认值 = %dx%d, want 768x512", r.Width, r.Height)
	}
	if r.FPS != 12 {
		t.Errorf("FPS = %d, want 12", r.FPS)
	}
	if r.ClipSeconds != 5.0 {
		t.Errorf("ClipSeconds = %v, want 5.0", r.ClipSeconds)
	}
	if r.VideoFrames != 60 {
		t.Errorf("VideoFrames = %d, want 60", r.VideoFrames)
	}
	if r.Speed != 1.0 {
		t.Errorf("Speed = %v, want 1.0", r.Speed)
	}
}

func TestApplyDefaultsClampsOutOfRange(t *testing.T) {
	r := RenderRequest{
		Story:       "s",
		Scenes:      99,
		Width:       10000,
		Height:      1,
		FPS:         200,
		VideoFrames: 100000,
		Speed:       9.9,
	}
	r.ApplyDefaults()

	if r.Scenes != 20 {
		t.Errorf("Scenes = %d, want 20", r.Scenes)
	}
	if r.Width != 2048 {
		t.Errorf("Width = %d, want 2048", r.Width)
	}
	if r.Height != 256 {
		t.Errorf("Height = %d, want 256", r.Height)
	}
	if r.FPS != 30 {
		t.Errorf("FPS = %d, want 30", r.FPS)
	}
	if r.VideoFrames != 480 {
		t.Errorf("VideoFrames = %d, want 480", r.VideoFrames)
	}
	if r.Speed != 2.0 {
		t.Errorf("Speed = %v, want 2.0", r.Speed)
	}
}

func TestValidateRequiresStory(t *testing.T) {
	r := RenderRequest{}
	if err := r.Validate(); err == nil {
		t.Fatalf("空 story 应校验失败")
	}
	r.Story = "x"
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestParseIntDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 7, 7},
		{"abc", 7, 7},
		{"42", 7, 42},
		{"-3", 7, -3},
	}
	for _, c := range cases {
		if got := ParseIntDefault(c.in, c.def); got != c.want {
			t.Errorf("ParseIntDefault(%q, %d) = %d, want %d", c.in, c.def, got, c.want)
		}
	}
}

func TestRenderFromEnvelopeEmpty(t *testing.T) {
	r := RenderFromEnvelope(TaskEnvelope{})

	if r.Story != "story" {
		t.Errorf("Story = %q, want %q", r.Story, "story")
	}
	if r.Scenes != 1 {
		t.Errorf("Scenes = %d, want 1", r.Scenes)
	}
	if r.FPS != 12 {
		t.Errorf("FPS = %d, want 12", r.FPS)
	}
	if r.VideoFrames != 60 {
		t.Errorf("VideoFrames = %d, want 60 (fps*5)", r.VideoFrames)
	}
	if r.Width != 768 || r.Height != 512 {
		t.Errorf("分辨率 = %dx%d, want 768x512", r.Width, r.Height)
	}
}

func TestRenderFromEnvelopeStoryFallbackChain(t *testing.T) {
	env := TaskEnvelope{Message: "来自消息的故事"}
	if got := RenderFromEnvelope(env).Story; got != "来自消息的故事" {
		t.Errorf("story 应回退到 message, got %q", got)
	}

	env.Parameters = &EnvelopeParameters{
		Shot: &ShotParams{Prompt: "提示词故事"},
	}
	if got := RenderFromEnvelope(env).Story; got != "提示词故事" {
		t.Errorf("shot.prompt 应优先于 message, got %q", got)
	}

	env.Parameters.ShotDefaults = &ShotDefaultsParams{StoryText: "正文故事"}
	if got := RenderFromEnvelope(env).Story; got != "正文故事" {
		t.Errorf("story_text 应最优先, got %q", got)
	}
}

func TestRenderFromEnvelopeBadNumbers(t *testing.T) {
	env := TaskEnvelope{
		Parameters: &EnvelopeParameters{
			Shot:  &ShotParams{ImageWidth: "not-a-number", ImageHeight: "64"},
			Video: &VideoParams{FPS: 999},
		},
	}
	r := RenderFromEnvelope(env)

	if r.Width != 768 {
		t.Errorf("非法宽度应回退默认值, got %d", r.Width)
	}
	if r.Height != 256 {
		t.Errorf("过小高度应钳制到 256, got %d", r.Height)
	}
	if r.FPS != 30 {
		t.Errorf("过大 fps 应钳制到 30, got %d", r.FPS)
	}
}

func TestParametersFromRender(t *testing.T) {
	r := RenderRequest{Story: "s", Style: "cyberpunk", Scenes: 3, Width: 640, Height: 360, FPS: 24, ImagesPerScene: 2}
	params := ParametersFromRender(r)

	shot := params["shot"].(JSONMap)
	if shot["style"] != "cyberpunk" || shot["shot_count"] != 3 {
		t.Fatalf("shot 参数不符: %v", shot)
	}
	video := params["video"].(JSONMap)
	if video["resolution"] != "640x360" {
		t.Errorf("resolution = %v, want 640x360", video["resolution"])
	}
	if video["fps"] != "24" {
		t.Errorf("fps = %v, want \"24\"", video["fps"])
	}
	if video["format"] != "mp4" {
		t.Errorf("format = %v, want mp4", video["format"])
	}
}

func TestParametersFromEnvelopeResolutionFallback(t *testing.T) {
	env := TaskEnvelope{
		Parameters: &EnvelopeParameters{
			Shot: &ShotParams{ImageWidth: "800", ImageHeight: "600"},
		},
	}
	params := ParametersFromEnvelope(env)

	video := params["video"].(JSONMap)
	if video["resolution"] != "800x600" {
		t.Errorf("resolution 应由宽高推导, got %v", video["resolution"])
	}
}

func TestNewResourceIDFallback(t *testing.T) {
	res := NewResource("/files/clips/s1_fallback.mp4", ResourceVideoClip, "", nil)
	if res["resource_id"] != "s1_fallback" {
		t.Errorf("resource_id 应取文件名主干, got %v", res["resource_id"])
	}

	res = NewResource("", ResourceVideo, "", nil)
	if res["resource_id"] == "" {
		t.Errorf("url 与 rid 均缺失时应分配新 id")
	}
}
