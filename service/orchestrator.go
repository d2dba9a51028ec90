package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"StoryToVideo-gateway/config"
	"StoryToVideo-gateway/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 连贯性从句：从第二个分镜起拼接在提示词末尾，引用上一镜头的原始提示词，
// 让相互独立的生图调用保持画面与叙事的延续。
const continuityClause = " 延续上一镜头的场景氛围：%s"

// RunContext 一次流水线执行的输入，随任务一起下发给执行器。
type RunContext struct {
	Render     *models.RenderRequest `json:"render,omitempty"`
	Story      string                `json:"story"`
	Style      string                `json:"style"`
	Scenes     int                   `json:"scenes"`
	PromptText string                `json:"prompt_text"`
	Speaker    string                `json:"speaker"`
	Speed      float64               `json:"speed"`
}

// sceneAsset 编排器内部的分镜资产，不作为任务数据持久化，
// 但会以 legacy.task_shots.generated_shots 的形式进入结果快照。
type sceneAsset struct {
	SceneID     string           `json:"scene_id"`
	Order       int              `json:"order"`
	Title       string           `json:"title"`
	Prompt      string           `json:"prompt"`
	RawPrompt   string           `json:"raw_prompt"`
	Description string           `json:"description"`
	Narration   string           `json:"narration"`
	Bgm         string           `json:"bgm,omitempty"`
	Style       string           `json:"style"`
	Image       models.JSONMap   `json:"image,omitempty"`
	ImagePath   string           `json:"image_path,omitempty"`
	Images      []models.JSONMap `json:"images,omitempty"`
	Video       string           `json:"video,omitempty"`
	Frames      int              `json:"frames,omitempty"`
	Audio       models.JSONMap   `json:"audio,omitempty"`
	AudioPath   string           `json:"audio_path,omitempty"`
	Mux         string           `json:"mux,omitempty"`
}

type clipInfo struct {
	SceneID string `json:"scene_id"`
	Video   string `json:"video"`
	Order   int    `json:"order"`
	Frames  int    `json:"frames"`
	Audio   string `json:"audio,omitempty"`
	Mux     string `json:"mux,omitempty"`
}

// Orchestrator 驱动单个任务的阶段序列。每个任务在独立的 goroutine 中执行，
// 与注册表、发布器之外不共享任何状态。
type Orchestrator struct {
	Registry *Registry
	Gen      *Generators
	Finisher *Finisher

	// DB 可为 nil：项目绑定任务的分镜写库与项目状态回写随之跳过
	DB *gorm.DB
	// Uploader 可为 nil：成片不上传对象存储
	Uploader *Uploader

	StaticRoot       string
	StoryboardDir    string
	Img2VidMaxFrames int
}

func NewOrchestrator(cfg *config.Config, reg *Registry, gen *Generators, fin *Finisher, db *gorm.DB, up *Uploader) *Orchestrator {
	maxFrames := cfg.Encoder.Img2VidMaxFrames
	if maxFrames < 8 {
		maxFrames = 8
	}
	return &Orchestrator{
		Registry:         reg,
		Gen:              gen,
		Finisher:         fin,
		DB:               db,
		Uploader:         up,
		StaticRoot:       cfg.Server.StaticRoot,
		StoryboardDir:    cfg.Pipeline.StoryboardDir,
		Img2VidMaxFrames: maxFrames,
	}
}

// Run 执行一个任务直至终态。除图生视频降级外没有任何重试；
// 任何阶段的未处理错误都把任务终止为 failed，错误不回抛给 HTTP 调用方。
func (o *Orchestrator) Run(ctx context.Context, taskID string, run RunContext) {
	task, err := o.Registry.Get(taskID)
	if err != nil {
		log.Printf("任务不存在，跳过执行: %s", taskID)
		return
	}

	o.update(taskID, TaskUpdate{
		Status:    models.TaskStatusProcessing,
		Progress:  intp(1),
		Message:   strp("Start pipeline"),
		StartedAt: models.NowISO(),
	})

	var runErr error
	switch task.Type {
	case models.TaskTypeStoryboard:
		runErr = o.runStoryboardOnly(ctx, taskID, task, run)
	case models.TaskTypeShotImage:
		runErr = o.runShotOnly(ctx, taskID, run)
	case models.TaskTypeProjectAudio:
		runErr = o.runAudioOnly(ctx, taskID, run)
	default:
		runErr = o.runFullVideo(ctx, taskID, task, run)
	}

	if runErr != nil {
		log.Printf("任务 %s 失败: %v", taskID, runErr)
		o.update(taskID, TaskUpdate{
			Status:  models.TaskStatusFailed,
			Message: strp(fmt.Sprintf("failed: %v", runErr)),
			Error:   strp(runErr.Error()),
		})
		if task.ProjectId != "" && o.DB != nil {
			if err := models.UpdateProjectStatus(o.DB, task.ProjectId, models.ProjectStatusFailed); err != nil {
				log.Printf("回写项目失败状态失败: %v", err)
			}
		}
	}
}

// ---- 单阶段任务 ----

func (o *Orchestrator) runStoryboardOnly(ctx context.Context, taskID string, task *models.Task, run RunContext) error {
	scenes := run.Scenes
	if scenes <= 0 {
		scenes = 1
	}
	storyboard, err := o.Gen.GenerateStoryboard(ctx, run.Story, run.Style, scenes)
	if err != nil {
		return err
	}

	sbPath, err := o.saveStoryboard(taskID, storyboard)
	if err != nil {
		return err
	}

	if task.ProjectId != "" {
		assets := make([]*sceneAsset, 0, len(storyboard))
		for idx, item := range storyboard {
			assets = append(assets, &sceneAsset{
				SceneID:     item.Key(idx),
				Order:       idx + 1,
				Title:       titleOr(item.Title, idx),
				RawPrompt:   item.BasePrompt(),
				Description: item.Description,
				Narration:   item.NarrationText(),
				Bgm:         item.Bgm,
			})
		}
		o.persistShots(task.ProjectId, assets)
	}

	sbRes := models.NewResource(ToFileURL(o.StaticRoot, sbPath), models.ResourceStoryboard, "sb_"+taskID, nil)

	legacy := defaultLegacy()
	legacy["storyboard"] = jsonList(storyboard)

	o.update(taskID, TaskUpdate{
		Status:   models.TaskStatusSuccess,
		Progress: intp(100),
		Message:  strp("storyboard done"),
		Result: models.JSONMap{
			"resource_type": models.ResourceStoryboard,
			"resource_id":   sbRes["resource_id"],
			"resource_url":  sbRes["resource_url"],
			"resources":     []interface{}{sbRes},
			"legacy":        legacy,
		},
		FinishedAt: models.NowISO(),
	})
	return nil
}

func (o *Orchestrator) runShotOnly(ctx context.Context, taskID string, run RunContext) error {
	prompt := run.PromptText
	if prompt == "" {
		prompt = run.Story
	}
	width, height, steps, cfgScale := 768, 512, 4, 1.5
	if run.Render != nil {
		width, height = run.Render.Width, run.Render.Height
		steps, cfgScale = run.Render.ImgSteps, run.Render.CfgScale
	}

	images, err := o.Gen.GenerateImage(ctx, prompt, "s1", width, height, steps, cfgScale)
	if err != nil {
		return err
	}

	var resources []interface{}
	for _, img := range images {
		url := ToFileURL(o.StaticRoot, firstString(img, "path", "url", "image"))
		sceneID := getString(img, "scene_id")
		if sceneID == "" {
			sceneID = "s1"
		}
		resources = append(resources, models.NewResource(url, models.ResourceImage, sceneID, models.JSONMap{"raw": img}))
	}
	primary := models.NewResource("", models.ResourceImage, "s1", nil)
	if len(resources) > 0 {
		primary = resources[0].(models.JSONMap)
	}

	legacy := defaultLegacy()
	legacy["task_shots"] = models.JSONMap{
		"generated_shots": jsonList(images),
		"total_shots":     len(images),
		"total_time":      0.0,
	}

	o.update(taskID, TaskUpdate{
		Status:   models.TaskStatusSuccess,
		Progress: intp(100),
		Message:  strp("shot done"),
		Result: models.JSONMap{
			"resource_type": primary["resource_type"],
			"resource_id":   primary["resource_id"],
			"resource_url":  primary["resource_url"],
			"resources":     resources,
			"legacy":        legacy,
		},
		FinishedAt: models.NowISO(),
	})
	return nil
}

func (o *Orchestrator) runAudioOnly(ctx context.Context, taskID string, run RunContext) error {
	text := run.PromptText
	if text == "" {
		text = run.Story
	}
	audios, err := o.Gen.GenerateNarration(ctx, []NarrationLine{{SceneID: "s1", Text: text}}, run.Speaker, run.Speed)
	if err != nil {
		return err
	}

	var resources []interface{}
	for _, a := range audios {
		url := ToFileURL(o.StaticRoot, firstString(a, "audio", "path", "url"))
		sceneID := getString(a, "scene_id")
		if sceneID == "" {
			sceneID = "s1"
		}
		resources = append(resources, models.NewResource(url, models.ResourceAudio, sceneID, models.JSONMap{"raw": a}))
	}
	primary := models.NewResource("", models.ResourceAudio, "s1", nil)
	if len(resources) > 0 {
		primary = resources[0].(models.JSONMap)
	}

	legacy := defaultLegacy()
	legacy["task_audio"] = models.JSONMap{
		"generated_audios": jsonList(audios),
		"total_audios":     len(audios),
		"total_time":       0.0,
	}

	o.update(taskID, TaskUpdate{
		Status:   models.TaskStatusSuccess,
		Progress: intp(100),
		Message:  strp("audio done"),
		Result: models.JSONMap{
			"resource_type": primary["resource_type"],
			"resource_id":   primary["resource_id"],
			"resource_url":  primary["resource_url"],
			"resources":     resources,
			"legacy":        legacy,
		},
		FinishedAt: models.NowISO(),
	})
	return nil
}

// ---- 完整成片流水线 ----

func (o *Orchestrator) runFullVideo(ctx context.Context, taskID string, task *models.Task, run RunContext) error {
	req := run.Render
	if req == nil {
		r := models.RenderRequest{Story: run.Story, Style: run.Style, Scenes: run.Scenes, Speaker: run.Speaker, Speed: run.Speed}
		r.ApplyDefaults()
		req = &r
	}
	clipFrames := computeClipFrames(req)

	var resources []interface{}
	legacy := defaultLegacy()

	// S1 分镜
	storyboard, err := o.Gen.GenerateStoryboard(ctx, req.Story, req.Style, req.Scenes)
	if err != nil {
		return err
	}
	if len(storyboard) == 0 {
		return &PipelineInvariantError{Reason: "empty_storyboard", Detail: "分镜服务返回空列表"}
	}
	// 返回数量不足时克隆末位场景补齐到请求数量（既定补齐策略，不是错误）
	for idx := len(storyboard); idx < req.Scenes; idx++ {
		last := storyboard[len(storyboard)-1]
		padded := StoryboardScene{
			ID:          fmt.Sprintf("s%d", idx+1),
			Prompt:      last.BasePrompt(),
			Description: last.Description,
			Narration:   last.NarrationText(),
			Title:       last.Title,
			Bgm:         last.Bgm,
		}
		if padded.Prompt == "" {
			padded.Prompt = req.Story
		}
		if padded.Narration == "" {
			padded.Narration = req.Story
		}
		if padded.Title == "" {
			padded.Title = fmt.Sprintf("Shot %d", idx+1)
		}
		storyboard = append(storyboard, padded)
	}

	sbPath, err := o.saveStoryboard(taskID, storyboard)
	if err != nil {
		return err
	}
	sbRes := models.NewResource(ToFileURL(o.StaticRoot, sbPath), models.ResourceStoryboard, "sb_"+taskID, nil)
	resources = append(resources, sbRes)
	legacy["storyboard"] = jsonList(storyboard)

	assets := make([]*sceneAsset, 0, len(storyboard))
	for idx, item := range storyboard {
		basePrompt := item.BasePrompt()
		styled := basePrompt
		if req.Style != "" {
			styled = req.Style + ", " + basePrompt
		}
		narration := item.NarrationText()
		if narration == "" {
			narration = basePrompt
		}
		continuity := ""
		if len(assets) > 0 {
			prev := assets[len(assets)-1]
			prevRaw := prev.RawPrompt
			if prevRaw == "" {
				prevRaw = prev.Prompt
			}
			continuity = fmt.Sprintf(continuityClause, prevRaw)
		}
		assets = append(assets, &sceneAsset{
			SceneID:     item.Key(idx),
			Order:       idx + 1,
			Title:       titleOr(item.Title, idx),
			Prompt:      styled + continuity,
			RawPrompt:   basePrompt,
			Description: item.Description,
			Narration:   narration,
			Bgm:         item.Bgm,
			Style:       req.Style,
		})
	}

	o.persistShots(task.ProjectId, assets)

	legacy["task_shots"] = shotsLegacy(assets)
	o.update(taskID, TaskUpdate{
		Progress: intp(10),
		Message:  strp(fmt.Sprintf("Storyboard ready (%d shots)", len(assets))),
		Result:   models.JSONMap{"resources": resources, "legacy": legacy},
	})
	if o.cancelled(taskID) {
		return nil
	}

	// S2 逐分镜生图
	for idx, scene := range assets {
		var sceneImages []models.JSONMap
		for n := 0; n < max(req.ImagesPerScene, 1); n++ {
			images, err := o.Gen.GenerateImage(ctx, scene.Prompt, scene.SceneID, req.Width, req.Height, req.ImgSteps, req.CfgScale)
			if err != nil {
				return err
			}
			if len(images) == 0 {
				continue
			}
			img := images[0]
			if getString(img, "path") == "" {
				img = models.DeepMerge(img, models.JSONMap{"path": firstString(img, "url", "image")})
			}
			sceneImages = append(sceneImages, img)
		}
		if len(sceneImages) == 0 {
			return &PipelineInvariantError{Reason: "no_image", SceneID: scene.SceneID, Detail: "生图服务没有返回任何图片"}
		}
		primary := sceneImages[0]
		scene.Image = primary
		scene.ImagePath = getString(primary, "path")
		scene.Images = sceneImages
		for _, img := range sceneImages {
			resources = append(resources, models.NewResource(
				ToFileURL(o.StaticRoot, getString(img, "path")),
				models.ResourceImage, scene.SceneID,
				models.JSONMap{"order": scene.Order, "raw": img},
			))
		}
		legacy["task_shots"] = shotsLegacy(assets)
		o.update(taskID, TaskUpdate{
			Progress: intp(20 + 20*(idx+1)/len(assets)),
			Message:  strp(fmt.Sprintf("Images %d/%d", idx+1, len(assets))),
			Result:   models.JSONMap{"resources": resources, "legacy": legacy},
		})
	}
	if o.cancelled(taskID) {
		return nil
	}

	// S3 逐分镜图生视频（唯一内置的降级路径）
	framesForService := min(clipFrames, o.Img2VidMaxFrames)
	clips := make([]*clipInfo, 0, len(assets))
	for idx, scene := range assets {
		video, err := o.Gen.GenerateVideo(ctx, scene.ImagePath, scene.SceneID, req.FPS, framesForService)
		if err != nil || video == "" {
			if err != nil {
				log.Printf("图生视频降级（scene %s）: %v", scene.SceneID, err)
			} else {
				log.Printf("图生视频返回空结果，降级（scene %s）", scene.SceneID)
			}
			video, err = o.Finisher.FallbackClip(ctx, scene.ImagePath, scene.SceneID, req.FPS, framesForService)
			if err != nil {
				return err
			}
		}
		clip := &clipInfo{SceneID: scene.SceneID, Video: video, Order: scene.Order, Frames: framesForService}
		clips = append(clips, clip)
		scene.Video = video
		scene.Frames = framesForService
		resources = append(resources, models.NewResource(
			ToFileURL(o.StaticRoot, video),
			models.ResourceVideoClip, scene.SceneID,
			models.JSONMap{"order": scene.Order, "frames": framesForService},
		))
		legacy["task_video"] = models.JSONMap{
			"clips":      jsonList(clips),
			"fps":        fmt.Sprintf("%d", req.FPS),
			"resolution": fmt.Sprintf("%dx%d", req.Width, req.Height),
			"format":     "mp4",
		}
		legacy["task_shots"] = shotsLegacy(assets)
		o.update(taskID, TaskUpdate{
			Progress: intp(40 + 20*(idx+1)/len(assets)),
			Message:  strp(fmt.Sprintf("Videos %d/%d", idx+1, len(assets))),
			Result:   models.JSONMap{"resources": resources, "legacy": legacy},
		})
	}
	if o.cancelled(taskID) {
		return nil
	}

	// S4 批量配音
	lines := make([]NarrationLine, 0, len(assets))
	for _, scene := range assets {
		text := scene.Narration
		if text == "" {
			text = scene.Prompt
		}
		lines = append(lines, NarrationLine{SceneID: scene.SceneID, Text: text})
	}
	audios, err := o.Gen.GenerateNarration(ctx, lines, req.Speaker, req.Speed)
	if err != nil {
		return err
	}
	if len(audios) != len(lines) {
		return &PipelineInvariantError{
			Reason: "narration_count_mismatch",
			Detail: fmt.Sprintf("请求 %d 条旁白，返回 %d 条", len(lines), len(audios)),
		}
	}
	audioMap := make(map[string]models.JSONMap, len(audios))
	for _, a := range audios {
		audioMap[getString(a, "scene_id")] = a
	}
	for _, scene := range assets {
		if a, ok := audioMap[scene.SceneID]; ok {
			scene.Audio = a
			scene.AudioPath = firstString(a, "audio", "path")
		}
	}
	for _, clip := range clips {
		if a, ok := audioMap[clip.SceneID]; ok {
			clip.Audio = firstString(a, "audio", "path")
		}
	}
	for _, a := range audios {
		resources = append(resources, models.NewResource(
			ToFileURL(o.StaticRoot, firstString(a, "audio", "path")),
			models.ResourceAudio, getString(a, "scene_id"),
			models.JSONMap{"raw": a},
		))
	}
	legacy["task_audio"] = models.JSONMap{
		"generated_audios": jsonList(audios),
		"total_audios":     len(audios),
		"total_time":       0.0,
	}
	setLegacyVideo(legacy, "clips", jsonList(clips))
	legacy["task_shots"] = shotsLegacy(assets)
	o.update(taskID, TaskUpdate{
		Progress: intp(70),
		Message:  strp("TTS ready"),
		Result:   models.JSONMap{"resources": resources, "legacy": legacy},
	})
	if o.cancelled(taskID) {
		return nil
	}

	// S5 逐分镜合成画面与旁白
	muxed := make([]string, 0, len(clips))
	for idx, clip := range clips {
		audio, ok := audioMap[clip.SceneID]
		if !ok {
			return &PipelineInvariantError{Reason: "missing_audio", SceneID: clip.SceneID, Detail: "该分镜没有旁白音频"}
		}
		audioPath := clip.Audio
		if audioPath == "" {
			audioPath = firstString(audio, "audio", "path", "url")
		}
		if audioPath == "" {
			return &PipelineInvariantError{Reason: "missing_audio", SceneID: clip.SceneID, Detail: "旁白音频缺少路径"}
		}
		clipDuration := float64(clip.Frames) / float64(max(req.FPS, 1))
		if clipDuration < 0.01 {
			clipDuration = 0.01
		}
		out, err := o.Finisher.MuxClip(ctx, clip.Video, audioPath, clip.SceneID, clipDuration)
		if err != nil {
			return err
		}
		muxed = append(muxed, out)
		clip.Mux = out
		for _, scene := range assets {
			if scene.SceneID == clip.SceneID {
				scene.Mux = out
				break
			}
		}
		resources = append(resources, models.NewResource(
			ToFileURL(o.StaticRoot, out),
			models.ResourceMuxVideo, clip.SceneID,
			models.JSONMap{"order": clip.Order},
		))
		setLegacyVideo(legacy, "clips", jsonList(clips))
		o.update(taskID, TaskUpdate{
			Progress: intp(75 + 15*(idx+1)/len(clips)),
			Message:  strp(fmt.Sprintf("Mux %d/%d", idx+1, len(clips))),
			Result:   models.JSONMap{"resources": resources, "legacy": legacy},
		})
	}
	if o.cancelled(taskID) {
		return nil
	}

	// S6 拼接成片
	finalPath, err := o.Finisher.Concat(ctx, taskID, muxed)
	if err != nil {
		return err
	}

	totalFrames := 0
	for _, clip := range clips {
		totalFrames += clip.Frames
	}
	totalDuration := float64(totalFrames) / float64(max(req.FPS, 1))
	finalURL := ToFileURL(o.StaticRoot, finalPath)
	finalMeta := models.JSONMap{"duration": round2(totalDuration)}
	if o.Uploader != nil {
		if ossURL, err := o.Uploader.UploadVideo(finalPath, taskID); err != nil {
			log.Printf("成片上传对象存储失败: %v", err)
		} else {
			finalMeta["oss_url"] = ossURL
		}
	}
	finalRes := models.NewResource(finalURL, models.ResourceVideo, taskID, finalMeta)

	setLegacyVideo(legacy, "path", finalPath)
	setLegacyVideo(legacy, "fps", fmt.Sprintf("%d", req.FPS))
	setLegacyVideo(legacy, "resolution", fmt.Sprintf("%dx%d", req.Width, req.Height))
	setLegacyVideo(legacy, "format", "mp4")
	setLegacyVideo(legacy, "duration", fmt.Sprintf("%vs", round2(totalDuration)))
	setLegacyVideo(legacy, "total_time", fmt.Sprintf("%vs", round2(totalDuration)))
	legacy["task_shots"] = shotsLegacy(assets)

	o.update(taskID, TaskUpdate{
		Status:   models.TaskStatusSuccess,
		Progress: intp(100),
		Message:  strp("done"),
		Result: models.JSONMap{
			"resource_type": models.ResourceVideo,
			"resource_id":   taskID,
			"resource_url":  finalURL,
			// 响应只保留成片资源；中间产物仍可通过各自的文件 URL 访问
			"resources": []interface{}{finalRes},
			"legacy":    legacy,
		},
		FinishedAt: models.NowISO(),
	})

	if task.ProjectId != "" && o.DB != nil {
		if err := o.DB.Model(&models.Project{}).Where("id = ?", task.ProjectId).Updates(map[string]interface{}{
			"video_url":  finalURL,
			"status":     models.ProjectStatusVideoGenerated,
			"duration":   int(totalDuration),
			"updated_at": time.Now(),
		}).Error; err != nil {
			log.Printf("回写项目成片信息失败: %v", err)
		}
	}
	return nil
}

// ---- 辅助 ----

// computeClipFrames 单分镜帧数：时长换算帧数与显式帧数取大者，下限 8。
func computeClipFrames(req *models.RenderRequest) int {
	fps := max(req.FPS, 1)
	fromDuration := int(float64(fps) * req.ClipSeconds)
	num := req.VideoFrames
	if fromDuration > 0 {
		num = max(num, fromDuration)
	}
	if num <= 0 {
		num = fps * 5
	}
	return max(num, 8)
}

func (o *Orchestrator) saveStoryboard(taskID string, storyboard []StoryboardScene) (string, error) {
	if err := os.MkdirAll(o.StoryboardDir, 0o755); err != nil {
		return "", fmt.Errorf("创建 storyboard 目录失败: %w", err)
	}
	path := filepath.Join(o.StoryboardDir, "storyboard_"+taskID+".json")
	data, err := json.MarshalIndent(storyboard, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化分镜失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入分镜文件失败: %w", err)
	}
	return path, nil
}

// persistShots 把分镜资产写入项目目录（仅限项目绑定任务且数据库可用时）。
// 目录是任务结果的镜像，写库失败只记日志，不影响流水线。
func (o *Orchestrator) persistShots(projectID string, assets []*sceneAsset) {
	if projectID == "" || o.DB == nil {
		return
	}
	shots := make([]models.Shot, 0, len(assets))
	now := time.Now()
	for _, a := range assets {
		shots = append(shots, models.Shot{
			ID:          uuid.NewString(),
			ProjectId:   projectID,
			Order:       a.Order,
			Title:       a.Title,
			Description: a.Description,
			Prompt:      a.RawPrompt,
			Narration:   a.Narration,
			Bgm:         a.Bgm,
			Status:      models.ShotStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err := models.BatchCreateShots(o.DB, shots); err != nil {
		log.Printf("批量写入分镜失败: %v", err)
		return
	}
	if err := models.UpdateProjectStatus(o.DB, projectID, models.ProjectStatusShotsGenerated); err != nil {
		log.Printf("回写项目状态失败: %v", err)
	}
}

func (o *Orchestrator) update(taskID string, up TaskUpdate) {
	if _, err := o.Registry.Update(taskID, up); err != nil {
		log.Printf("更新任务 %s 失败: %v", taskID, err)
	}
}

// cancelled 阶段之间检查任务是否已被外部取消；执行中的阶段不被打断。
func (o *Orchestrator) cancelled(taskID string) bool {
	t, err := o.Registry.Get(taskID)
	if err != nil {
		return true
	}
	return t.Status == models.TaskStatusCancelled
}

func titleOr(title string, idx int) string {
	if title != "" {
		return title
	}
	return fmt.Sprintf("Shot %d", idx+1)
}

func shotsLegacy(assets []*sceneAsset) models.JSONMap {
	return models.JSONMap{
		"generated_shots": jsonList(assets),
		"total_shots":     len(assets),
		"total_time":      0.0,
	}
}

func setLegacyVideo(legacy models.JSONMap, key string, val interface{}) {
	tv, ok := legacy["task_video"].(models.JSONMap)
	if !ok {
		tv = models.JSONMap{}
		legacy["task_video"] = tv
	}
	tv[key] = val
}

func defaultLegacy() models.JSONMap {
	return models.DefaultResult()["legacy"].(models.JSONMap)
}

// jsonList 把任意切片转成通用 JSON 列表，保证快照结构与合并语义一致。
func jsonList(v interface{}) []interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return []interface{}{}
	}
	var out []interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return []interface{}{}
	}
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func intp(v int) *int {
	return &v
}

func strp(s string) *string {
	return &s
}
