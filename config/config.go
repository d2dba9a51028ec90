package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

// GeneratorConfig 描述一个下游生成服务的地址与调用超时（秒）。
// 快速调用（分镜脚本）超时短，慢速媒体生成（图生视频）超时长。
type GeneratorConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type Config struct {
	Server struct {
		Port       string `yaml:"port"`
		StaticRoot string `yaml:"static_root"`
	} `yaml:"server"`
	Generators struct {
		Storyboard GeneratorConfig `yaml:"storyboard"`
		Image      GeneratorConfig `yaml:"image"`
		Video      GeneratorConfig `yaml:"video"`
		Narration  GeneratorConfig `yaml:"narration"`
	} `yaml:"generators"`
	Pipeline struct {
		FinalDir      string `yaml:"final_dir"`
		ClipsDir      string `yaml:"clips_dir"`
		StoryboardDir string `yaml:"storyboard_dir"`
	} `yaml:"pipeline"`
	Encoder struct {
		FFmpegBin        string `yaml:"ffmpeg_bin"`
		MaxConcurrent    int    `yaml:"max_concurrent"`
		Img2VidMaxFrames int    `yaml:"img2vid_max_frames"`
	} `yaml:"encoder"`
	MySQL struct {
		// DSN 为空时不连接数据库，项目/分镜接口不可用，纯流水线功能不受影响
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"minio"`
}

var AppConfig *Config

// Default 返回内置默认配置（与各生成服务的默认端口约定一致）。
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = ":8000"
	cfg.Server.StaticRoot = "data"
	cfg.Generators.Storyboard = GeneratorConfig{URL: "http://127.0.0.1:8001/storyboard", TimeoutSec: 120}
	cfg.Generators.Image = GeneratorConfig{URL: "http://127.0.0.1:8002/generate", TimeoutSec: 180}
	cfg.Generators.Video = GeneratorConfig{URL: "http://127.0.0.1:8003/img2vid", TimeoutSec: 120}
	cfg.Generators.Narration = GeneratorConfig{URL: "http://127.0.0.1:8004/narration", TimeoutSec: 120}
	cfg.Pipeline.FinalDir = "data/final"
	cfg.Pipeline.ClipsDir = "data/clips"
	cfg.Pipeline.StoryboardDir = "data/storyboard"
	cfg.Encoder.FFmpegBin = "ffmpeg"
	cfg.Encoder.MaxConcurrent = 2
	cfg.Encoder.Img2VidMaxFrames = 48
	cfg.Redis.Addr = "127.0.0.1:6379"
	return cfg
}

// Load 读取 yaml 配置文件，未设置的字段保留默认值。
func Load(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func InitConfig() {
	cfg, err := Load("config/config.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("配置文件缺失，使用默认配置: %v", err)
			AppConfig = Default()
			return
		}
		log.Fatalf("配置文件解析失败: %v", err)
	}
	AppConfig = cfg
}
