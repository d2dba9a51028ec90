package api

import (
	"time"

	"StoryToVideo-gateway/config"
	"StoryToVideo-gateway/service"

	"gorm.io/gorm"
)

// 处理器依赖，main 启动时注入一次
var (
	Cfg        *config.Config
	Registry   *service.Registry
	Dispatcher *service.Dispatcher
	DB         *gorm.DB

	// HeartbeatInterval 长连接无数据时的保活间隔，测试可改短
	HeartbeatInterval = service.HeartbeatIntervalSec * time.Second
)

func Init(cfg *config.Config, reg *service.Registry, disp *service.Dispatcher, db *gorm.DB) {
	Cfg = cfg
	Registry = reg
	Dispatcher = disp
	DB = db
}
