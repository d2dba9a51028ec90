package main

import (
	"fmt"
	"log"

	"StoryToVideo-gateway/config"
	"StoryToVideo-gateway/models"
	"StoryToVideo-gateway/routers"
	"StoryToVideo-gateway/routers/api"
	"StoryToVideo-gateway/service"
)

func main() {
	config.InitConfig()
	cfg := config.AppConfig
	fmt.Println("Gateway starting on port", cfg.Server.Port)

	models.InitDB(cfg.MySQL.DSN)

	uploader, err := service.NewUploader(cfg)
	if err != nil {
		log.Fatalf("MinIO 初始化失败: %v", err)
	}

	pub := service.NewPublisher()
	registry := service.NewRegistry(pub)
	gen := service.NewGenerators(cfg)
	finisher := service.NewFinisher(cfg)
	orch := service.NewOrchestrator(cfg, registry, gen, finisher, models.GormDB, uploader)

	dispatcher := service.NewDispatcher(cfg, orch)
	processor := service.NewProcessor(orch)
	processor.StartProcessor(cfg, 5)

	api.Init(cfg, registry, dispatcher, models.GormDB)
	r := routers.InitRouter(cfg)
	if err := r.Run(cfg.Server.Port); err != nil {
		log.Fatalf("服务启动失败: %v", err)
	}
}
