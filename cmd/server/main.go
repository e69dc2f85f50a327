package main

import (
	"os"

	"go.uber.org/zap"

	"highlight-ai/config"
	"highlight-ai/internal/deps"
	"highlight-ai/internal/server"
	"highlight-ai/internal/storage"
	"highlight-ai/log"
)

func main() {
	if handled, exitCode := handleCLIFlags(os.Args[1:], os.Stdout); handled {
		os.Exit(exitCode)
	}

	log.InitLogger()
	defer log.GetLogger().Sync()

	if _, err := config.LoadOrCreateConfig(); err != nil {
		log.GetLogger().Error("加载配置失败", zap.Error(err))
		os.Exit(1)
	}
	if err := config.CheckConfig(); err != nil {
		log.GetLogger().Error("配置校验失败", zap.Error(err))
		os.Exit(1)
	}

	storage.InitDB()

	// jobs left running by a previous process cannot resume
	if count, err := storage.MarkStaleJobs(); err != nil {
		log.GetLogger().Warn("Failed to mark stale jobs", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("Marked stale jobs as failed", zap.Int64("count", count))
	}

	if err := deps.CheckDependency(); err != nil {
		log.GetLogger().Error("依赖环境准备失败", zap.Error(err))
		os.Exit(1)
	}
	if err := server.StartBackend(); err != nil {
		log.GetLogger().Error("后端服务启动失败", zap.Error(err))
		os.Exit(1)
	}
}
