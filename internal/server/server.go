package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"highlight-ai/config"
	"highlight-ai/internal/queue"
	"highlight-ai/internal/router"
	"highlight-ai/internal/service"
	"highlight-ai/log"
)

const shutdownTimeout = 10 * time.Second

// StartBackend serves the API until SIGINT/SIGTERM, then shuts down the HTTP
// server, the job queue and the worker pool in that order.
func StartBackend() error {
	svc, err := service.NewService()
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	defer svc.Close()

	if config.Conf.Queue.Enabled {
		q := queue.NewQueue(queue.QueueConfig{
			RedisAddr:     config.Conf.Queue.RedisAddr,
			RedisPassword: config.Conf.Queue.RedisPassword,
			RedisDB:       config.Conf.Queue.RedisDB,
			Concurrency:   config.Conf.Queue.Concurrency,
		})
		if err = queue.StartWorker(q, svc.Jobs); err != nil {
			return fmt.Errorf("start queue worker: %w", err)
		}
		defer func() {
			if err := q.Close(); err != nil {
				log.GetLogger().Warn("关闭任务队列失败 failed to close queue", zap.Error(err))
			}
		}()
		svc.Jobs.SetDispatcher(q)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	router.SetupRouter(engine, svc)

	addr := fmt.Sprintf("%s:%d", config.Conf.Server.Host, config.Conf.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.GetLogger().Info("服务已启动 server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.GetLogger().Info("正在关闭服务 shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.GetLogger().Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
