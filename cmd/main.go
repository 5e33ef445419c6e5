package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sitebuilder-backend/internal/broadcast"
	"sitebuilder-backend/internal/config"
	"sitebuilder-backend/internal/handler"
	"sitebuilder-backend/internal/model"
	"sitebuilder-backend/internal/preview"
	"sitebuilder-backend/internal/service"
	"sitebuilder-backend/internal/storage"
	"sitebuilder-backend/internal/watcher"
	"sitebuilder-backend/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sitebuilder",
	Short: "AI website builder backend",
	Long: `Generates small websites from a natural-language description, stores
them as per-project file trees and serves live previews.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	return cfg
}

func runServe() error {
	cfg := loadConfig()
	ctx := context.Background()

	// 初始化存储
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	index, err := storage.NewIndex(cfg.Index)
	if err != nil {
		return fmt.Errorf("create project index: %w", err)
	}
	if err := index.Init(ctx); err != nil {
		return fmt.Errorf("init project index: %w", err)
	}
	defer index.Close()

	// 初始化模型，没有可用模型时仍然可以编辑和预览
	var gen service.Generator
	client, err := model.NewGenerationClient(ctx, cfg.Generation)
	if err != nil {
		logger.Warnf("Generation disabled: %v", err)
	} else {
		gen = client
		logger.Infof("Generation backend: %s", client.Primary())
	}

	hub := broadcast.NewHub()
	defer hub.Close()

	renderer, err := preview.NewCachedRenderer(
		preview.NewReconstructor(preview.Options{FrameworkURL: cfg.Preview.FrameworkURL}),
		cfg.Preview.CacheSize,
	)
	if err != nil {
		return fmt.Errorf("create preview cache: %w", err)
	}

	// 初始化服务
	projectService := service.NewProjectService(store, index, gen, renderer, hub, cfg.Storage.PublicBaseURL)
	sessionService := service.NewSessionService(projectService, renderer, hub, service.SessionOptionsFromConfig(cfg))
	sessionService.Start()
	defer sessionService.Stop()

	if disk, ok := store.(*storage.DiskStorage); ok && cfg.Preview.WatchFiles {
		w := watcher.New(disk.Root(), hub, 0)
		if err := w.Start(); err != nil {
			logger.Warnf("Could not start file watching: %v", err)
		} else {
			defer w.Stop()
		}
	}

	// 创建路由
	gin.SetMode(gin.ReleaseMode)
	router := handler.SetupRouter(cfg, handler.Handlers{
		Project: handler.NewProjectHandler(projectService),
		Session: handler.NewSessionHandler(sessionService),
		Events:  handler.NewEventsHandler(hub),
	})

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
	return nil
}
