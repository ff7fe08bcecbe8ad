package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/taskvec/taskvec/internal/ai"
	"github.com/taskvec/taskvec/internal/cache"
	"github.com/taskvec/taskvec/internal/cachestore"
	"github.com/taskvec/taskvec/internal/config"
	"github.com/taskvec/taskvec/internal/db"
	"github.com/taskvec/taskvec/internal/embedcache"
	"github.com/taskvec/taskvec/internal/handler"
	"github.com/taskvec/taskvec/internal/job"
	"github.com/taskvec/taskvec/internal/middleware"
	"github.com/taskvec/taskvec/internal/repo"
	"github.com/taskvec/taskvec/internal/schedule"
	"github.com/taskvec/taskvec/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "taskvec",
		Short: "task vector search service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the search service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "compute embeddings for tasks that have none, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			search, _, err := buildPipeline(cfg, conn)
			if err != nil {
				return err
			}
			updated, err := search.BackfillMissing(cmd.Context())
			if err != nil {
				return err
			}
			logutil.GetLogger(cmd.Context()).Info("backfill done", zap.Int("updated", updated))
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, backfillCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func bootstrap(configPath string) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func buildPipeline(cfg *config.Config, conn *sql.DB) (*service.SearchService, *cache.Manager, error) {
	store := cachestore.New(cachestore.Config{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cacheMgr := cache.NewManager(store).WithTTLs(
		time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second,
		time.Duration(cfg.Cache.SearchTTLSec)*time.Second,
	)

	providerArgs := cfg.AI.Data
	provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return nil, nil, fmt.Errorf("init ai provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.Model, cfg.AI.Dimension)
	embedder = embedcache.WrapStoreCacheToEmbedder(embedder, cacheMgr)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.LruSize, time.Duration(cfg.AI.LruTTLSec)*time.Second)

	tasks := repo.NewTaskRepo(conn)
	return service.NewSearchService(tasks, embedder, cacheMgr), cacheMgr, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.String("redis_addr", cfg.Redis.Addr()),
	)

	search, _, err := buildPipeline(cfg, conn)
	if err != nil {
		return err
	}

	deps := handler.RouterDeps{
		Search: handler.NewSearchHandler(search),
		Cache:  handler.NewCacheHandler(search),
	}

	engine, err := webapi.NewEngine(
		"/api",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Backfill.Spec != "" {
		if err := scheduler.AddJob(job.NewEmbeddingBackfillJob(search), cfg.Backfill.Spec); err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
