package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JustJay7/gosomi-court/internal/cache"
	"github.com/JustJay7/gosomi-court/internal/config"
	"github.com/JustJay7/gosomi-court/internal/court"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/judge"
	"github.com/JustJay7/gosomi-court/internal/lawcode"
	"github.com/JustJay7/gosomi-court/internal/notify"
	"github.com/JustJay7/gosomi-court/internal/repository"
	"github.com/JustJay7/gosomi-court/internal/server"
	"github.com/JustJay7/gosomi-court/internal/verdict"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

func main() {
	var migrate bool
	flag.BoolVar(&migrate, "migrate", false, "Run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Initialize(cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}

	if migrate {
		log.Info("Database migrations completed successfully")
		return
	}

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		log.Fatal("Failed to create upload directory", "error", err, "path", cfg.UploadDir)
	}

	cacheService := cache.NewCache(cfg.CacheSize, cfg.CacheTTL)

	book, err := lawcode.LoadBook(cfg.LawBookPath)
	if err != nil {
		log.Fatal("Failed to load law book", "error", err)
	}
	law := lawcode.NewProvider(book, cacheService)

	judgeClient, err := judge.NewHTTPClient(judge.Options{
		BaseURL: cfg.JudgeBaseURL,
		APIKey:  cfg.JudgeAPIKey,
		Model:   cfg.JudgeModel,
		Timeout: cfg.JudgeTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize judge client", "error", err)
	}
	if cfg.JudgeAPIKey == "" {
		log.Warn("JUDGE_API_KEY is empty, verdict requests will likely be rejected upstream")
	}

	repos := repository.New(db, log)

	var (
		publisher notify.Publisher
		closers   []io.Closer
	)
	if cfg.RedisAddr != "" {
		rp, err := notify.NewRedisPublisher(cfg.RedisAddr, cfg.RedisChannel, log)
		if err != nil {
			log.Warn("Redis unavailable, notifications will only be stored", "error", err)
		} else {
			publisher = rp
			closers = append(closers, rp)
		}
	}
	outbox := notify.NewOutbox(repos.Notifications, publisher, log)

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if sent, err := outbox.Flush(flushCtx, 500); err != nil {
		log.Warn("Failed to flush pending notifications", "error", err, "sent", sent)
	} else if sent > 0 {
		log.Info("Flushed pending notifications", "sent", sent)
	}
	cancel()

	requester := verdict.NewRequester(repos, judgeClient, law, verdict.Options{
		UploadDir: cfg.UploadDir,
		Timeout:   cfg.JudgeTimeout,
	}, log)

	svc := court.NewService(repos, requester, outbox, court.Options{
		JuryMax:    cfg.JuryMax,
		SummonsTTL: cfg.SummonsTTL,
	}, log)

	srv := server.New(cfg, db, cacheService, law, svc, log, closers...)

	log.Info("Starting GOSOMI court",
		"host", cfg.Host,
		"port", cfg.Port,
		"judge_model", cfg.JudgeModel,
		"postgres", cfg.DatabaseURL != "",
		"redis", publisher != nil,
	)

	if err := srv.Run(); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
