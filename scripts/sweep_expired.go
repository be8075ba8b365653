// 手动触发过期作答清扫脚本
//
// 该功能已集成到主应用的后台清扫循环中（默认每 60 秒执行一次）。
// 此脚本仅用于手动触发，例如服务长时间停机后重启前先收掉积压的过期尝试。
//
// 用法: go run scripts/sweep_expired.go
package main

import (
	"log"
	"time"
	"unigest_backend/internal/config"
	"unigest_backend/internal/model"
	"unigest_backend/internal/repository"
	"unigest_backend/internal/service"
	"unigest_backend/pkg/database"
	"unigest_backend/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	attemptRepo := repository.NewAttemptRepository(db)
	grading := service.NewGradingService(attemptRepo, repository.NewSubmissionRepository(db), repository.NewQuizRepository(db))

	rows, err := attemptRepo.ListInProgress()
	if err != nil {
		log.Fatalf("Failed to list in-progress attempts: %v", err)
	}

	now := time.Now()
	swept := 0
	for _, row := range rows {
		deadline := row.StartedAt.Add(time.Duration(row.Duration) * time.Minute)
		if now.Before(deadline) {
			continue
		}
		if _, err := grading.FinalizeAttempt(row.ID, nil, model.SubmitSweep); err != nil {
			log.Printf("sweep %s failed: %v", row.ID, err)
			continue
		}
		swept++
	}

	log.Printf("清扫完成：%d 份过期作答已收卷（共检查 %d 份进行中）", swept, len(rows))
}
