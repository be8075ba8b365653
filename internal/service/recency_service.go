package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RecencyService 记录助教新建的测验，供列表页打“新建”角标。
// 集合按作者维度存 Redis，到期自动清理。
type RecencyService struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRecencyService(rdb *redis.Client, ttlHours int) *RecencyService {
	return &RecencyService{
		Redis: rdb,
		TTL:   time.Duration(ttlHours) * time.Hour,
	}
}

func recencyKey(authorID uint) string {
	return fmt.Sprintf("recency:quiz:%d", authorID)
}

func (s *RecencyService) MarkNew(ctx context.Context, authorID uint, quizID string) error {
	if s.Redis == nil {
		return nil
	}
	key := recencyKey(authorID)
	pipe := s.Redis.Pipeline()
	pipe.SAdd(ctx, key, quizID)
	pipe.Expire(ctx, key, s.TTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RecencyService) ClearNew(ctx context.Context, authorID uint, quizID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.SRem(ctx, recencyKey(authorID), quizID).Err()
}

// ListNew 返回仍带角标的测验 ID 集合，Redis 不可用时静默降级为空
func (s *RecencyService) ListNew(ctx context.Context, authorID uint) map[string]bool {
	marks := make(map[string]bool)
	if s.Redis == nil {
		return marks
	}
	ids, err := s.Redis.SMembers(ctx, recencyKey(authorID)).Result()
	if err != nil {
		return marks
	}
	for _, id := range ids {
		marks[id] = true
	}
	return marks
}
