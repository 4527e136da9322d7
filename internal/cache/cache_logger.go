package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// SafeDelete deletes cache keys and logs instead of propagating failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeInvalidatePattern invalidates a cache pattern and logs failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// InvalidateAttempt drops all cache entries for an attempt
func InvalidateAttempt(ctx context.Context, cm *CacheManager, attemptID uuid.UUID) {
	SafeDelete(ctx, cm.Attempt,
		fmt.Sprintf("id:%s", attemptID),
		fmt.Sprintf("details:%s", attemptID))
}

// InvalidateExam drops all cache entries for an exam
func InvalidateExam(ctx context.Context, cm *CacheManager, examID uuid.UUID, creatorID string) {
	SafeDelete(ctx, cm.Exam,
		fmt.Sprintf("id:%s", examID),
		fmt.Sprintf("questions:%s", examID))
	SafeInvalidatePattern(ctx, cm.Exam, fmt.Sprintf("creator:%s:*", creatorID))
	SafeInvalidatePattern(ctx, cm.Exam, "list:*")
}

// InvalidateQuestion drops all cache entries for a question
func InvalidateQuestion(ctx context.Context, cm *CacheManager, questionID uuid.UUID) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%s", questionID))
	SafeInvalidatePattern(ctx, cm.Question, "list:*")
}
