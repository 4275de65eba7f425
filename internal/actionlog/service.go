package actionlog

import (
	"context"
	"time"

	"github.com/progreview/progreview-api/pkg/logger"
)

// Service writes and pages audit entries.
type Service struct {
	repo    Repository
	perPage int
	now     func() time.Time
}

func NewService(repo Repository, perPage int) *Service {
	if perPage <= 0 {
		perPage = 150
	}
	return &Service{repo: repo, perPage: perPage, now: func() time.Time { return time.Now().UTC() }}
}

// Log records an action. Failures are logged and swallowed: the change being
// audited has already been committed.
func (s *Service) Log(ctx context.Context, message string, actor Actor, targetType, targetID, targetName string) {
	if s == nil {
		return
	}
	a := &Action{
		Message:    message,
		Actor:      actor,
		TargetType: targetType,
		TargetID:   targetID,
		TargetName: targetName,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		logger.Errorf("action log: %s %s %s: %v", message, targetType, targetID, err)
	}
}

// List returns page (0-based) of the newest actions.
func (s *Service) List(ctx context.Context, page int) ([]*Action, error) {
	if page < 0 {
		page = 0
	}
	return s.repo.Page(ctx, int64(page*s.perPage), int64(s.perPage))
}
