package court

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/repository"
)

const maxNotifications = 100

func (s *Service) CreateUser(ctx context.Context, nickname string) (*database.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, apierr.BadRequest("NICKNAME_REQUIRED", "nickname is required")
	}
	if len(nickname) > 64 {
		return nil, apierr.BadRequest("NICKNAME_TOO_LONG", "nickname must be at most 64 characters")
	}

	u := &database.User{Nickname: nickname, WinRate: neutralWinRate}
	if err := s.repos.Users.Create(ctx, nil, u); err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to create user: %w", err))
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*database.User, error) {
	u, err := s.repos.Users.GetByID(ctx, nil, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("USER_NOT_FOUND", fmt.Sprintf("user %d not found", id))
	}
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to load user: %w", err))
	}
	return u, nil
}

// UserCases lists the cases where the user is a party, newest first.
func (s *Service) UserCases(ctx context.Context, userID uint) ([]CaseView, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	cases, err := s.repos.Cases.ListByParty(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to list cases: %w", err))
	}
	return newCaseViews(cases), nil
}

// Notifications lists a user's most recent notifications.
func (s *Service) Notifications(ctx context.Context, userID uint, limit int) ([]*database.Notification, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxNotifications {
		limit = maxNotifications
	}
	items, err := s.repos.Notifications.ListByUser(ctx, nil, userID, limit)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to list notifications: %w", err))
	}
	if items == nil {
		items = []*database.Notification{}
	}
	return items, nil
}
