// Package notify records case notifications as outbox rows and forwards them
// to an optional publisher.
package notify

import (
	"context"
	"fmt"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/repository"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

const (
	TypeCaseFiled        = "case_filed"
	TypeJurySummoned     = "jury_summoned"
	TypeDefenseSubmitted = "defense_submitted"
	TypeVerdictReady     = "verdict_ready"
	TypeAppealRequested  = "appeal_requested"
	TypeAppealResponded  = "appeal_responded"
	TypeAppealVerdict    = "appeal_verdict"
)

type Event struct {
	UserID  uint   `json:"user_id"`
	CaseID  uint   `json:"case_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Emitter delivers a notification to one user.
type Emitter interface {
	Notify(ctx context.Context, ev Event) error
}

// Publisher pushes a stored notification onto a live channel.
type Publisher interface {
	Publish(ctx context.Context, n *database.Notification) error
}

type Outbox struct {
	repo      repository.NotificationRepo
	publisher Publisher
	logger    *logger.Logger
}

// NewOutbox returns an Emitter that always writes the notification row and
// then hands it to publisher when one is configured. A failed publish leaves
// the row unpublished for Flush to retry.
func NewOutbox(repo repository.NotificationRepo, publisher Publisher, log *logger.Logger) *Outbox {
	return &Outbox{repo: repo, publisher: publisher, logger: log.With("component", "notify")}
}

func (o *Outbox) Notify(ctx context.Context, ev Event) error {
	n := &database.Notification{
		UserID:  ev.UserID,
		CaseID:  ev.CaseID,
		Type:    ev.Type,
		Title:   ev.Title,
		Message: ev.Message,
	}
	if err := o.repo.Create(ctx, nil, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if o.publisher == nil {
		return nil
	}
	if err := o.publisher.Publish(ctx, n); err != nil {
		o.logger.Warn("Notification publish failed", "notification_id", n.ID, "error", err)
		return nil
	}
	if err := o.repo.MarkPublished(ctx, nil, n.ID); err != nil {
		o.logger.Warn("Failed to mark notification published", "notification_id", n.ID, "error", err)
	}
	return nil
}

// Flush retries publishing stored notifications that never went out and
// returns how many were delivered.
func (o *Outbox) Flush(ctx context.Context, limit int) (int, error) {
	if o.publisher == nil {
		return 0, nil
	}
	pending, err := o.repo.ListUnpublished(ctx, nil, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	sent := 0
	for _, n := range pending {
		if err := o.publisher.Publish(ctx, n); err != nil {
			return sent, fmt.Errorf("failed to publish notification %d: %w", n.ID, err)
		}
		if err := o.repo.MarkPublished(ctx, nil, n.ID); err != nil {
			return sent, fmt.Errorf("failed to mark notification %d: %w", n.ID, err)
		}
		sent++
	}
	return sent, nil
}
