// Package court is the case state machine. It guards every transition of a
// case, drives verdict generation and finalises penalties and appeals.
package court

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/notify"
	"github.com/JustJay7/gosomi-court/internal/repository"
	"github.com/JustJay7/gosomi-court/internal/verdict"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

const (
	defaultJuryMax    = 5
	defaultSummonsTTL = 72 * time.Hour
)

// VerdictRequester generates and stores a verdict for a case.
type VerdictRequester interface {
	Request(ctx context.Context, c *database.Case, appeal bool, next verdict.Transition) (*verdict.Result, error)
}

type Options struct {
	JuryMax    int
	SummonsTTL time.Duration
}

type Service struct {
	repos    *repository.Repositories
	verdicts VerdictRequester
	notifier notify.Emitter
	opts     Options
	logger   *logger.Logger

	flights singleflight.Group
	now     func() time.Time
}

// NewService wires the state machine. notifier may be nil.
func NewService(repos *repository.Repositories, verdicts VerdictRequester, notifier notify.Emitter, opts Options, log *logger.Logger) *Service {
	if opts.JuryMax <= 0 {
		opts.JuryMax = defaultJuryMax
	}
	if opts.SummonsTTL <= 0 {
		opts.SummonsTTL = defaultSummonsTTL
	}
	return &Service{
		repos:    repos,
		verdicts: verdicts,
		notifier: notifier,
		opts:     opts,
		logger:   log.With("component", "court"),
		now:      time.Now,
	}
}

// EvidenceInput is one evidence item as submitted by a party.
type EvidenceInput struct {
	Type    database.EvidenceType `json:"type"`
	Content string                `json:"content"`
}

func validateEvidence(items []EvidenceInput) error {
	for i, ev := range items {
		if !ev.Type.Valid() {
			return apierr.BadRequest("INVALID_EVIDENCE", fmt.Sprintf("evidence %d: type must be text or image", i))
		}
		if strings.TrimSpace(ev.Content) == "" {
			return apierr.BadRequest("INVALID_EVIDENCE", fmt.Sprintf("evidence %d: content is required", i))
		}
	}
	return nil
}

func toEvidence(caseID uint, role database.PartyRole, stage database.EvidenceStage, items []EvidenceInput) []*database.Evidence {
	out := make([]*database.Evidence, 0, len(items))
	for _, ev := range items {
		out = append(out, &database.Evidence{
			CaseID:      caseID,
			Type:        ev.Type,
			Content:     ev.Content,
			SubmittedBy: role,
			Stage:       stage,
		})
	}
	return out
}

func (s *Service) loadCase(ctx context.Context, id uint) (*database.Case, error) {
	c, err := s.repos.Cases.GetByID(ctx, nil, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("CASE_NOT_FOUND", fmt.Sprintf("case %d not found", id))
	}
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to load case %d: %w", id, err))
	}
	return c, nil
}

// notify delivers ev without failing the caller.
func (s *Service) notify(ctx context.Context, ev notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("Notification failed",
			"case_id", ev.CaseID,
			"user_id", ev.UserID,
			"type", ev.Type,
			"error", err,
		)
	}
}

func invalidStatus(c *database.Case, action string) *apierr.Error {
	return apierr.BadRequest("INVALID_STATUS",
		fmt.Sprintf("cannot %s while case is %s (appeal %s)", action, c.Status, c.AppealStatus)).
		WithDetail("status", c.Status)
}
