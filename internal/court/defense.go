package court

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/notify"
	"github.com/JustJay7/gosomi-court/internal/repository"
)

type DefenseInput struct {
	Content   string          `json:"content"`
	Evidences []EvidenceInput `json:"evidences"`
}

type DefenseResult struct {
	CaseID uint                `json:"caseId"`
	Status database.CaseStatus `json:"status"`
}

var errDefenseExists = apierr.Conflict("DEFENSE_ALREADY_SUBMITTED", "defense already submitted")

// SubmitDefense stores the defendant's answer and moves the case to
// DEFENSE_SUBMITTED.
func (s *Service) SubmitDefense(ctx context.Context, caseID uint, in DefenseInput) (*DefenseResult, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apierr.BadRequest("CONTENT_REQUIRED", "content is required")
	}
	if err := validateEvidence(in.Evidences); err != nil {
		return nil, err
	}

	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	_, err = s.repos.Defenses.GetByCase(ctx, nil, caseID)
	switch {
	case err == nil:
		s.repairDefenseStatus(ctx, c)
		return nil, errDefenseExists
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apierr.Internal(fmt.Errorf("failed to check defense: %w", err))
	}

	if c.Status != database.StatusSummoned {
		return nil, invalidStatus(c, "submit a defense")
	}

	err = s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repos.Defenses.Create(ctx, tx, &database.Defense{CaseID: c.ID, Content: in.Content}); err != nil {
			return fmt.Errorf("failed to store defense: %w", err)
		}
		if len(in.Evidences) > 0 {
			items := toEvidence(c.ID, database.RoleDefendant, database.StageInitial, in.Evidences)
			if err := s.repos.Evidence.Create(ctx, tx, items); err != nil {
				return fmt.Errorf("failed to store evidence: %w", err)
			}
		}
		next := *c
		next.Status = database.StatusDefenseSubmitted
		return s.repos.Cases.UpdateIf(ctx, tx, &next, map[string]any{"status": database.StatusSummoned}, "status")
	})
	if errors.Is(err, repository.ErrStale) {
		// lost a race with another submission
		return nil, errDefenseExists
	}
	if err != nil {
		return nil, apierr.Internal(err)
	}

	s.logger.Info("Defense submitted", "case_id", c.ID, "evidences", len(in.Evidences))

	s.notify(ctx, notify.Event{
		UserID:  c.PlaintiffID,
		CaseID:  c.ID,
		Type:    notify.TypeDefenseSubmitted,
		Title:   "The defendant has answered",
		Message: fmt.Sprintf("Case %s now has a defense. You can request a verdict.", c.CaseNumber),
	})

	return &DefenseResult{CaseID: c.ID, Status: database.StatusDefenseSubmitted}, nil
}

// repairDefenseStatus fixes a case left in SUMMONED although its defense row
// was written. It runs on the duplicate-submission path only and never fails
// the caller.
func (s *Service) repairDefenseStatus(ctx context.Context, c *database.Case) {
	if c.Status != database.StatusSummoned {
		return
	}
	next := *c
	next.Status = database.StatusDefenseSubmitted
	err := s.repos.Cases.UpdateIf(ctx, nil, &next, map[string]any{"status": database.StatusSummoned}, "status")
	if err != nil && !errors.Is(err, repository.ErrStale) {
		s.logger.Error("Failed to repair defense status", "case_id", c.ID, "error", err)
		return
	}
	s.logger.Warn("Repaired case status after duplicate defense", "case_id", c.ID)
}

type SummonsResult struct {
	CaseID    uint      `json:"caseId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueSummons returns the case's live summons or mints a new one.
func (s *Service) IssueSummons(ctx context.Context, caseID uint) (*SummonsResult, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != database.StatusSummoned {
		return nil, invalidStatus(c, "issue a summons")
	}

	now := s.now()
	existing, err := s.repos.Summons.GetByCase(ctx, nil, caseID)
	switch {
	case err == nil && !existing.Expired(now):
		return &SummonsResult{CaseID: caseID, Token: existing.Token, ExpiresAt: existing.ExpiresAt}, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, apierr.Internal(fmt.Errorf("failed to load summons: %w", err))
	}

	sm, err := s.repos.Summons.Replace(ctx, nil, caseID, uuid.NewString(), now.Add(s.opts.SummonsTTL))
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to issue summons: %w", err))
	}
	s.logger.Info("Summons issued", "case_id", caseID, "expires_at", sm.ExpiresAt)

	return &SummonsResult{CaseID: caseID, Token: sm.Token, ExpiresAt: sm.ExpiresAt}, nil
}

// SubmitDefenseByToken submits a defense through a summons token. The first
// access after expiry marks the case EXPIRED.
func (s *Service) SubmitDefenseByToken(ctx context.Context, token string, in DefenseInput) (*DefenseResult, error) {
	sm, err := s.repos.Summons.GetByToken(ctx, nil, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("SUMMONS_NOT_FOUND", "summons not found")
	}
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to load summons: %w", err))
	}

	if sm.Expired(s.now()) {
		if err := s.expire(ctx, sm.CaseID); err != nil {
			return nil, err
		}
		return nil, apierr.Gone("SUMMONS_EXPIRED", "summons has expired")
	}

	return s.SubmitDefense(ctx, sm.CaseID, in)
}

func (s *Service) expire(ctx context.Context, caseID uint) error {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return err
	}
	if c.Status != database.StatusSummoned && c.Status != database.StatusDefenseSubmitted {
		return nil
	}

	next := *c
	next.Status = database.StatusExpired
	err = s.repos.Cases.UpdateIf(ctx, nil, &next, map[string]any{"status": c.Status}, "status")
	if err != nil && !errors.Is(err, repository.ErrStale) {
		return apierr.Internal(fmt.Errorf("failed to expire case: %w", err))
	}
	if err == nil {
		s.logger.Info("Case expired", "case_id", caseID, "from", c.Status)
	}
	return nil
}
