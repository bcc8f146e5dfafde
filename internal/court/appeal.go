package court

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/notify"
	"github.com/JustJay7/gosomi-court/internal/repository"
)

type AppealInput struct {
	AppellantID uint            `json:"appellantId"`
	Reason      string          `json:"reason"`
	Evidences   []EvidenceInput `json:"evidences"`
}

type AppealDefenseInput struct {
	Content   string          `json:"content"`
	Evidences []EvidenceInput `json:"evidences"`
}

type AppealResult struct {
	CaseID       uint                  `json:"caseId"`
	Status       database.CaseStatus   `json:"status"`
	AppealStatus database.AppealStatus `json:"appealStatus"`
}

var errAppealUsed = apierr.BadRequest("APPEAL_ALREADY_USED", "this case has already been appealed")

// RequestAppeal opens the single appeal a case is allowed.
func (s *Service) RequestAppeal(ctx context.Context, caseID uint, in AppealInput) (*AppealResult, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, apierr.BadRequest("REASON_REQUIRED", "reason is required")
	}
	if err := validateEvidence(in.Evidences); err != nil {
		return nil, err
	}

	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.AppealStatus != database.AppealNone {
		return nil, errAppealUsed
	}
	if c.Status != database.StatusVerdictReady && c.Status != database.StatusCompleted {
		return nil, invalidStatus(c, "appeal")
	}
	role, ok := c.RoleOf(in.AppellantID)
	if !ok {
		return nil, apierr.Forbidden("NOT_A_PARTY", "only the plaintiff or the defendant can appeal")
	}

	next := *c
	appellant := in.AppellantID
	next.AppellantID = &appellant
	next.AppealReason = &reason
	next.AppealStatus = database.AppealRequested
	next.Status = database.StatusUnderAppeal

	err = s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cond := map[string]any{"appeal_status": database.AppealNone}
		if err := s.repos.Cases.UpdateIf(ctx, tx, &next, cond,
			"appellant_id", "appeal_reason", "appeal_status", "status"); err != nil {
			return err
		}
		if len(in.Evidences) == 0 {
			return nil
		}
		items := toEvidence(c.ID, role, database.StageAppeal, in.Evidences)
		if err := s.repos.Evidence.Create(ctx, tx, items); err != nil {
			return fmt.Errorf("failed to store appeal evidence: %w", err)
		}
		return nil
	})
	if errors.Is(err, repository.ErrStale) {
		return nil, errAppealUsed
	}
	if err != nil {
		return nil, apierr.Internal(err)
	}

	s.logger.Info("Appeal requested", "case_id", c.ID, "appellant_id", appellant, "role", role)

	s.notify(ctx, notify.Event{
		UserID:  c.Opponent(appellant),
		CaseID:  c.ID,
		Type:    notify.TypeAppealRequested,
		Title:   "The verdict has been appealed",
		Message: fmt.Sprintf("Case %s: %s", c.CaseNumber, reason),
	})

	return &AppealResult{CaseID: c.ID, Status: next.Status, AppealStatus: next.AppealStatus}, nil
}

// AppealDefense stores the opponent's answer to a requested appeal.
func (s *Service) AppealDefense(ctx context.Context, caseID uint, in AppealDefenseInput) (*AppealResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apierr.BadRequest("CONTENT_REQUIRED", "content is required")
	}
	if err := validateEvidence(in.Evidences); err != nil {
		return nil, err
	}

	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.AppealStatus != database.AppealRequested || c.AppellantID == nil {
		return nil, apierr.BadRequest("APPEAL_NOT_REQUESTED",
			fmt.Sprintf("appeal defense needs a requested appeal (appeal %s)", c.AppealStatus))
	}

	appellant := *c.AppellantID
	responder, _ := c.RoleOf(c.Opponent(appellant))

	next := *c
	next.AppealResponse = &content
	next.AppealStatus = database.AppealResponded

	err = s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cond := map[string]any{"appeal_status": database.AppealRequested}
		if err := s.repos.Cases.UpdateIf(ctx, tx, &next, cond, "appeal_response", "appeal_status"); err != nil {
			return err
		}
		if len(in.Evidences) == 0 {
			return nil
		}
		items := toEvidence(c.ID, responder, database.StageAppeal, in.Evidences)
		if err := s.repos.Evidence.Create(ctx, tx, items); err != nil {
			return fmt.Errorf("failed to store appeal evidence: %w", err)
		}
		return nil
	})
	if errors.Is(err, repository.ErrStale) {
		return nil, apierr.BadRequest("APPEAL_NOT_REQUESTED", "the appeal has already been answered")
	}
	if err != nil {
		return nil, apierr.Internal(err)
	}

	s.logger.Info("Appeal answered", "case_id", c.ID, "role", responder)

	s.notify(ctx, notify.Event{
		UserID:  appellant,
		CaseID:  c.ID,
		Type:    notify.TypeAppealResponded,
		Title:   "Your appeal has been answered",
		Message: fmt.Sprintf("Case %s: the other party responded to your appeal.", c.CaseNumber),
	})

	return &AppealResult{CaseID: c.ID, Status: next.Status, AppealStatus: next.AppealStatus}, nil
}
