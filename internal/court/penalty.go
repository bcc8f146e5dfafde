package court

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/repository"
)

type PenaltyResult struct {
	CaseID          uint                   `json:"caseId"`
	Choice          database.PenaltyChoice `json:"choice"`
	PenaltySelected string                 `json:"penaltySelected"`
	Cached          bool                   `json:"cached"`
}

// PickPenalty returns the option bound to a case for a category. The pick is
// stable: the same case and list always give the same option.
func PickPenalty(caseID uint, options []string) string {
	return options[int(caseID%uint(len(options)))]
}

// SelectPenalty locks in a penalty category and completes the case. Repeating
// the locked category replays the stored pick; a different category conflicts.
func (s *Service) SelectPenalty(ctx context.Context, caseID uint, choice database.PenaltyChoice) (*PenaltyResult, error) {
	if !choice.Valid() {
		return nil, apierr.BadRequest("INVALID_CHOICE", "choice must be SERIOUS or FUNNY")
	}

	var (
		result *PenaltyResult
		c      *database.Case
	)
	err := s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = s.repos.Cases.GetByID(ctx, tx, caseID)
		if errors.Is(err, repository.ErrNotFound) {
			return apierr.NotFound("CASE_NOT_FOUND", fmt.Sprintf("case %d not found", caseID))
		}
		if err != nil {
			return fmt.Errorf("failed to load case: %w", err)
		}

		if locked := lockedPenalty(c, choice); locked != nil {
			result = locked
			return nil
		}
		if err := penaltyGuard(c, choice); err != nil {
			return err
		}

		picked := PickPenalty(c.ID, c.Penalties.Options(choice))
		next := *c
		next.PenaltyChoice = &choice
		next.PenaltySelected = &picked
		next.Status = database.StatusCompleted

		cond := map[string]any{"penalty_choice": nil, "status": database.StatusVerdictReady}
		if err := s.repos.Cases.UpdateIf(ctx, tx, &next, cond, "penalty_choice", "penalty_selected", "status"); err != nil {
			return err
		}
		result = &PenaltyResult{CaseID: c.ID, Choice: choice, PenaltySelected: picked}
		return nil
	})
	if errors.Is(err, repository.ErrStale) {
		// another selection won; answer as a replay or a conflict against it
		return s.replayPenalty(ctx, caseID, choice)
	}
	if err != nil {
		return nil, apierr.From(err)
	}
	if result.Cached {
		return result, nil
	}

	s.logger.Info("Penalty selected", "case_id", caseID, "choice", choice)

	for _, id := range []uint{c.PlaintiffID, c.DefendantID} {
		if err := s.RefreshWinRate(ctx, id); err != nil {
			s.logger.Warn("Win rate refresh failed", "user_id", id, "error", err)
		}
	}
	return result, nil
}

func (s *Service) replayPenalty(ctx context.Context, caseID uint, choice database.PenaltyChoice) (*PenaltyResult, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if locked := lockedPenalty(c, choice); locked != nil {
		return locked, nil
	}
	if err := penaltyGuard(c, choice); err != nil {
		return nil, err
	}
	return nil, apierr.Conflict("PENALTY_CHANGED", "case changed during penalty selection, retry")
}

// lockedPenalty answers a selection on a case whose penalty is already
// chosen. It returns nil while no choice is locked.
func lockedPenalty(c *database.Case, choice database.PenaltyChoice) *PenaltyResult {
	if c.PenaltyChoice == nil {
		return nil
	}
	if *c.PenaltyChoice != choice {
		return nil
	}
	return &PenaltyResult{
		CaseID:          c.ID,
		Choice:          *c.PenaltyChoice,
		PenaltySelected: *c.PenaltySelected,
		Cached:          true,
	}
}

func penaltyGuard(c *database.Case, choice database.PenaltyChoice) error {
	if c.PenaltyChoice != nil {
		return apierr.Conflict("PENALTY_LOCKED",
			fmt.Sprintf("penalty already locked to %s", *c.PenaltyChoice)).
			WithDetail("lockedChoice", *c.PenaltyChoice)
	}
	if c.Status != database.StatusVerdictReady || c.Penalties == nil {
		return apierr.BadRequest("VERDICT_NOT_READY", "penalties can only be selected once a verdict is ready")
	}
	if len(c.Penalties.Options(choice)) == 0 {
		return apierr.BadRequest("NO_PENALTY_OPTIONS", fmt.Sprintf("the verdict has no %s penalties", choice))
	}
	return nil
}
