package court

import (
	"context"
	"errors"
	"fmt"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/repository"
)

type VoteInput struct {
	UserID uint               `json:"userId"`
	Vote   database.PartyRole `json:"vote"`
}

type VoteResult struct {
	CaseID uint               `json:"caseId"`
	Vote   database.PartyRole `json:"vote"`
	Jury   repository.Tally   `json:"jury"`
}

// Vote records a juror's single vote. Voting closes once any appeal
// activity starts.
func (s *Service) Vote(ctx context.Context, caseID uint, in VoteInput) (*VoteResult, error) {
	if !in.Vote.Valid() {
		return nil, apierr.BadRequest("INVALID_VOTE", "vote must be PLAINTIFF or DEFENDANT")
	}

	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.AppealStatus != database.AppealNone {
		return nil, apierr.Forbidden("APPEAL_ACTIVE", "voting is closed once an appeal is requested")
	}

	juror, err := s.repos.Jurors.Get(ctx, nil, caseID, in.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.Forbidden("NOT_A_JUROR", "user is not on this case's jury")
	}
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to load juror: %w", err))
	}

	if err := s.repos.Jurors.RecordVote(ctx, nil, juror, in.Vote); err != nil {
		if errors.Is(err, repository.ErrAlreadyVoted) {
			return nil, apierr.Conflict("ALREADY_VOTED", "juror has already voted")
		}
		return nil, apierr.Internal(fmt.Errorf("failed to record vote: %w", err))
	}

	tally, err := s.repos.Jurors.Tally(ctx, nil, caseID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to tally jury: %w", err))
	}

	s.logger.Info("Jury vote recorded", "case_id", caseID, "user_id", in.UserID, "vote", in.Vote)
	return &VoteResult{CaseID: caseID, Vote: in.Vote, Jury: tally}, nil
}

type JuryDetail struct {
	CaseID  uint              `json:"caseId"`
	Enabled bool              `json:"enabled"`
	Mode    database.JuryMode `json:"mode"`
	Tally   repository.Tally  `json:"tally"`
	Jurors  []*database.Juror `json:"jurors"`
}

func (s *Service) Jury(ctx context.Context, caseID uint) (*JuryDetail, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	jurors, err := s.repos.Jurors.ListByCase(ctx, nil, caseID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to list jurors: %w", err))
	}
	tally, err := s.repos.Jurors.Tally(ctx, nil, caseID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to tally jury: %w", err))
	}

	return &JuryDetail{
		CaseID:  caseID,
		Enabled: c.JuryEnabled,
		Mode:    c.JuryMode,
		Tally:   tally,
		Jurors:  jurors,
	}, nil
}
