package court

import (
	"context"
	"fmt"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/notify"
	"github.com/JustJay7/gosomi-court/internal/verdict"
)

// RequestVerdict returns the case's first-instance verdict, generating it
// when none is stored or a finished appeal superseded it. Concurrent calls
// for one case share a single judge call.
func (s *Service) RequestVerdict(ctx context.Context, caseID uint) (*verdict.Result, error) {
	return s.shared(ctx, fmt.Sprintf("verdict:%d", caseID), func(ctx context.Context) (*verdict.Result, error) {
		return s.requestVerdict(ctx, caseID)
	})
}

// shared runs fn once per key across concurrent callers. fn runs detached
// from any single caller's cancellation and is bounded by the judge timeout;
// each caller stops waiting when its own ctx ends.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (*verdict.Result, error)) (*verdict.Result, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			s.logger.Debug("Verdict request shared", "key", key)
		}
		return r.Val.(*verdict.Result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) requestVerdict(ctx context.Context, caseID uint) (*verdict.Result, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	if cached := s.cachedVerdict(c); cached != nil {
		return cached, nil
	}

	switch c.Status {
	case database.StatusDefenseSubmitted, database.StatusVerdictReady, database.StatusCompleted:
	default:
		return nil, invalidStatus(c, "request a verdict")
	}

	// Once an appeal is DONE the cache path is skipped, so this overwrites the
	// final appeal verdict with a fresh first-instance one and moves the case
	// back to VERDICT_READY, reopening penalty selection. Deliberate quirk
	// kept for compatibility; appeal status stays DONE, so no second appeal
	// can follow.
	res, err := s.verdicts.Request(ctx, c, false, verdict.Transition{
		Status:       database.StatusVerdictReady,
		AppealStatus: c.AppealStatus,
	})
	if err != nil {
		return nil, err
	}

	s.notifyParties(ctx, c, notify.TypeVerdictReady, "The verdict is in", res.OneLine)
	return res, nil
}

// cachedVerdict returns the stored verdict when the cache path applies: a
// verdict exists and no appeal has been decided.
func (s *Service) cachedVerdict(c *database.Case) *verdict.Result {
	if c.VerdictText == nil {
		return nil
	}
	if c.AppealStatus != database.AppealNone && c.AppealStatus != database.AppealRequested {
		return nil
	}

	v, err := verdict.Decode(c.VerdictJSON)
	if err != nil {
		s.logger.Warn("Stored verdict unreadable, regenerating", "case_id", c.ID, "error", err)
		return nil
	}
	return &verdict.Result{
		CaseID:        c.ID,
		Verdict:       *v,
		Cached:        true,
		SkippedImages: []verdict.SkippedImage{},
	}
}

// AppealVerdict regenerates the verdict with the appeal materials and closes
// the appeal. The result is final.
func (s *Service) AppealVerdict(ctx context.Context, caseID uint) (*verdict.Result, error) {
	return s.shared(ctx, fmt.Sprintf("appeal:%d", caseID), func(ctx context.Context) (*verdict.Result, error) {
		return s.appealVerdict(ctx, caseID)
	})
}

func (s *Service) appealVerdict(ctx context.Context, caseID uint) (*verdict.Result, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	switch c.AppealStatus {
	case database.AppealRequested, database.AppealResponded:
	case database.AppealDone:
		return nil, apierr.BadRequest("APPEAL_CLOSED", "the appeal verdict has already been issued")
	default:
		return nil, apierr.BadRequest("APPEAL_NOT_ACTIVE", "no appeal has been requested")
	}

	res, err := s.verdicts.Request(ctx, c, true, verdict.Transition{
		Status:       database.StatusCompleted,
		AppealStatus: database.AppealDone,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appeal decided", "case_id", c.ID, "result", res.Result)
	for _, id := range []uint{c.PlaintiffID, c.DefendantID} {
		if err := s.RefreshWinRate(ctx, id); err != nil {
			s.logger.Warn("Win rate refresh failed", "user_id", id, "error", err)
		}
	}
	s.notifyParties(ctx, c, notify.TypeAppealVerdict, "The appeal has been decided", res.OneLine)
	return res, nil
}

func (s *Service) notifyParties(ctx context.Context, c *database.Case, typ, title, message string) {
	for _, id := range []uint{c.PlaintiffID, c.DefendantID} {
		s.notify(ctx, notify.Event{
			UserID:  id,
			CaseID:  c.ID,
			Type:    typ,
			Title:   title,
			Message: fmt.Sprintf("Case %s: %s", c.CaseNumber, message),
		})
	}
}
