package court

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/notify"
	"github.com/JustJay7/gosomi-court/internal/repository"
)

type CreateCaseInput struct {
	Title              string            `json:"title"`
	Content            string            `json:"content"`
	PlaintiffID        uint              `json:"plaintiffId"`
	DefendantID        uint              `json:"defendantId"`
	LawType            string            `json:"lawType"`
	JuryEnabled        bool              `json:"juryEnabled"`
	JuryMode           database.JuryMode `json:"juryMode"`
	JuryInvitedUserIDs []uint            `json:"juryInvitedUserIds"`
	Evidences          []EvidenceInput   `json:"evidences"`
}

type CreateCaseResult struct {
	CaseID      uint                `json:"caseId"`
	CaseNumber  string              `json:"caseNumber"`
	Status      database.CaseStatus `json:"status"`
	InviteToken *string             `json:"inviteToken,omitempty"`
	Jurors      []uint              `json:"jurors"`
}

func (in *CreateCaseInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apierr.BadRequest("TITLE_REQUIRED", "title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return apierr.BadRequest("CONTENT_REQUIRED", "content is required")
	}
	if in.PlaintiffID == 0 || in.DefendantID == 0 {
		return apierr.BadRequest("PARTY_REQUIRED", "plaintiffId and defendantId are required")
	}
	if in.PlaintiffID == in.DefendantID {
		return apierr.BadRequest("SAME_PARTY", "plaintiff and defendant must be different users")
	}
	if in.JuryEnabled {
		switch in.JuryMode {
		case "":
			in.JuryMode = database.JuryRandom
		case database.JuryRandom, database.JuryInvite:
		default:
			return apierr.BadRequest("INVALID_JURY_MODE", fmt.Sprintf("unknown jury mode %q", in.JuryMode))
		}
	}
	return validateEvidence(in.Evidences)
}

// CreateCase files a new case in SUMMONED. The case row, its jurors and the
// plaintiff's evidence are written in one transaction.
func (s *Service) CreateCase(ctx context.Context, in CreateCaseInput) (*CreateCaseResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	missing, err := s.repos.Users.Missing(ctx, nil, []uint{in.PlaintiffID, in.DefendantID})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to check parties: %w", err))
	}
	if len(missing) > 0 {
		return nil, apierr.BadRequest("PARTY_NOT_FOUND", fmt.Sprintf("user %d does not exist", missing[0]))
	}

	c := &database.Case{
		PlaintiffID:  in.PlaintiffID,
		DefendantID:  in.DefendantID,
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		LawType:      strings.TrimSpace(in.LawType),
		Status:       database.StatusSummoned,
		AppealStatus: database.AppealNone,
		JuryEnabled:  in.JuryEnabled,
	}
	if in.JuryEnabled {
		c.JuryMode = in.JuryMode
		if in.JuryMode == database.JuryInvite {
			token := uuid.NewString()
			c.InviteToken = &token
		}
	}

	var jurors []uint
	err = s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.repos.Cases.NextCaseNumber(ctx, tx, s.now().Year())
		if err != nil {
			return err
		}
		c.CaseNumber = number

		if err := s.repos.Cases.Create(ctx, tx, c); err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}

		if c.JuryEnabled {
			jurors, err = s.pickJurors(ctx, tx, c, in.JuryInvitedUserIDs)
			if err != nil {
				return err
			}
			if _, err := s.repos.Jurors.Register(ctx, tx, c.ID, jurors); err != nil {
				return fmt.Errorf("failed to register jurors: %w", err)
			}
		}

		if len(in.Evidences) > 0 {
			items := toEvidence(c.ID, database.RolePlaintiff, database.StageInitial, in.Evidences)
			if err := s.repos.Evidence.Create(ctx, tx, items); err != nil {
				return fmt.Errorf("failed to store evidence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Internal(err)
	}

	s.logger.Info("Case filed",
		"case_id", c.ID,
		"case_number", c.CaseNumber,
		"jury_mode", c.JuryMode,
		"jurors", len(jurors),
	)

	s.notify(ctx, notify.Event{
		UserID:  c.DefendantID,
		CaseID:  c.ID,
		Type:    notify.TypeCaseFiled,
		Title:   "You have been summoned",
		Message: fmt.Sprintf("Case %s: %s", c.CaseNumber, c.Title),
	})
	for _, id := range jurors {
		s.notify(ctx, notify.Event{
			UserID:  id,
			CaseID:  c.ID,
			Type:    notify.TypeJurySummoned,
			Title:   "You have been called to a jury",
			Message: fmt.Sprintf("Case %s: %s", c.CaseNumber, c.Title),
		})
	}

	if jurors == nil {
		jurors = []uint{}
	}
	return &CreateCaseResult{
		CaseID:      c.ID,
		CaseNumber:  c.CaseNumber,
		Status:      c.Status,
		InviteToken: c.InviteToken,
		Jurors:      jurors,
	}, nil
}

// pickJurors chooses up to JuryMax users who are not parties to c. Invitees
// beyond the cap, duplicates and unknown users are dropped.
func (s *Service) pickJurors(ctx context.Context, tx *gorm.DB, c *database.Case, invited []uint) ([]uint, error) {
	parties := []uint{c.PlaintiffID, c.DefendantID}

	if c.JuryMode == database.JuryRandom {
		ids, err := s.repos.Users.RandomExcluding(ctx, tx, parties, s.opts.JuryMax)
		if err != nil {
			return nil, fmt.Errorf("failed to pick random jurors: %w", err)
		}
		return ids, nil
	}

	seen := map[uint]bool{c.PlaintiffID: true, c.DefendantID: true, 0: true}
	var candidates []uint
	for _, id := range invited {
		if seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	missing, err := s.repos.Users.Missing(ctx, tx, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to check invitees: %w", err)
	}
	unknown := make(map[uint]bool, len(missing))
	for _, id := range missing {
		unknown[id] = true
	}

	picked := make([]uint, 0, s.opts.JuryMax)
	for _, id := range candidates {
		if len(picked) == s.opts.JuryMax {
			break
		}
		if unknown[id] {
			s.logger.Warn("Dropping unknown jury invitee", "case_id", c.ID, "user_id", id)
			continue
		}
		picked = append(picked, id)
	}
	return picked, nil
}

// CaseDetail is a case with its evidence, defense and jury tally.
type CaseDetail struct {
	CaseView
	Evidences []EvidenceView   `json:"evidences"`
	Defense   *string          `json:"defense"`
	Jury      repository.Tally `json:"jury"`
}

func (s *Service) GetCase(ctx context.Context, id uint) (*CaseDetail, error) {
	c, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}

	evidence, err := s.repos.Evidence.ListByCase(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to load evidence: %w", err))
	}

	detail := &CaseDetail{CaseView: newCaseView(c), Evidences: newEvidenceViews(evidence)}

	d, err := s.repos.Defenses.GetByCase(ctx, nil, id)
	switch {
	case err == nil:
		detail.Defense = &d.Content
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apierr.Internal(fmt.Errorf("failed to load defense: %w", err))
	}

	detail.Jury, err = s.repos.Jurors.Tally(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to tally jury: %w", err))
	}
	return detail, nil
}
