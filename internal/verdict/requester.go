// Package verdict builds judge prompts, calls the judge and stores the
// structured verdict it returns.
package verdict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/judge"
	"github.com/JustJay7/gosomi-court/internal/lawcode"
	"github.com/JustJay7/gosomi-court/internal/repository"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

// Transition is the case state written together with a new verdict.
type Transition struct {
	Status       database.CaseStatus
	AppealStatus database.AppealStatus
}

type Options struct {
	UploadDir string
	Timeout   time.Duration
}

type Requester struct {
	repos   *repository.Repositories
	judge   judge.Client
	law     lawcode.Provider
	images  imageCollector
	timeout time.Duration
	logger  *logger.Logger
}

func NewRequester(repos *repository.Repositories, client judge.Client, law lawcode.Provider, opts Options, log *logger.Logger) *Requester {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	return &Requester{
		repos:   repos,
		judge:   client,
		law:     law,
		images:  imageCollector{root: opts.UploadDir},
		timeout: opts.Timeout,
		logger:  log.With("component", "verdict"),
	}
}

// Request generates a verdict for c and, only when the judge answered with a
// valid verdict, writes it together with next in a single update. Any prior
// penalty pick is cleared. c is not modified.
func (r *Requester) Request(ctx context.Context, c *database.Case, appeal bool, next Transition) (*Result, error) {
	evidence, err := r.repos.Evidence.ListByCase(ctx, nil, c.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to load evidence: %w", err))
	}

	defense := ""
	if d, err := r.repos.Defenses.GetByCase(ctx, nil, c.ID); err == nil {
		defense = d.Content
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.Internal(fmt.Errorf("failed to load defense: %w", err))
	}

	var tally *repository.Tally
	if !appeal {
		t, err := r.repos.Jurors.Tally(ctx, nil, c.ID)
		if err != nil {
			return nil, apierr.Internal(fmt.Errorf("failed to tally jury: %w", err))
		}
		if t.Total > 0 {
			tally = &t
		}
	}

	system, prompt := BuildPrompt(r.promptInput(c, evidence, defense, tally, appeal))

	stageItems := evidence
	if !appeal {
		stageItems = filterStage(evidence, database.StageInitial)
	}
	images, skipped := r.images.collect(stageItems)
	for _, s := range skipped {
		r.logger.Info("Image evidence skipped", "case_id", c.ID, "evidence_id", s.EvidenceID, "reason", s.Reason)
	}

	raw, imagesIgnored, err := r.call(ctx, judge.Request{System: system, Prompt: prompt, Images: images})
	if err != nil {
		r.logger.Error("Judge call failed", "case_id", c.ID, "appeal", appeal, "error", err)
		return nil, apierr.Upstream("JUDGE_FAILED", fmt.Errorf("verdict generation failed: %w", err))
	}

	v, err := Parse(raw)
	if err != nil {
		r.logger.Error("Judge response rejected", "case_id", c.ID, "appeal", appeal, "error", err)
		return nil, apierr.Upstream("JUDGE_BAD_RESPONSE", fmt.Errorf("verdict generation failed: %w", err))
	}

	if err := r.persist(ctx, c, v, appeal, next); err != nil {
		return nil, apierr.Internal(fmt.Errorf("failed to store verdict: %w", err))
	}

	r.logger.Info("Verdict generated",
		"case_id", c.ID,
		"appeal", appeal,
		"result", v.Result,
		"images", len(images),
		"images_ignored", imagesIgnored,
	)

	return &Result{
		CaseID:        c.ID,
		Verdict:       *v,
		ImagesIgnored: imagesIgnored,
		SkippedImages: skipped,
	}, nil
}

// call invokes the judge, retrying once without images when the images
// themselves were the problem.
func (r *Requester) call(ctx context.Context, req judge.Request) (string, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.judge.Complete(callCtx, req)
	if err == nil || len(req.Images) == 0 || !errors.Is(err, judge.ErrImageProcessing) {
		return raw, false, err
	}

	r.logger.Warn("Judge rejected images, retrying text-only", "images", len(req.Images), "error", err)
	req.Images = nil

	retryCtx, retryCancel := context.WithTimeout(ctx, r.timeout)
	defer retryCancel()
	raw, err = r.judge.Complete(retryCtx, req)
	return raw, true, err
}

func (r *Requester) persist(ctx context.Context, c *database.Case, v *Verdict, appeal bool, next Transition) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}

	updated := *c
	text := v.Text()
	updated.VerdictText = &text
	if !appeal && updated.FirstVerdict == nil {
		updated.FirstVerdict = &text
	}
	updated.VerdictJSON = datatypes.JSON(encoded)
	fr := v.FaultRatio
	updated.FaultRatio = &fr
	pen := v.Penalties
	updated.Penalties = &pen
	updated.PenaltyChoice = nil
	updated.PenaltySelected = nil
	updated.Status = next.Status
	updated.AppealStatus = next.AppealStatus

	return r.repos.Cases.Update(ctx, nil, &updated,
		"verdict_text", "first_verdict", "verdict_json", "fault_ratio", "penalties",
		"penalty_choice", "penalty_selected", "status", "appeal_status",
	)
}

func (r *Requester) promptInput(c *database.Case, evidence []*database.Evidence, defense string, tally *repository.Tally, appeal bool) PromptInput {
	in := PromptInput{
		Title:             c.Title,
		Content:           c.Content,
		LawType:           c.LawType,
		RuleText:          r.law.RuleText(c.LawType),
		PlaintiffEvidence: texts(evidence, database.StageInitial, database.RolePlaintiff),
		Defense:           defense,
		DefendantEvidence: texts(evidence, database.StageInitial, database.RoleDefendant),
		Jury:              tally,
	}

	if appeal {
		a := &AppealInput{
			Reason:            deref(c.AppealReason),
			FirstVerdict:      deref(c.FirstVerdict),
			Response:          deref(c.AppealResponse),
			PlaintiffEvidence: texts(evidence, database.StageAppeal, database.RolePlaintiff),
			DefendantEvidence: texts(evidence, database.StageAppeal, database.RoleDefendant),
		}
		if c.AppellantID != nil {
			a.AppellantID = *c.AppellantID
			if role, ok := c.RoleOf(*c.AppellantID); ok {
				a.AppellantRole = string(role)
			}
		}
		in.Appeal = a
		in.Jury = nil
	}
	return in
}

func texts(items []*database.Evidence, stage database.EvidenceStage, role database.PartyRole) []string {
	var out []string
	for _, ev := range items {
		if ev.Type == database.EvidenceText && ev.Stage == stage && ev.SubmittedBy == role {
			out = append(out, ev.Content)
		}
	}
	return out
}

func filterStage(items []*database.Evidence, stage database.EvidenceStage) []*database.Evidence {
	var out []*database.Evidence
	for _, ev := range items {
		if ev.Stage == stage {
			out = append(out, ev)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Decode reads a stored verdict JSON column back into a Verdict.
func Decode(raw datatypes.JSON) (*Verdict, error) {
	if len(raw) == 0 {
		return nil, errors.New("no stored verdict")
	}
	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode stored verdict: %w", err)
	}
	return &v, nil
}
