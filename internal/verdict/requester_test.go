package verdict

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/judge"
	"github.com/JustJay7/gosomi-court/internal/lawcode"
	"github.com/JustJay7/gosomi-court/internal/repository"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

// scriptedJudge answers each Complete call with the next scripted reply.
type scriptedJudge struct {
	mu       sync.Mutex
	replies  []reply
	requests []judge.Request
}

type reply struct {
	body string
	err  error
}

func (s *scriptedJudge) Complete(ctx context.Context, req judge.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.body, r.err
}

type requesterFixture struct {
	repos     *repository.Repositories
	judge     *scriptedJudge
	requester *Requester
	uploads   string
	kase      *database.Case
}

func setupRequester(t *testing.T, replies ...reply) *requesterFixture {
	t.Helper()
	db, err := database.Initialize(":memory:", "")
	require.NoError(t, err)
	repos := repository.New(db, logger.NewNop())

	book, err := lawcode.LoadBook("")
	require.NoError(t, err)

	ctx := context.Background()
	p := &database.User{Nickname: "plaintiff"}
	d := &database.User{Nickname: "defendant"}
	require.NoError(t, repos.Users.Create(ctx, nil, p))
	require.NoError(t, repos.Users.Create(ctx, nil, d))

	c := &database.Case{
		CaseNumber:   "2026-GOSOMI-0001",
		PlaintiffID:  p.ID,
		DefendantID:  d.ID,
		Title:        "Late again",
		Content:      "Forty minutes late without a message.",
		LawType:      "promise",
		Status:       database.StatusDefenseSubmitted,
		AppealStatus: database.AppealNone,
	}
	require.NoError(t, repos.Cases.Create(ctx, nil, c))
	require.NoError(t, repos.Defenses.Create(ctx, nil, &database.Defense{CaseID: c.ID, Content: "The bus broke down"}))

	fj := &scriptedJudge{replies: replies}
	uploads := t.TempDir()
	r := NewRequester(repos, fj, lawcode.NewProvider(book, nil), Options{UploadDir: uploads}, logger.NewNop())
	return &requesterFixture{repos: repos, judge: fj, requester: r, uploads: uploads, kase: c}
}

func (f *requesterFixture) reload(t *testing.T) *database.Case {
	t.Helper()
	c, err := f.repos.Cases.GetByID(context.Background(), nil, f.kase.ID)
	require.NoError(t, err)
	return c
}

var toReady = Transition{Status: database.StatusVerdictReady, AppealStatus: database.AppealNone}

func TestRequestPersistsVerdict(t *testing.T) {
	f := setupRequester(t, reply{body: "```json\n" + validVerdictJSON + "\n```"})

	res, err := f.requester.Request(context.Background(), f.kase, false, toReady)
	require.NoError(t, err)
	assert.Equal(t, Guilty, res.Result)
	assert.False(t, res.Cached)
	assert.False(t, res.ImagesIgnored)

	stored := f.reload(t)
	assert.Equal(t, database.StatusVerdictReady, stored.Status)
	require.NotNil(t, stored.VerdictText)
	assert.Equal(t, res.Text(), *stored.VerdictText)
	require.NotNil(t, stored.FirstVerdict)
	assert.Equal(t, *stored.VerdictText, *stored.FirstVerdict)
	require.NotNil(t, stored.FaultRatio)
	assert.Equal(t, database.FaultRatio{Plaintiff: 20, Defendant: 80}, *stored.FaultRatio)
	assert.Nil(t, stored.PenaltyChoice)

	decoded, err := Decode(stored.VerdictJSON)
	require.NoError(t, err)
	assert.Equal(t, res.Verdict, *decoded)

	require.Len(t, f.judge.requests, 1)
	sent := f.judge.requests[0]
	assert.Contains(t, sent.System, "PRM-1")
	assert.Contains(t, sent.Prompt, "The bus broke down")
}

func TestRequestClearsPreviousPenalty(t *testing.T) {
	f := setupRequester(t, reply{body: validVerdictJSON})
	ctx := context.Background()

	choice := database.PenaltyFunny
	picked := "old pick"
	f.kase.PenaltyChoice = &choice
	f.kase.PenaltySelected = &picked
	require.NoError(t, f.repos.Cases.Update(ctx, nil, f.kase, "penalty_choice", "penalty_selected"))

	_, err := f.requester.Request(ctx, f.kase, false, toReady)
	require.NoError(t, err)

	stored := f.reload(t)
	assert.Nil(t, stored.PenaltyChoice)
	assert.Nil(t, stored.PenaltySelected)
}

func TestRequestRetriesWithoutImages(t *testing.T) {
	f := setupRequester(t,
		reply{err: errors.Join(judge.ErrImageProcessing, &judge.StatusError{StatusCode: http.StatusBadRequest, Body: "bad image"})},
		reply{body: validVerdictJSON},
	)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(f.uploads, "receipt.png"), bigPNG(), 0644))
	require.NoError(t, f.repos.Evidence.Create(ctx, nil, []*database.Evidence{
		{CaseID: f.kase.ID, Type: database.EvidenceImage, Content: "receipt.png", SubmittedBy: database.RolePlaintiff, Stage: database.StageInitial},
	}))

	res, err := f.requester.Request(ctx, f.kase, false, toReady)
	require.NoError(t, err)
	assert.True(t, res.ImagesIgnored)

	require.Len(t, f.judge.requests, 2)
	assert.Len(t, f.judge.requests[0].Images, 1)
	assert.Empty(t, f.judge.requests[1].Images)
}

func TestRequestBadResponseLeavesCaseUntouched(t *testing.T) {
	f := setupRequester(t, reply{body: strings.Replace(validVerdictJSON, `"defendant": 80`, `"defendant": 10`, 1)})

	_, err := f.requester.Request(context.Background(), f.kase, false, toReady)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apierr.From(err).Status)
	assert.Equal(t, "JUDGE_BAD_RESPONSE", apierr.From(err).Code)

	stored := f.reload(t)
	assert.Equal(t, database.StatusDefenseSubmitted, stored.Status)
	assert.Nil(t, stored.VerdictText)
	assert.Nil(t, stored.FaultRatio)
}

func TestRequestJudgeFailure(t *testing.T) {
	f := setupRequester(t, reply{err: &judge.StatusError{StatusCode: http.StatusServiceUnavailable, Body: "down"}})

	_, err := f.requester.Request(context.Background(), f.kase, false, toReady)
	require.Error(t, err)
	assert.Equal(t, "JUDGE_FAILED", apierr.From(err).Code)
	assert.Equal(t, database.StatusDefenseSubmitted, f.reload(t).Status)
}

func TestRequestAppealKeepsFirstVerdict(t *testing.T) {
	f := setupRequester(t,
		reply{body: validVerdictJSON},
		reply{body: strings.Replace(validVerdictJSON, `"GUILTY"`, `"SETTLEMENT"`, 1)},
	)
	ctx := context.Background()

	_, err := f.requester.Request(ctx, f.kase, false, toReady)
	require.NoError(t, err)
	first := f.reload(t)

	reason := "the bus company confirmed the breakdown"
	first.AppellantID = &first.DefendantID
	first.AppealReason = &reason
	first.AppealStatus = database.AppealRequested
	first.Status = database.StatusUnderAppeal
	require.NoError(t, f.repos.Cases.Update(ctx, nil, first, "appellant_id", "appeal_reason", "appeal_status", "status"))

	res, err := f.requester.Request(ctx, first, true, Transition{Status: database.StatusCompleted, AppealStatus: database.AppealDone})
	require.NoError(t, err)
	assert.Equal(t, Settlement, res.Result)

	stored := f.reload(t)
	assert.Equal(t, database.StatusCompleted, stored.Status)
	assert.Equal(t, database.AppealDone, stored.AppealStatus)
	assert.Equal(t, *first.FirstVerdict, *stored.FirstVerdict)
	assert.NotEqual(t, *stored.FirstVerdict, *stored.VerdictText)

	appealPrompt := f.judge.requests[1].Prompt
	assert.Contains(t, appealPrompt, "## Appeal")
	assert.Contains(t, appealPrompt, "(DEFENDANT)")
	assert.Contains(t, appealPrompt, reason)
}
