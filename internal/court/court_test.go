package court

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/judge"
	"github.com/JustJay7/gosomi-court/internal/lawcode"
	"github.com/JustJay7/gosomi-court/internal/notify"
	"github.com/JustJay7/gosomi-court/internal/repository"
	"github.com/JustJay7/gosomi-court/internal/verdict"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

const guiltyVerdict = `{
  "result": "GUILTY",
  "intensity": "mid",
  "lawRefs": [{"id": "PRM-1", "category": "promise"}],
  "oneLine": "The defendant is guilty of chronic lateness.",
  "reasoning": "Traffic was foreseeable and no message was sent.",
  "penalties": {"serious": ["Buy dinner", "Apologise in person", "Arrive early next time"], "funny": ["Wear a clock necklace", "Sing an apology song"]},
  "faultRatio": {"plaintiff": 20, "defendant": 80}
}`

const settlementVerdict = `{
  "result": "SETTLEMENT",
  "intensity": "low",
  "lawRefs": [{"id": "GEN-1", "category": "general"}],
  "oneLine": "On appeal the parties share the blame.",
  "reasoning": "The new evidence shows the plan changed last minute.",
  "penalties": {"serious": ["Split the next bill"], "funny": ["Matching hats"]},
  "faultRatio": {"plaintiff": 40, "defendant": 60}
}`

const bothAtFaultVerdict = `{
  "result": "BOTH_AT_FAULT",
  "intensity": "low",
  "lawRefs": [{"id": "GEN-1", "category": "general"}],
  "oneLine": "Both of you are at fault.",
  "reasoning": "Neither side kept their word.",
  "penalties": {"serious": [], "funny": []},
  "faultRatio": {"plaintiff": 50, "defendant": 50}
}`

// fakeJudge answers with body, optionally waiting on gate first.
type fakeJudge struct {
	mu    sync.Mutex
	body  string
	err   error
	calls int
	gate  chan struct{}
}

func (f *fakeJudge) Complete(ctx context.Context, req judge.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	body, err := f.body, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return body, err
}

func (f *fakeJudge) answer(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body, f.err = body, nil
}

func (f *fakeJudge) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	svc   *Service
	repos *repository.Repositories
	judge *fakeJudge
	users []uint
}

func setup(t *testing.T, users int) *fixture {
	t.Helper()
	db, err := database.Initialize(":memory:", "")
	require.NoError(t, err)

	log := logger.NewNop()
	repos := repository.New(db, log)

	book, err := lawcode.LoadBook("")
	require.NoError(t, err)

	fj := &fakeJudge{body: guiltyVerdict}
	requester := verdict.NewRequester(repos, fj, lawcode.NewProvider(book, nil), verdict.Options{UploadDir: t.TempDir()}, log)
	outbox := notify.NewOutbox(repos.Notifications, nil, log)

	f := &fixture{
		svc:   NewService(repos, requester, outbox, Options{}, log),
		repos: repos,
		judge: fj,
	}
	for i := 0; i < users; i++ {
		u, err := f.svc.CreateUser(context.Background(), "user")
		require.NoError(t, err)
		f.users = append(f.users, u.ID)
	}
	return f
}

func (f *fixture) file(t *testing.T, in CreateCaseInput) *CreateCaseResult {
	t.Helper()
	if in.Title == "" {
		in.Title = "Late for the movie"
	}
	if in.Content == "" {
		in.Content = "We missed the first twenty minutes."
	}
	if in.PlaintiffID == 0 {
		in.PlaintiffID = f.users[0]
	}
	if in.DefendantID == 0 {
		in.DefendantID = f.users[1]
	}
	res, err := f.svc.CreateCase(context.Background(), in)
	require.NoError(t, err)
	return res
}

// atVerdictReady files a case, answers it and obtains a first verdict.
func (f *fixture) atVerdictReady(t *testing.T) uint {
	t.Helper()
	ctx := context.Background()
	id := f.file(t, CreateCaseInput{}).CaseID
	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "I was late because of traffic"})
	require.NoError(t, err)
	_, err = f.svc.RequestVerdict(ctx, id)
	require.NoError(t, err)
	return id
}

func (f *fixture) load(t *testing.T, id uint) *database.Case {
	t.Helper()
	c, err := f.repos.Cases.GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return c
}

func assertAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	var ae *apierr.Error
	require.True(t, errors.As(err, &ae), "expected api error, got %v", err)
	assert.Equal(t, status, ae.Status, ae.Error())
	assert.Equal(t, code, ae.Code)
}

func notificationTypes(t *testing.T, f *fixture, userID uint) []string {
	t.Helper()
	items, err := f.svc.Notifications(context.Background(), userID, 0)
	require.NoError(t, err)
	var types []string
	for _, n := range items {
		types = append(types, n.Type)
	}
	return types
}

func assertCaseInvariants(t *testing.T, c *database.Case) {
	t.Helper()
	if c.FaultRatio != nil {
		assert.Equal(t, 100, c.FaultRatio.Plaintiff+c.FaultRatio.Defendant)
	}
	assert.Equal(t, c.PenaltyChoice == nil, c.PenaltySelected == nil)
}

func TestEndToEndVerdictAndPenalty(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	created := f.file(t, CreateCaseInput{JuryEnabled: false})
	assert.Equal(t, database.StatusSummoned, created.Status)

	_, err := f.svc.SubmitDefense(ctx, created.CaseID, DefenseInput{Content: "I was late because of traffic"})
	require.NoError(t, err)

	res, err := f.svc.RequestVerdict(ctx, created.CaseID)
	require.NoError(t, err)
	assert.False(t, res.Cached)

	c := f.load(t, created.CaseID)
	assert.Equal(t, database.StatusVerdictReady, c.Status)
	require.NotNil(t, c.VerdictText)
	require.NotNil(t, c.Penalties)
	assert.LessOrEqual(t, len(c.Penalties.Serious), 3)
	assert.LessOrEqual(t, len(c.Penalties.Funny), 3)
	assertCaseInvariants(t, c)

	picked, err := f.svc.SelectPenalty(ctx, created.CaseID, database.PenaltySerious)
	require.NoError(t, err)
	assert.False(t, picked.Cached)

	c = f.load(t, created.CaseID)
	assert.Equal(t, database.StatusCompleted, c.Status)
	serious := c.Penalties.Serious
	assert.Equal(t, serious[int(c.ID)%len(serious)], picked.PenaltySelected)
	assert.Equal(t, picked.PenaltySelected, *c.PenaltySelected)
	assertCaseInvariants(t, c)

	assert.Equal(t, []string{notify.TypeVerdictReady, notify.TypeDefenseSubmitted}, notificationTypes(t, f, c.PlaintiffID))
}

func TestCreateCaseValidation(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateCaseInput
		code string
	}{
		{"missing title", CreateCaseInput{Content: "c", PlaintiffID: f.users[0], DefendantID: f.users[1]}, "TITLE_REQUIRED"},
		{"unknown defendant", CreateCaseInput{Title: "t", Content: "c", PlaintiffID: f.users[0], DefendantID: 999}, "PARTY_NOT_FOUND"},
		{"same party", CreateCaseInput{Title: "t", Content: "c", PlaintiffID: f.users[0], DefendantID: f.users[0]}, "SAME_PARTY"},
		{"bad jury mode", CreateCaseInput{Title: "t", Content: "c", PlaintiffID: f.users[0], DefendantID: f.users[1],
			JuryEnabled: true, JuryMode: "LOTTERY"}, "INVALID_JURY_MODE"},
		{"bad evidence", CreateCaseInput{Title: "t", Content: "c", PlaintiffID: f.users[0], DefendantID: f.users[1],
			Evidences: []EvidenceInput{{Type: "video", Content: "x"}}}, "INVALID_EVIDENCE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateCase(ctx, tt.in)
			assertAPIError(t, err, 400, tt.code)
		})
	}
}

func TestCreateCaseNumbersAndNotifiesDefendant(t *testing.T) {
	f := setup(t, 2)

	first := f.file(t, CreateCaseInput{})
	second := f.file(t, CreateCaseInput{})

	year := f.svc.now().Year()
	assert.Equal(t, repository.FormatCaseNumber(year, 1), first.CaseNumber)
	assert.Equal(t, repository.FormatCaseNumber(year, 2), second.CaseNumber)
	assert.Empty(t, first.Jurors)
	assert.Nil(t, first.InviteToken)

	assert.Equal(t, []string{notify.TypeCaseFiled, notify.TypeCaseFiled}, notificationTypes(t, f, f.users[1]))
	assert.Empty(t, notificationTypes(t, f, f.users[0]))
}

func TestCreateCaseRandomJury(t *testing.T) {
	f := setup(t, 9)

	res := f.file(t, CreateCaseInput{JuryEnabled: true, JuryMode: database.JuryRandom})
	require.Len(t, res.Jurors, 5)
	for _, id := range res.Jurors {
		assert.NotContains(t, []uint{f.users[0], f.users[1]}, id)
	}

	jury, err := f.svc.Jury(context.Background(), res.CaseID)
	require.NoError(t, err)
	assert.Len(t, jury.Jurors, 5)
	assert.Equal(t, database.JuryRandom, jury.Mode)
	for _, j := range jury.Jurors {
		assert.Equal(t, database.JurorInvited, j.Status)
		assert.Contains(t, notificationTypes(t, f, j.UserID), notify.TypeJurySummoned)
	}
}

func TestCreateCaseRandomJuryWithFewUsers(t *testing.T) {
	f := setup(t, 3)
	res := f.file(t, CreateCaseInput{JuryEnabled: true})
	assert.Equal(t, []uint{f.users[2]}, res.Jurors)
}

func TestCreateCaseInviteJuryIsCapped(t *testing.T) {
	f := setup(t, 9)
	u := f.users

	invited := []uint{u[0], u[2], u[2], 999, u[3], u[1], u[4], u[5], u[6], u[7], u[8]}
	res := f.file(t, CreateCaseInput{JuryEnabled: true, JuryMode: database.JuryInvite, JuryInvitedUserIDs: invited})

	assert.Equal(t, []uint{u[2], u[3], u[4], u[5], u[6]}, res.Jurors)
	require.NotNil(t, res.InviteToken)
	assert.Len(t, *res.InviteToken, 36)
}

func TestSubmitDefenseTwiceIsRejected(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.file(t, CreateCaseInput{}).CaseID

	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "first"})
	require.NoError(t, err)

	_, err = f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "second"})
	assertAPIError(t, err, 409, "DEFENSE_ALREADY_SUBMITTED")

	d, err := f.repos.Defenses.GetByCase(ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, "first", d.Content)
}

func TestDuplicateDefenseRepairsStatus(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.file(t, CreateCaseInput{}).CaseID

	// a defense row whose status write never happened
	require.NoError(t, f.repos.Defenses.Create(ctx, nil, &database.Defense{CaseID: id, Content: "orphan"}))
	assert.Equal(t, database.StatusSummoned, f.load(t, id).Status)

	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "again"})
	assertAPIError(t, err, 409, "DEFENSE_ALREADY_SUBMITTED")
	assert.Equal(t, database.StatusDefenseSubmitted, f.load(t, id).Status)
}

func TestSubmitDefenseGuards(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.file(t, CreateCaseInput{}).CaseID

	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "   "})
	assertAPIError(t, err, 400, "CONTENT_REQUIRED")

	_, err = f.svc.SubmitDefense(ctx, 404, DefenseInput{Content: "x"})
	assertAPIError(t, err, 404, "CASE_NOT_FOUND")

	c := f.load(t, id)
	c.Status = database.StatusExpired
	require.NoError(t, f.repos.Cases.Update(ctx, nil, c, "status"))
	_, err = f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "too late"})
	assertAPIError(t, err, 400, "INVALID_STATUS")
}

func TestEvidenceRoundTrip(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	id := f.file(t, CreateCaseInput{Evidences: []EvidenceInput{{Type: database.EvidenceText, Content: "P"}}}).CaseID
	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{
		Content:   "defense",
		Evidences: []EvidenceInput{{Type: database.EvidenceText, Content: "X"}},
	})
	require.NoError(t, err)

	detail, err := f.svc.GetCase(ctx, id)
	require.NoError(t, err)
	require.Len(t, detail.Evidences, 2)
	assert.Equal(t, "P", detail.Evidences[0].Content)
	assert.Equal(t, database.RolePlaintiff, detail.Evidences[0].SubmittedBy)

	ev := detail.Evidences[1]
	assert.Equal(t, database.EvidenceText, ev.Type)
	assert.Equal(t, "X", ev.Content)
	assert.Equal(t, database.RoleDefendant, ev.SubmittedBy)
	assert.Equal(t, database.StageInitial, ev.Stage)
	require.NotNil(t, detail.Defense)
	assert.Equal(t, "defense", *detail.Defense)

	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	for _, key := range []string{"caseId", "caseNumber", "status", "appealStatus", "penaltySelected", "faultRatio", "evidences", "defense", "jury"} {
		assert.Contains(t, body, key)
	}
	for _, key := range []string{"ID", "DeletedAt", "verdict_json", "invite_token", "appeal_status"} {
		assert.NotContains(t, body, key)
	}

	items, ok := body["evidences"].([]any)
	require.True(t, ok)
	wire, ok := items[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "X", wire["content"])
	assert.Equal(t, "DEFENDANT", wire["submittedBy"])
	assert.Equal(t, "INITIAL", wire["stage"])
	assert.Equal(t, "text", wire["type"])
	assert.Contains(t, wire, "id")
	assert.NotContains(t, wire, "submitted_by")
	assert.NotContains(t, wire, "DeletedAt")
}

func TestGetCaseWithoutEvidence(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.file(t, CreateCaseInput{}).CaseID

	detail, err := f.svc.GetCase(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, detail.Evidences)
	assert.Empty(t, detail.Evidences)
	assert.Nil(t, detail.Defense)
	assert.Equal(t, repository.Tally{}, detail.Jury)

	_, err = f.svc.GetCase(ctx, 999)
	assertAPIError(t, err, 404, "CASE_NOT_FOUND")
}

func TestRequestVerdictIsCached(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.atVerdictReady(t)

	f.judge.answer(settlementVerdict)
	res, err := f.svc.RequestVerdict(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, verdict.Guilty, res.Result)
	assert.Equal(t, 1, f.judge.callCount())
}

func TestRequestVerdictBeforeDefense(t *testing.T) {
	f := setup(t, 2)
	id := f.file(t, CreateCaseInput{}).CaseID

	_, err := f.svc.RequestVerdict(context.Background(), id)
	assertAPIError(t, err, 400, "INVALID_STATUS")
	assert.Zero(t, f.judge.callCount())
}

func TestRequestVerdictJudgeFailureLeavesCase(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.file(t, CreateCaseInput{}).CaseID
	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "d"})
	require.NoError(t, err)

	f.judge.answer("I refuse to answer in JSON")
	_, err = f.svc.RequestVerdict(ctx, id)
	assertAPIError(t, err, 502, "JUDGE_BAD_RESPONSE")

	c := f.load(t, id)
	assert.Equal(t, database.StatusDefenseSubmitted, c.Status)
	assert.Nil(t, c.VerdictText)
	assert.NotContains(t, notificationTypes(t, f, c.PlaintiffID), notify.TypeVerdictReady)
}

func TestConcurrentVerdictRequestsCallJudgeOnce(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.file(t, CreateCaseInput{}).CaseID
	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "d"})
	require.NoError(t, err)

	f.judge.gate = make(chan struct{})

	const n = 5
	var wg sync.WaitGroup
	results := make([]*verdict.Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.RequestVerdict(ctx, id)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	close(f.judge.gate)
	wg.Wait()

	assert.Equal(t, 1, f.judge.callCount())
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, verdict.Guilty, res.Result)
	}
}

func TestCancelledCallerDoesNotFailSharedVerdict(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.file(t, CreateCaseInput{}).CaseID
	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "d"})
	require.NoError(t, err)

	f.judge.gate = make(chan struct{})

	firstCtx, cancelFirst := context.WithCancel(ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.svc.RequestVerdict(firstCtx, id)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.judge.callCount() == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		res *verdict.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := f.svc.RequestVerdict(ctx, id)
		second <- outcome{res, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(f.judge.gate)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, verdict.Guilty, got.res.Result)
	assert.Equal(t, 1, f.judge.callCount())
	assert.Equal(t, database.StatusVerdictReady, f.load(t, id).Status)
}

func TestVerdictClearsStalePenalty(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.atVerdictReady(t)

	_, err := f.svc.SelectPenalty(ctx, id, database.PenaltyFunny)
	require.NoError(t, err)
	_, err = f.svc.RequestAppeal(ctx, id, AppealInput{AppellantID: f.users[1], Reason: "unfair"})
	require.NoError(t, err)

	f.judge.answer(settlementVerdict)
	_, err = f.svc.AppealVerdict(ctx, id)
	require.NoError(t, err)

	c := f.load(t, id)
	assert.Nil(t, c.PenaltyChoice)
	assert.Nil(t, c.PenaltySelected)
	assertCaseInvariants(t, c)
}

func TestPickPenaltyIsDeterministic(t *testing.T) {
	options := []string{"A", "B", "C"}
	assert.Equal(t, "C", PickPenalty(14, options))
	assert.Equal(t, PickPenalty(14, options), PickPenalty(14, options))
	assert.Equal(t, "A", PickPenalty(15, options))
}

func TestSelectPenaltyLocksChoice(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.atVerdictReady(t)

	first, err := f.svc.SelectPenalty(ctx, id, database.PenaltySerious)
	require.NoError(t, err)

	again, err := f.svc.SelectPenalty(ctx, id, database.PenaltySerious)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, first.PenaltySelected, again.PenaltySelected)

	_, err = f.svc.SelectPenalty(ctx, id, database.PenaltyFunny)
	assertAPIError(t, err, 409, "PENALTY_LOCKED")
	var ae *apierr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, database.PenaltySerious, ae.Details["lockedChoice"])

	c := f.load(t, id)
	assert.Equal(t, database.PenaltySerious, *c.PenaltyChoice)
	assert.Equal(t, first.PenaltySelected, *c.PenaltySelected)
}

func TestSelectPenaltyGuards(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	_, err := f.svc.SelectPenalty(ctx, 1, "HARSH")
	assertAPIError(t, err, 400, "INVALID_CHOICE")

	_, err = f.svc.SelectPenalty(ctx, 999, database.PenaltySerious)
	assertAPIError(t, err, 404, "CASE_NOT_FOUND")

	id := f.file(t, CreateCaseInput{}).CaseID
	_, err = f.svc.SelectPenalty(ctx, id, database.PenaltySerious)
	assertAPIError(t, err, 400, "VERDICT_NOT_READY")
}

func TestSelectPenaltyWithEmptyCategory(t *testing.T) {
	f := setup(t, 2)
	f.judge.answer(bothAtFaultVerdict)
	id := f.atVerdictReady(t)

	_, err := f.svc.SelectPenalty(context.Background(), id, database.PenaltySerious)
	assertAPIError(t, err, 400, "NO_PENALTY_OPTIONS")
	assert.Equal(t, database.StatusVerdictReady, f.load(t, id).Status)
}

func TestSelectPenaltyRefreshesWinRates(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.atVerdictReady(t)

	_, err := f.svc.SelectPenalty(ctx, id, database.PenaltySerious)
	require.NoError(t, err)

	plaintiff, err := f.svc.GetUser(ctx, f.users[0])
	require.NoError(t, err)
	defendant, err := f.svc.GetUser(ctx, f.users[1])
	require.NoError(t, err)

	assert.Equal(t, 100.0, plaintiff.WinRate)
	assert.Equal(t, 0.0, defendant.WinRate)
	assert.Equal(t, database.StatusCompleted, f.load(t, id).Status)
}

func TestJuryVoting(t *testing.T) {
	f := setup(t, 4)
	ctx := context.Background()
	u := f.users

	created := f.file(t, CreateCaseInput{JuryEnabled: true, JuryMode: database.JuryInvite, JuryInvitedUserIDs: []uint{u[2], u[3]}})
	id := created.CaseID

	res, err := f.svc.Vote(ctx, id, VoteInput{UserID: u[2], Vote: database.RolePlaintiff})
	require.NoError(t, err)
	assert.Equal(t, repository.Tally{Plaintiff: 1, Total: 1}, res.Jury)

	_, err = f.svc.Vote(ctx, id, VoteInput{UserID: u[2], Vote: database.RoleDefendant})
	assertAPIError(t, err, 409, "ALREADY_VOTED")

	_, err = f.svc.Vote(ctx, id, VoteInput{UserID: u[0], Vote: database.RolePlaintiff})
	assertAPIError(t, err, 403, "NOT_A_JUROR")

	_, err = f.svc.Vote(ctx, id, VoteInput{UserID: u[3], Vote: "NOBODY"})
	assertAPIError(t, err, 400, "INVALID_VOTE")

	jury, err := f.svc.Jury(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, repository.Tally{Plaintiff: 1, Total: 1}, jury.Tally)
}

func TestJuryVoteRejectedDuringAppeal(t *testing.T) {
	f := setup(t, 3)
	ctx := context.Background()
	u := f.users

	id := f.file(t, CreateCaseInput{JuryEnabled: true, JuryMode: database.JuryInvite, JuryInvitedUserIDs: []uint{u[2]}}).CaseID
	_, err := f.svc.SubmitDefense(ctx, id, DefenseInput{Content: "d"})
	require.NoError(t, err)
	_, err = f.svc.RequestVerdict(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.RequestAppeal(ctx, id, AppealInput{AppellantID: u[0], Reason: "r"})
	require.NoError(t, err)

	_, err = f.svc.Vote(ctx, id, VoteInput{UserID: u[2], Vote: database.RoleDefendant})
	assertAPIError(t, err, 403, "APPEAL_ACTIVE")

	j, err := f.repos.Jurors.Get(ctx, nil, id, u[2])
	require.NoError(t, err)
	assert.Equal(t, database.JurorInvited, j.Status)
}

func TestEndToEndAppeal(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.atVerdictReady(t)
	plaintiff, defendant := f.users[0], f.users[1]
	firstText := *f.load(t, id).VerdictText

	appeal, err := f.svc.RequestAppeal(ctx, id, AppealInput{
		AppellantID: plaintiff,
		Reason:      "new evidence found",
		Evidences:   []EvidenceInput{{Type: database.EvidenceText, Content: "Receipt"}},
	})
	require.NoError(t, err)
	assert.Equal(t, database.AppealRequested, appeal.AppealStatus)
	assert.Equal(t, database.StatusUnderAppeal, appeal.Status)
	assert.Contains(t, notificationTypes(t, f, defendant), notify.TypeAppealRequested)

	cached, err := f.svc.RequestVerdict(ctx, id)
	require.NoError(t, err)
	assert.True(t, cached.Cached)

	answered, err := f.svc.AppealDefense(ctx, id, AppealDefenseInput{Content: "I disagree"})
	require.NoError(t, err)
	assert.Equal(t, database.AppealResponded, answered.AppealStatus)
	assert.Contains(t, notificationTypes(t, f, plaintiff), notify.TypeAppealResponded)

	f.judge.answer(settlementVerdict)
	res, err := f.svc.AppealVerdict(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, verdict.Settlement, res.Result)

	c := f.load(t, id)
	assert.Equal(t, database.AppealDone, c.AppealStatus)
	assert.Equal(t, database.StatusCompleted, c.Status)
	assert.Equal(t, res.Text(), *c.VerdictText)
	assert.False(t, strings.Contains(*c.VerdictText, firstText), "verdict text must be overwritten")
	assert.Equal(t, firstText, *c.FirstVerdict)
	assertCaseInvariants(t, c)

	u, err := f.svc.GetUser(ctx, plaintiff)
	require.NoError(t, err)
	assert.Equal(t, 100.0, u.WinRate)

	detail, err := f.svc.GetCase(ctx, id)
	require.NoError(t, err)
	var appealEvidence []EvidenceView
	for _, ev := range detail.Evidences {
		if ev.Stage == database.StageAppeal {
			appealEvidence = append(appealEvidence, ev)
		}
	}
	require.Len(t, appealEvidence, 1)
	assert.Equal(t, database.RolePlaintiff, appealEvidence[0].SubmittedBy)

	_, err = f.svc.RequestAppeal(ctx, id, AppealInput{AppellantID: defendant, Reason: "again"})
	assertAPIError(t, err, 400, "APPEAL_ALREADY_USED")

	_, err = f.svc.AppealVerdict(ctx, id)
	assertAPIError(t, err, 400, "APPEAL_CLOSED")
}

func TestAppealGuards(t *testing.T) {
	f := setup(t, 3)
	ctx := context.Background()

	early := f.file(t, CreateCaseInput{}).CaseID
	_, err := f.svc.RequestAppeal(ctx, early, AppealInput{AppellantID: f.users[0], Reason: "r"})
	assertAPIError(t, err, 400, "INVALID_STATUS")

	_, err = f.svc.AppealDefense(ctx, early, AppealDefenseInput{Content: "c"})
	assertAPIError(t, err, 400, "APPEAL_NOT_REQUESTED")

	_, err = f.svc.AppealVerdict(ctx, early)
	assertAPIError(t, err, 400, "APPEAL_NOT_ACTIVE")

	id := f.atVerdictReady(t)
	_, err = f.svc.RequestAppeal(ctx, id, AppealInput{AppellantID: f.users[2], Reason: "r"})
	assertAPIError(t, err, 403, "NOT_A_PARTY")

	_, err = f.svc.RequestAppeal(ctx, id, AppealInput{AppellantID: f.users[0]})
	assertAPIError(t, err, 400, "REASON_REQUIRED")
}

func TestAppealAfterCompletion(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()
	id := f.atVerdictReady(t)

	_, err := f.svc.SelectPenalty(ctx, id, database.PenaltySerious)
	require.NoError(t, err)

	res, err := f.svc.RequestAppeal(ctx, id, AppealInput{AppellantID: f.users[1], Reason: "too harsh"})
	require.NoError(t, err)
	assert.Equal(t, database.StatusUnderAppeal, res.Status)

	// defendant appealed, so the plaintiff answers
	_, err = f.svc.AppealDefense(ctx, id, AppealDefenseInput{
		Content:   "it was fair",
		Evidences: []EvidenceInput{{Type: database.EvidenceText, Content: "Chat log"}},
	})
	require.NoError(t, err)

	evidence, err := f.repos.Evidence.ListByCase(ctx, nil, id)
	require.NoError(t, err)
	last := evidence[len(evidence)-1]
	assert.Equal(t, database.StageAppeal, last.Stage)
	assert.Equal(t, database.RolePlaintiff, last.SubmittedBy)
}
