package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustJay7/gosomi-court/internal/cache"
	"github.com/JustJay7/gosomi-court/internal/court"
	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/internal/judge"
	"github.com/JustJay7/gosomi-court/internal/lawcode"
	"github.com/JustJay7/gosomi-court/internal/notify"
	"github.com/JustJay7/gosomi-court/internal/repository"
	"github.com/JustJay7/gosomi-court/internal/verdict"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

const testVerdict = `{"result":"GUILTY","intensity":"high","lawRefs":[{"id":"PRM-1","category":"promise"}],
"oneLine":"Guilty of lateness.","reasoning":"No message was sent.",
"penalties":{"serious":["Buy dinner","Apologise"],"funny":["Clock necklace"]},
"faultRatio":{"plaintiff":10,"defendant":90}}`

type stubJudge struct {
	body string
}

func (s stubJudge) Complete(ctx context.Context, req judge.Request) (string, error) {
	return s.body, nil
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Initialize(":memory:", "")
	require.NoError(t, err)

	log := logger.NewNop()
	testCache := cache.NewCache(100, 30*time.Minute)
	book, err := lawcode.LoadBook("")
	require.NoError(t, err)
	law := lawcode.NewProvider(book, testCache)

	repos := repository.New(db, log)
	requester := verdict.NewRequester(repos, stubJudge{body: testVerdict}, law, verdict.Options{UploadDir: t.TempDir()}, log)
	svc := court.NewService(repos, requester, notify.NewOutbox(repos.Notifications, nil, log), court.Options{}, log)

	router := gin.New()
	SetupRoutes(router, db, testCache, law, svc, log)
	return router
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func createUser(t *testing.T, router *gin.Engine, nickname string) uint {
	t.Helper()
	code, env := do(t, router, http.MethodPost, "/api/users", gin.H{"nickname": nickname})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var user database.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	return user.ID
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Contains(t, response, "cache")
}

func TestCaseLifecycleOverHTTP(t *testing.T) {
	router := setupTestRouter(t)
	plaintiff := createUser(t, router, "mina")
	defendant := createUser(t, router, "joon")

	code, env := do(t, router, http.MethodPost, "/api/cases", gin.H{
		"title":       "Late for the movie",
		"content":     "Forty minutes late.",
		"plaintiffId": plaintiff,
		"defendantId": defendant,
		"juryEnabled": false,
		"lawType":     "promise",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created court.CreateCaseResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, database.StatusSummoned, created.Status)
	casePath := fmt.Sprintf("/api/cases/%d", created.CaseID)

	code, env = do(t, router, http.MethodPost, casePath+"/defense", gin.H{
		"content":   "I was late because of traffic",
		"evidences": []gin.H{{"type": "text", "content": "Traffic report"}},
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = do(t, router, http.MethodPost, casePath+"/defense", gin.H{"content": "again"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DEFENSE_ALREADY_SUBMITTED", env.Code)

	code, env = do(t, router, http.MethodPost, casePath+"/verdict", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var result verdict.Result
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, verdict.Guilty, result.Result)
	assert.Equal(t, 90, result.FaultRatio.Defendant)
	assert.NotNil(t, result.SkippedImages)

	code, env = do(t, router, http.MethodPost, casePath+"/penalty", gin.H{"choice": "SERIOUS"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var penalty court.PenaltyResult
	require.NoError(t, json.Unmarshal(env.Data, &penalty))
	options := []string{"Buy dinner", "Apologise"}
	assert.Equal(t, options[int(created.CaseID)%len(options)], penalty.PenaltySelected)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, casePath+"/penalty",
		bytes.NewReader([]byte(`{"choice":"FUNNY"}`))))
	assert.Equal(t, http.StatusConflict, w.Code)
	var conflict map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	assert.Equal(t, "SERIOUS", conflict["lockedChoice"])
	assert.Equal(t, false, conflict["success"])

	code, env = do(t, router, http.MethodGet, casePath, nil)
	require.Equal(t, http.StatusOK, code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "COMPLETED", detail["status"])
	assert.Equal(t, "I was late because of traffic", detail["defense"])
	assert.Len(t, detail["evidences"], 1)
	assert.Equal(t, float64(created.CaseID), detail["caseId"])
	assert.Equal(t, "SERIOUS", detail["penaltyChoice"])
	assert.NotContains(t, detail, "penalty_selected")
	evidence := detail["evidences"].([]any)[0].(map[string]any)
	assert.Equal(t, "DEFENDANT", evidence["submittedBy"])
	assert.Equal(t, "Traffic report", evidence["content"])
}

func TestErrorResponses(t *testing.T) {
	router := setupTestRouter(t)
	plaintiff := createUser(t, router, "mina")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"missing case", http.MethodGet, "/api/cases/42", nil, http.StatusNotFound, "CASE_NOT_FOUND"},
		{"bad id", http.MethodGet, "/api/cases/abc", nil, http.StatusBadRequest, "INVALID_ID"},
		{"missing fields", http.MethodPost, "/api/cases", gin.H{"title": "t"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown defendant", http.MethodPost, "/api/cases",
			gin.H{"title": "t", "content": "c", "plaintiffId": plaintiff, "defendantId": 999},
			http.StatusBadRequest, "PARTY_NOT_FOUND"},
		{"bad evidence type", http.MethodPost, "/api/cases/1/defense",
			gin.H{"content": "c", "evidences": []gin.H{{"type": "video", "content": "x"}}},
			http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown summons", http.MethodPost, "/api/summons/nope/defense", gin.H{"content": "c"},
			http.StatusNotFound, "SUMMONS_NOT_FOUND"},
		{"missing user", http.MethodGet, "/api/users/77/notifications", nil, http.StatusNotFound, "USER_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestSummonsFlowOverHTTP(t *testing.T) {
	router := setupTestRouter(t)
	plaintiff := createUser(t, router, "mina")
	defendant := createUser(t, router, "joon")

	code, env := do(t, router, http.MethodPost, "/api/cases", gin.H{
		"title": "Borrowed umbrella", "content": "Never returned.",
		"plaintiffId": plaintiff, "defendantId": defendant,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created court.CreateCaseResult
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, env = do(t, router, http.MethodPost, fmt.Sprintf("/api/cases/%d/summon", created.CaseID), nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var summons court.SummonsResult
	require.NoError(t, json.Unmarshal(env.Data, &summons))
	require.NotEmpty(t, summons.Token)

	code, env = do(t, router, http.MethodPost, "/api/summons/"+summons.Token+"/defense", gin.H{"content": "It was raining"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = do(t, router, http.MethodGet, fmt.Sprintf("/api/users/%d/notifications", plaintiff), nil)
	require.Equal(t, http.StatusOK, code)
	var items []database.Notification
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, notify.TypeDefenseSubmitted, items[0].Type)
}
