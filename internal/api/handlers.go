package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JustJay7/gosomi-court/internal/apierr"
	"github.com/JustJay7/gosomi-court/internal/cache"
	"github.com/JustJay7/gosomi-court/internal/court"
	"github.com/JustJay7/gosomi-court/internal/lawcode"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	db     *gorm.DB
	cache  cache.Cache
	law    lawcode.Provider
	court  *court.Service
	logger *logger.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB, cache cache.Cache, law lawcode.Provider, court *court.Service, logger *logger.Logger) *Handlers {
	return &Handlers{
		db:     db,
		cache:  cache,
		law:    law,
		court:  court,
		logger: logger,
	}
}

// HealthCheck reports database liveness and law-code cache statistics
func (h *Handlers) HealthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.logger.Error("Database health check failed", "error", err)
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":        status,
		"database":      err == nil,
		"cache":         h.cache.Stats(),
		"lawCategories": h.law.Categories(),
	})
}

// CreateUser registers a user who can take part in cases
func (h *Handlers) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.court.CreateUser(c.Request.Context(), req.Nickname)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusCreated, user)
}

func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	user, err := h.court.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, user)
}

func (h *Handlers) UserCases(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	cases, err := h.court.UserCases(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, cases)
}

func (h *Handlers) UserNotifications(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		h.fail(c, apierr.BadRequest("INVALID_LIMIT", "limit must be a number"))
		return
	}
	items, err := h.court.Notifications(c.Request.Context(), id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, items)
}

// CreateCase files a new case against a defendant
func (h *Handlers) CreateCase(c *gin.Context) {
	var req createCaseRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.court.CreateCase(c.Request.Context(), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusCreated, res)
}

func (h *Handlers) GetCase(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	detail, err := h.court.GetCase(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, detail)
}

func (h *Handlers) SubmitDefense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req defenseRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.court.SubmitDefense(c.Request.Context(), id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

// RequestVerdict returns the stored verdict or asks the judge for one
func (h *Handlers) RequestVerdict(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	res, err := h.court.RequestVerdict(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

func (h *Handlers) Vote(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req voteRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.court.Vote(c.Request.Context(), id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

func (h *Handlers) Jury(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	res, err := h.court.Jury(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

func (h *Handlers) SelectPenalty(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req penaltyRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.court.SelectPenalty(c.Request.Context(), id, req.Choice)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

func (h *Handlers) RequestAppeal(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appealRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.court.RequestAppeal(c.Request.Context(), id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

func (h *Handlers) AppealDefense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req defenseRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.court.AppealDefense(c.Request.Context(), id, req.appealInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

// AppealVerdict issues the final verdict of an appeal
func (h *Handlers) AppealVerdict(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	res, err := h.court.AppealVerdict(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

func (h *Handlers) IssueSummons(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	res, err := h.court.IssueSummons(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

// SubmitDefenseByToken lets a summoned defendant answer without an account
func (h *Handlers) SubmitDefenseByToken(c *gin.Context) {
	var req defenseRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.court.SubmitDefenseByToken(c.Request.Context(), c.Param("token"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

func (h *Handlers) respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae.Status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", ae.Status,
			"code", ae.Code,
			"error", err,
		)
	}

	body := gin.H{
		"success": false,
		"error":   ae.Error(),
		"code":    ae.Code,
	}
	for k, v := range ae.Details {
		body[k] = v
	}
	c.JSON(ae.Status, body)
}

func (h *Handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, apierr.New(http.StatusBadRequest, "INVALID_REQUEST", errors.New("invalid request body: "+err.Error())))
		return false
	}
	return true
}

func (h *Handlers) pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		h.fail(c, apierr.BadRequest("INVALID_ID", "invalid id"))
		return 0, false
	}
	return uint(id), true
}
