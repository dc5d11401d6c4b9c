package http_staging

import (
	"errors"
	"log/slog"
	"net/http"

	http_common "github.com/gatherhub/polls/core/internal/delivery/http/common"
	http_session_middleware "github.com/gatherhub/polls/core/internal/delivery/http/middleware/session"
	"github.com/gatherhub/polls/core/internal/model"
	service_verification "github.com/gatherhub/polls/core/internal/service/verification"
	usecase_poll "github.com/gatherhub/polls/core/internal/usecase/poll"
	usecase_staging "github.com/gatherhub/polls/core/internal/usecase/staging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	usecase      *usecase_staging.Usecase
	verification *service_verification.Service
	session      *http_session_middleware.Middleware
	logger       *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(usecase *usecase_staging.Usecase, verification *service_verification.Service, session *http_session_middleware.Middleware, opts ...ControllerOption) *Controller {
	c := &Controller{
		usecase:      usecase,
		verification: verification,
		session:      session,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	sessions := router.Group("/sessions", c.session.SessionRequired())
	{
		sessions.POST("/polls/:poll_id/votes", c.stage)
		sessions.GET("/votes", c.staged)
		sessions.POST("/reconcile", c.reconcile)
	}
	router.POST("/verification/:token", c.confirm)
}

// StageRequestDTO
type StageRequestDTO struct {
	OptionID string   `json:"option_id,omitempty"`
	Choice   string   `json:"choice,omitempty" enums:"yes,no,maybe"`
	Approved *bool    `json:"approved,omitempty"`
	Rating   *int     `json:"rating,omitempty" minimum:"1" maximum:"5"`
	Ranking  []string `json:"ranking,omitempty"`
}

// @Summary Stage an anonymous vote
// @Description Validates the ballot against the live poll and holds it in session state; nothing durable is written
// @Tags Staging
// @Accept json
// @Param poll_id path string true "Poll id"
// @Param request body StageRequestDTO true "Ballot"
// @Success 202 "Vote staged"
// @Failure 400 {object} http_common.ErrorResponse "Invalid ballot"
// @Failure 401 {object} http_common.ErrorResponse "Missing session"
// @Failure 404 {object} http_common.ErrorResponse "Poll not found"
// @Failure 409 {object} http_common.ErrorResponse "Phase violation"
// @Security SessionToken
// @Router /sessions/polls/{poll_id}/votes [post]
func (c *Controller) stage(ctx *gin.Context) {
	sessionID, ok := http_session_middleware.SessionFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "X-session-token not found"})
		return
	}
	pollID, err := uuid.Parse(ctx.Param("poll_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed poll_id"})
		return
	}

	var req StageRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed request"})
		return
	}

	var optionID uuid.UUID
	if req.OptionID != "" {
		if optionID, err = uuid.Parse(req.OptionID); err != nil {
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed option id"})
			return
		}
	}

	_, err = c.usecase.StageVote(ctx, sessionID, pollID, optionID, model.RawBallot{
		Choice:   req.Choice,
		Approved: req.Approved,
		Rating:   req.Rating,
		Ranking:  req.Ranking,
	})
	if err != nil {
		c.respondError(ctx, err, "failed to stage vote")
		return
	}

	ctx.Status(http.StatusAccepted)
}

// @Summary List staged votes
// @Description Returns the session's staged votes grouped by poll
// @Tags Staging
// @Produce json
// @Success 200 {object} map[string][]model.StagedVote "Staged votes by poll id"
// @Failure 401 {object} http_common.ErrorResponse "Missing session"
// @Security SessionToken
// @Router /sessions/votes [get]
func (c *Controller) staged(ctx *gin.Context) {
	sessionID, ok := http_session_middleware.SessionFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "X-session-token not found"})
		return
	}

	staged, err := c.usecase.StagedVotes(ctx, sessionID)
	if err != nil {
		c.respondError(ctx, err, "failed to list staged votes")
		return
	}

	ctx.JSON(http.StatusOK, staged)
}

// ReconcileRequestDTO
type ReconcileRequestDTO struct {
	Name  string `json:"name" binding:"required" example:"Ada"`
	Email string `json:"email" binding:"required" example:"ada@example.com"`
}

// @Summary Save staged votes under an identity
// @Description Resolves or creates the voter and replays every staged vote through the live casting path; partial success is reported per item
// @Tags Staging
// @Accept json
// @Produce json
// @Param request body ReconcileRequestDTO true "Visitor identity"
// @Success 200 {object} usecase_staging.Report "Per-item reconciliation report"
// @Failure 400 {object} http_common.ErrorResponse "Invalid request"
// @Failure 401 {object} http_common.ErrorResponse "Missing session"
// @Failure 404 {object} http_common.ErrorResponse "Nothing staged"
// @Failure 502 {object} http_common.ErrorResponse "Identity resolution failed, staged votes kept"
// @Security SessionToken
// @Router /sessions/reconcile [post]
func (c *Controller) reconcile(ctx *gin.Context) {
	sessionID, ok := http_session_middleware.SessionFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "X-session-token not found"})
		return
	}

	var req ReconcileRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed request"})
		return
	}

	report, err := c.usecase.Reconcile(ctx, sessionID, req.Name, req.Email)
	if err != nil {
		c.respondError(ctx, err, "failed to reconcile staged votes")
		return
	}

	ctx.JSON(http.StatusOK, report)
}

// @Summary Confirm a verification token
// @Description Marks the voter behind a one-time verification link as verified
// @Tags Staging
// @Param token path string true "One-time token"
// @Success 204 "Voter verified"
// @Failure 404 {object} http_common.ErrorResponse "Token invalid or expired"
// @Router /verification/{token} [post]
func (c *Controller) confirm(ctx *gin.Context) {
	if _, err := c.verification.Confirm(ctx, ctx.Param("token")); err != nil {
		if errors.Is(err, service_verification.ErrTokenInvalid) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "token invalid or expired"})
			return
		}
		c.logger.Error("failed to confirm verification", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) respondError(ctx *gin.Context, err error, msg string) {
	c.logger.Error(msg, slog.String("error", err.Error()))

	var phaseErr *usecase_poll.PhaseViolationError
	switch {
	case errors.As(err, &phaseErr):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Message: phaseErr.Error()})
	case errors.Is(err, usecase_staging.ErrInvalidInput):
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: err.Error()})
	case errors.Is(err, usecase_poll.ErrPollNotFound):
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "poll not found"})
	case errors.Is(err, usecase_staging.ErrNothingStaged):
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "nothing staged"})
	case errors.Is(err, usecase_staging.ErrIdentityResolution):
		ctx.JSON(http.StatusBadGateway, http_common.ErrorResponse{Message: "identity resolution failed, staged votes kept"})
	default:
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
	}
}
