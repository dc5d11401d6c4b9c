package http_poll

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	http_common "github.com/gatherhub/polls/core/internal/delivery/http/common"
	"github.com/gatherhub/polls/core/internal/model"
	usecase_poll "github.com/gatherhub/polls/core/internal/usecase/poll"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	usecase *usecase_poll.Usecase
	logger  *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(usecase *usecase_poll.Usecase, opts ...ControllerOption) *Controller {
	c := &Controller{
		usecase: usecase,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	polls := router.Group("/polls")
	{
		polls.POST("", c.create)
		polls.GET("/:poll_id", c.get)
		polls.PATCH("/:poll_id/phase", c.transitionPhase)
		polls.PATCH("/:poll_id/voting-system", c.changeVotingSystem)
		polls.POST("/:poll_id/options", c.addOption)
		polls.DELETE("/:poll_id/options/:option_id", c.hideOption)
		polls.POST("/:poll_id/votes", c.cast)
		polls.DELETE("/:poll_id/votes/:option_id", c.clear)
		polls.GET("/:poll_id/ballot", c.ballot)
	}
}

// CreatePollRequestDTO
type CreatePollRequestDTO struct {
	EventID      string     `json:"event_id" binding:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Title        string     `json:"title" binding:"required" example:"Which movie should we screen?"`
	PollType     string     `json:"poll_type" example:"movie" enums:"generic,date_selection,movie,cocktail,music_track"`
	VotingSystem string     `json:"voting_system" binding:"required" example:"star" enums:"binary,approval,star,ranked"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// PollResponseDTO
type PollResponseDTO struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	DisplayNumber int        `json:"display_number"`
	Title         string     `json:"title"`
	PollType      string     `json:"poll_type"`
	VotingSystem  string     `json:"voting_system"`
	Phase         string     `json:"phase"`
	Deadline      *time.Time `json:"deadline,omitempty"`
}

// @Summary Create a poll
// @Description Creates a poll for an event in the building phase
// @Tags Polls
// @Accept json
// @Produce json
// @Param request body CreatePollRequestDTO true "Poll settings"
// @Success 201 {object} PollResponseDTO "Poll created"
// @Failure 400 {object} http_common.ErrorResponse "Invalid request"
// @Failure 500 {object} http_common.ErrorResponse "Internal error"
// @Router /polls [post]
func (c *Controller) create(ctx *gin.Context) {
	var req CreatePollRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed request"})
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed event id"})
		return
	}

	poll, err := c.usecase.CreatePoll(ctx, model.Poll{
		EventID:      eventID,
		Title:        req.Title,
		Type:         model.PollType(req.PollType),
		VotingSystem: model.VotingSystem(req.VotingSystem),
		Deadline:     req.Deadline,
	})
	if err != nil {
		c.respondError(ctx, err, "failed to create poll")
		return
	}

	ctx.JSON(http.StatusCreated, pollToDTO(poll))
}

// @Summary Get a poll with its tally
// @Description Returns the poll, its visible options and a freshly computed tally
// @Tags Polls
// @Produce json
// @Param poll_id path string true "Poll id"
// @Success 200 {object} model.PollWithTally "Poll with tally"
// @Failure 404 {object} http_common.ErrorResponse "Poll not found"
// @Failure 500 {object} http_common.ErrorResponse "Internal error"
// @Router /polls/{poll_id} [get]
func (c *Controller) get(ctx *gin.Context) {
	pollID, ok := c.pathUUID(ctx, "poll_id")
	if !ok {
		return
	}

	result, err := c.usecase.GetPollWithTally(ctx, pollID)
	if err != nil {
		c.respondError(ctx, err, "failed to get poll")
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// TransitionRequestDTO
type TransitionRequestDTO struct {
	Phase string `json:"phase" binding:"required" example:"voting" enums:"voting,voting_with_suggestions,voting_only,closed"`
}

// @Summary Transition a poll's phase
// @Description Moves the poll through its lifecycle; closed is terminal
// @Tags Polls
// @Accept json
// @Produce json
// @Param poll_id path string true "Poll id"
// @Param request body TransitionRequestDTO true "Target phase"
// @Success 200 {object} PollResponseDTO "Poll after transition"
// @Failure 400 {object} http_common.ErrorResponse "Invalid request"
// @Failure 401 {object} http_common.ErrorResponse "Missing actor"
// @Failure 404 {object} http_common.ErrorResponse "Poll not found"
// @Failure 409 {object} http_common.ErrorResponse "Phase violation"
// @Security UserToken
// @Router /polls/{poll_id}/phase [patch]
func (c *Controller) transitionPhase(ctx *gin.Context) {
	pollID, ok := c.pathUUID(ctx, "poll_id")
	if !ok {
		return
	}
	actorID, ok := c.actor(ctx)
	if !ok {
		return
	}

	var req TransitionRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed request"})
		return
	}

	poll, err := c.usecase.TransitionPhase(ctx, pollID, model.Phase(req.Phase), actorID)
	if err != nil {
		c.respondError(ctx, err, "failed to transition poll")
		return
	}

	ctx.JSON(http.StatusOK, pollToDTO(poll))
}

// VotingSystemRequestDTO
type VotingSystemRequestDTO struct {
	VotingSystem string `json:"voting_system" binding:"required" enums:"binary,approval,star,ranked"`
}

// @Summary Change the voting system
// @Description Only possible while the poll is building and has no votes
// @Tags Polls
// @Accept json
// @Param poll_id path string true "Poll id"
// @Param request body VotingSystemRequestDTO true "New voting system"
// @Success 204 "Voting system changed"
// @Failure 404 {object} http_common.ErrorResponse "Poll not found"
// @Failure 409 {object} http_common.ErrorResponse "Phase violation or votes already cast"
// @Router /polls/{poll_id}/voting-system [patch]
func (c *Controller) changeVotingSystem(ctx *gin.Context) {
	pollID, ok := c.pathUUID(ctx, "poll_id")
	if !ok {
		return
	}

	var req VotingSystemRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed request"})
		return
	}

	if err := c.usecase.ChangeVotingSystem(ctx, pollID, model.VotingSystem(req.VotingSystem)); err != nil {
		c.respondError(ctx, err, "failed to change voting system")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// OptionRequestDTO
type OptionRequestDTO struct {
	Label   string          `json:"label" binding:"required" example:"Interstellar"`
	Payload json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
}

// OptionResponseDTO
type OptionResponseDTO struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Position int             `json:"position"`
}

// @Summary Suggest an option
// @Description Adds an option while the phase allows it (building or voting_with_suggestions)
// @Tags Polls
// @Accept json
// @Produce json
// @Param poll_id path string true "Poll id"
// @Param request body OptionRequestDTO true "Option"
// @Success 201 {object} OptionResponseDTO "Option added"
// @Failure 404 {object} http_common.ErrorResponse "Poll not found"
// @Failure 409 {object} http_common.ErrorResponse "Phase violation"
// @Router /polls/{poll_id}/options [post]
func (c *Controller) addOption(ctx *gin.Context) {
	pollID, ok := c.pathUUID(ctx, "poll_id")
	if !ok {
		return
	}

	var req OptionRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed request"})
		return
	}

	option, err := c.usecase.AddOption(ctx, pollID, req.Label, req.Payload)
	if err != nil {
		c.respondError(ctx, err, "failed to add option")
		return
	}

	ctx.JSON(http.StatusCreated, OptionResponseDTO{
		ID:       option.ID.String(),
		Label:    option.Label,
		Payload:  option.Payload,
		Position: option.Position,
	})
}

// @Summary Hide an option
// @Description Soft-hides an option; its votes are retained but excluded from listings and tallies
// @Tags Polls
// @Param poll_id path string true "Poll id"
// @Param option_id path string true "Option id"
// @Success 204 "Option hidden"
// @Failure 404 {object} http_common.ErrorResponse "Poll or option not found"
// @Failure 409 {object} http_common.ErrorResponse "Phase violation"
// @Router /polls/{poll_id}/options/{option_id} [delete]
func (c *Controller) hideOption(ctx *gin.Context) {
	pollID, ok := c.pathUUID(ctx, "poll_id")
	if !ok {
		return
	}
	optionID, ok := c.pathUUID(ctx, "option_id")
	if !ok {
		return
	}

	if err := c.usecase.HideOption(ctx, pollID, optionID); err != nil {
		c.respondError(ctx, err, "failed to hide option")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// CastRequestDTO carries the option reference and the raw ballot. Exactly the
// field of the poll's voting system is expected; ranked casts carry the
// whole ranking and no option id.
type CastRequestDTO struct {
	OptionID string   `json:"option_id,omitempty"`
	Choice   string   `json:"choice,omitempty" enums:"yes,no,maybe"`
	Approved *bool    `json:"approved,omitempty"`
	Rating   *int     `json:"rating,omitempty" minimum:"1" maximum:"5"`
	Ranking  []string `json:"ranking,omitempty"`
}

// @Summary Cast a vote
// @Description Casts or overwrites the caller's vote; ranked ballots replace the previous ranking wholesale
// @Tags Votes
// @Accept json
// @Produce json
// @Param poll_id path string true "Poll id"
// @Param request body CastRequestDTO true "Ballot"
// @Success 200 "Vote recorded"
// @Failure 400 {object} http_common.ErrorResponse "Invalid ballot"
// @Failure 401 {object} http_common.ErrorResponse "Missing voter"
// @Failure 404 {object} http_common.ErrorResponse "Poll or option not found"
// @Failure 409 {object} http_common.ErrorResponse "Phase violation"
// @Failure 503 {object} http_common.ErrorResponse "Storage conflict, retry"
// @Security UserToken
// @Router /polls/{poll_id}/votes [post]
func (c *Controller) cast(ctx *gin.Context) {
	pollID, ok := c.pathUUID(ctx, "poll_id")
	if !ok {
		return
	}
	voterID, ok := c.actor(ctx)
	if !ok {
		return
	}

	var req CastRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed request"})
		return
	}

	var optionID uuid.UUID
	if req.OptionID != "" {
		var err error
		if optionID, err = uuid.Parse(req.OptionID); err != nil {
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed option id"})
			return
		}
	}

	_, err := c.usecase.CastVote(ctx, pollID, voterID, optionID, model.RawBallot{
		Choice:   req.Choice,
		Approved: req.Approved,
		Rating:   req.Rating,
		Ranking:  req.Ranking,
	})
	if err != nil {
		c.respondError(ctx, err, "failed to cast vote")
		return
	}

	ctx.Status(http.StatusOK)
}

// @Summary Clear a vote
// @Description Removes the caller's vote for an option; for ranked polls clears the whole ranking
// @Tags Votes
// @Param poll_id path string true "Poll id"
// @Param option_id path string true "Option id (ignored for ranked polls)"
// @Success 204 "Vote cleared"
// @Failure 404 {object} http_common.ErrorResponse "Vote not found"
// @Failure 409 {object} http_common.ErrorResponse "Phase violation"
// @Security UserToken
// @Router /polls/{poll_id}/votes/{option_id} [delete]
func (c *Controller) clear(ctx *gin.Context) {
	pollID, ok := c.pathUUID(ctx, "poll_id")
	if !ok {
		return
	}
	optionID, ok := c.pathUUID(ctx, "option_id")
	if !ok {
		return
	}
	voterID, ok := c.actor(ctx)
	if !ok {
		return
	}

	if err := c.usecase.ClearVote(ctx, pollID, voterID, optionID); err != nil {
		c.respondError(ctx, err, "failed to clear vote")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// @Summary Get the caller's ballot
// @Description Returns the caller's current votes in the poll
// @Tags Votes
// @Produce json
// @Param poll_id path string true "Poll id"
// @Success 200 {array} model.Vote "Current ballot"
// @Failure 404 {object} http_common.ErrorResponse "Poll not found"
// @Security UserToken
// @Router /polls/{poll_id}/ballot [get]
func (c *Controller) ballot(ctx *gin.Context) {
	pollID, ok := c.pathUUID(ctx, "poll_id")
	if !ok {
		return
	}
	voterID, ok := c.actor(ctx)
	if !ok {
		return
	}

	votes, err := c.usecase.VoterBallot(ctx, pollID, voterID)
	if err != nil {
		c.respondError(ctx, err, "failed to load ballot")
		return
	}

	ctx.JSON(http.StatusOK, votes)
}

func (c *Controller) pathUUID(ctx *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "malformed " + param})
		return uuid.Nil, false
	}
	return id, true
}

func (c *Controller) actor(ctx *gin.Context) (uuid.UUID, bool) {
	token := ctx.GetHeader("X-user-token")
	if token == "" {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "X-user-token not found"})
		return uuid.Nil, false
	}
	actorID, err := uuid.Parse(token)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{Message: "malformed X-user-token"})
		return uuid.Nil, false
	}
	return actorID, true
}

func (c *Controller) respondError(ctx *gin.Context, err error, msg string) {
	c.logger.Error(msg, slog.String("error", err.Error()))

	var phaseErr *usecase_poll.PhaseViolationError
	switch {
	case errors.As(err, &phaseErr):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Message: phaseErr.Error()})
	case errors.Is(err, usecase_poll.ErrPhaseViolation), errors.Is(err, usecase_poll.ErrVotingSystemLocked):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Message: err.Error()})
	case errors.Is(err, usecase_poll.ErrInvalidInput):
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: err.Error()})
	case errors.Is(err, usecase_poll.ErrPollNotFound),
		errors.Is(err, usecase_poll.ErrOptionNotFound),
		errors.Is(err, usecase_poll.ErrVoteNotFound):
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Message: "not found"})
	case errors.Is(err, usecase_poll.ErrStorageConflict):
		ctx.JSON(http.StatusServiceUnavailable, http_common.ErrorResponse{Message: "storage conflict, retry"})
	default:
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Message: "internal error"})
	}
}

func pollToDTO(poll model.Poll) PollResponseDTO {
	return PollResponseDTO{
		ID:            poll.ID.String(),
		EventID:       poll.EventID.String(),
		DisplayNumber: poll.DisplayNumber,
		Title:         poll.Title,
		PollType:      string(poll.Type),
		VotingSystem:  string(poll.VotingSystem),
		Phase:         string(poll.Phase),
		Deadline:      poll.Deadline,
	}
}
