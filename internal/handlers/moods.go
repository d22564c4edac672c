package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arvandy/moodmate/internal/services"
	"github.com/arvandy/moodmate/pkg/errors"
	"github.com/arvandy/moodmate/pkg/response"
)

// MoodHandler exposes the journal CRUD, summary, similarity, and chat endpoints.
type MoodHandler struct {
	moods *services.MoodService
}

func NewMoodHandler(moods *services.MoodService) *MoodHandler {
	return &MoodHandler{moods: moods}
}

type createMoodRequest struct {
	Date      string `json:"date" validate:"required"`
	MoodScore int    `json:"mood_score" validate:"required,min=1,max=10"`
	MoodLabel string `json:"mood_label" validate:"max=64"`
	Notes     string `json:"notes" validate:"max=4000"`
}

type updateMoodRequest struct {
	Date      *string `json:"date"`
	MoodScore *int    `json:"mood_score" validate:"omitempty,min=1,max=10"`
	MoodLabel *string `json:"mood_label" validate:"omitempty,max=64"`
	Notes     *string `json:"notes" validate:"omitempty,max=4000"`
}

type chatRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

// List handles GET /api/v1/moods with page, limit, and search query params.
func (h *MoodHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	opts := services.ListMoodsOptions{
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 20),
		Search: strings.TrimSpace(c.Query("search")),
	}

	moods, total, err := h.moods.List(requestContext(c), userID, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}
	totalPages := int((total + int64(opts.Limit) - 1) / int64(opts.Limit))

	response.SuccessWithMeta(c, http.StatusOK, "", moods, &response.Meta{
		Page:       opts.Page,
		Limit:      opts.Limit,
		Total:      total,
		TotalPages: totalPages,
		Search:     opts.Search,
	})
}

// Get handles GET /api/v1/moods/:id.
func (h *MoodHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	mood, err := h.moods.Get(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "", mood)
}

// Create handles POST /api/v1/moods.
func (h *MoodHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createMoodRequest
	if !bindAndValidate(c, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		response.Error(c, errors.NewBadRequest("date must be formatted as YYYY-MM-DD"))
		return
	}

	mood, err := h.moods.Create(requestContext(c), userID, services.CreateMoodInput{
		Date:      date,
		MoodScore: req.MoodScore,
		MoodLabel: req.MoodLabel,
		Notes:     req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Mood entry created", mood)
}

// Update handles PUT /api/v1/moods/:id.
func (h *MoodHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateMoodRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateMoodInput{
		MoodScore: req.MoodScore,
		MoodLabel: req.MoodLabel,
		Notes:     req.Notes,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			response.Error(c, errors.NewBadRequest("date must be formatted as YYYY-MM-DD"))
			return
		}
		input.Date = &date
	}

	mood, err := h.moods.Update(requestContext(c), userID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Mood entry updated", mood)
}

// Delete handles DELETE /api/v1/moods/:id.
func (h *MoodHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.moods.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Mood entry deleted", nil)
}

// Summary handles GET /api/v1/moods/summary?from&to. Defaults to the last 30 days.
func (h *MoodHandler) Summary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			response.Error(c, errors.NewBadRequest("from must be formatted as YYYY-MM-DD"))
			return
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			response.Error(c, errors.NewBadRequest("to must be formatted as YYYY-MM-DD"))
			return
		}
		// Include the whole final day.
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	summary, err := h.moods.Summary(requestContext(c), userID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "", summary)
}

// Similar handles GET /api/v1/moods/similar?q&limit.
func (h *MoodHandler) Similar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.Error(c, errors.NewBadRequest("q is required"))
		return
	}

	scored, err := h.moods.Similar(requestContext(c), userID, query, parseIntQuery(c, "limit", 5))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "", scored)
}

// Chat handles POST /api/v1/moods/chat.
func (h *MoodHandler) Chat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req chatRequest
	if !bindAndValidate(c, &req) {
		return
	}

	answer, err := h.moods.Chat(requestContext(c), userID, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "", gin.H{"answer": answer})
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
