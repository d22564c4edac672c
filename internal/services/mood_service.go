package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arvandy/moodmate/internal/ai"
	"github.com/arvandy/moodmate/internal/models"
	apperrors "github.com/arvandy/moodmate/pkg/errors"
	"github.com/arvandy/moodmate/pkg/logger"
)

// MoodService handles per-user journal entries. Embedding and chat are
// optional collaborators; the CRUD paths work without them.
type MoodService struct {
	db       *gorm.DB
	embedder ai.Embedder
	chat     ai.ChatModel
}

// NewMoodService constructs the mood journal service. embedder and chat may be nil.
func NewMoodService(db *gorm.DB, embedder ai.Embedder, chat ai.ChatModel) (*MoodService, error) {
	if db == nil {
		return nil, errors.New("mood service: db is required")
	}
	return &MoodService{db: db, embedder: embedder, chat: chat}, nil
}

// CreateMoodInput carries a validated journal entry.
type CreateMoodInput struct {
	Date      time.Time
	MoodScore int
	MoodLabel string
	Notes     string
}

// UpdateMoodInput applies partial updates; nil fields are left untouched.
type UpdateMoodInput struct {
	Date      *time.Time
	MoodScore *int
	MoodLabel *string
	Notes     *string
}

// ListMoodsOptions controls pagination and filtering of List.
type ListMoodsOptions struct {
	Page   int
	Limit  int
	Search string
}

// MoodSummary aggregates entries over a period.
type MoodSummary struct {
	Count        int64          `json:"count"`
	AverageScore float64        `json:"average_score"`
	ByLabel      map[string]int `json:"by_label"`
}

// ScoredMood pairs an entry with its similarity to a query.
type ScoredMood struct {
	Mood       models.Mood `json:"mood"`
	Similarity float64     `json:"similarity"`
}

// List returns a page of the user's entries, newest first, plus the total count.
func (s *MoodService) List(ctx context.Context, userID string, opts ListMoodsOptions) ([]models.Mood, int64, error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Mood{}).Where("user_id = ?", userID)
	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("notes LIKE ? OR mood_label LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("mood service: count moods: %w", err)
	}

	var moods []models.Mood
	err := query.
		Order("date DESC").
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&moods).Error
	if err != nil {
		return nil, 0, fmt.Errorf("mood service: list moods: %w", err)
	}

	return moods, total, nil
}

// Get returns a single entry owned by the user.
func (s *MoodService) Get(ctx context.Context, userID, id string) (*models.Mood, error) {
	var mood models.Mood
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&mood).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mood service: get mood: %w", err)
	}
	return &mood, nil
}

// Create persists a new entry and, when an embedder is configured, attaches
// an embedding of the notes. Embedding failures do not block the write.
func (s *MoodService) Create(ctx context.Context, userID string, input CreateMoodInput) (*models.Mood, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("mood service: user id is required")
	}

	mood := &models.Mood{
		UserID:    userID,
		Date:      input.Date,
		MoodScore: input.MoodScore,
		MoodLabel: strings.TrimSpace(input.MoodLabel),
		Notes:     input.Notes,
	}

	if vector := s.embed(ctx, mood.MoodLabel, mood.Notes); vector != nil {
		mood.Embedding = datatypes.NewJSONSlice(vector)
	}

	if err := s.db.WithContext(ctx).Create(mood).Error; err != nil {
		return nil, fmt.Errorf("mood service: create mood: %w", err)
	}

	return mood, nil
}

// Update applies a partial update, refreshing the embedding when the text changed.
func (s *MoodService) Update(ctx context.Context, userID, id string, input UpdateMoodInput) (*models.Mood, error) {
	mood, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	reEmbed := false
	if input.Date != nil {
		updates["date"] = *input.Date
	}
	if input.MoodScore != nil {
		updates["mood_score"] = *input.MoodScore
	}
	if input.MoodLabel != nil {
		updates["mood_label"] = strings.TrimSpace(*input.MoodLabel)
		mood.MoodLabel = strings.TrimSpace(*input.MoodLabel)
		reEmbed = true
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
		mood.Notes = *input.Notes
		reEmbed = true
	}

	if reEmbed {
		if vector := s.embed(ctx, mood.MoodLabel, mood.Notes); vector != nil {
			updates["embedding"] = datatypes.NewJSONSlice(vector)
		}
	}

	if len(updates) == 0 {
		return mood, nil
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Mood{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mood service: update mood: %w", err)
	}

	return s.Get(ctx, userID, id)
}

// Delete removes an entry owned by the user.
func (s *MoodService) Delete(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Mood{})
	if result.Error != nil {
		return fmt.Errorf("mood service: delete mood: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Summary aggregates the user's entries within [from, to].
func (s *MoodService) Summary(ctx context.Context, userID string, from, to time.Time) (*MoodSummary, error) {
	var moods []models.Mood
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Find(&moods).Error
	if err != nil {
		return nil, fmt.Errorf("mood service: summarize moods: %w", err)
	}

	summary := &MoodSummary{ByLabel: map[string]int{}}
	var totalScore int
	for _, mood := range moods {
		summary.Count++
		totalScore += mood.MoodScore
		if mood.MoodLabel != "" {
			summary.ByLabel[mood.MoodLabel]++
		}
	}
	if summary.Count > 0 {
		summary.AverageScore = float64(totalScore) / float64(summary.Count)
	}

	return summary, nil
}

// Similar finds the user's entries closest to the query text by cosine
// similarity over stored embeddings.
func (s *MoodService) Similar(ctx context.Context, userID, query string, limit int) ([]ScoredMood, error) {
	if s.embedder == nil {
		return nil, apperrors.NewBadRequest("Similarity search is not configured")
	}
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "Failed to embed query")
	}

	var moods []models.Mood
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND embedding IS NOT NULL", userID).
		Find(&moods).Error; err != nil {
		return nil, fmt.Errorf("mood service: load moods: %w", err)
	}

	scored := make([]ScoredMood, 0, len(moods))
	for _, mood := range moods {
		if len(mood.Embedding) == 0 {
			continue
		}
		scored = append(scored, ScoredMood{
			Mood:       mood,
			Similarity: ai.CosineSimilarity(queryVector, mood.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Chat answers a free-form question about the user's recent entries.
func (s *MoodService) Chat(ctx context.Context, userID, message string) (string, error) {
	if s.chat == nil {
		return "", apperrors.NewBadRequest("Chat is not configured")
	}

	var recent []models.Mood
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(30).
		Find(&recent).Error; err != nil {
		return "", fmt.Errorf("mood service: load recent moods: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a supportive mood journal assistant. Recent entries:\n")
	for _, mood := range recent {
		fmt.Fprintf(&b, "- %s: score %d", mood.Date.Format("2006-01-02"), mood.MoodScore)
		if mood.MoodLabel != "" {
			fmt.Fprintf(&b, " (%s)", mood.MoodLabel)
		}
		if mood.Notes != "" {
			fmt.Fprintf(&b, ": %s", mood.Notes)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(message)

	answer, err := s.chat.Generate(ctx, b.String())
	if err != nil {
		return "", apperrors.Wrap(err, "Failed to generate chat response")
	}
	return answer, nil
}

func (s *MoodService) embed(ctx context.Context, label, notes string) []float64 {
	if s.embedder == nil {
		return nil
	}

	text := strings.TrimSpace(strings.Join([]string{label, notes}, " "))
	if text == "" {
		return nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.WithModule("moods").Warn("embedding failed", zap.Error(err))
		return nil
	}
	return vector
}
