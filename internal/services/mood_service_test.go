package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/arvandy/moodmate/pkg/errors"
)

// fakeEmbedder returns a deterministic vector derived from the text length.
type fakeEmbedder struct {
	fail    error
	vectors map[string][]float64
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{float64(len(text)), 1}, nil
}

type fakeChat struct {
	reply string
	fail  error
}

func (f *fakeChat) Generate(_ context.Context, _ string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	return f.reply, nil
}

func TestMoodCreateAttachesEmbedding(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewMoodService(db, &fakeEmbedder{}, nil)
	require.NoError(t, err)

	user := seedUser(t, db, "mood@example.com", "password1", true)

	mood, err := svc.Create(context.Background(), user.ID, CreateMoodInput{
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		MoodScore: 7,
		MoodLabel: "content",
		Notes:     "sunny walk",
	})
	require.NoError(t, err)
	require.NotEmpty(t, mood.ID)
	require.NotEmpty(t, mood.Embedding)
}

func TestMoodCreateSurvivesEmbedderFailure(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewMoodService(db, &fakeEmbedder{fail: errors.New("quota")}, nil)
	require.NoError(t, err)

	user := seedUser(t, db, "noembed@example.com", "password1", true)

	mood, err := svc.Create(context.Background(), user.ID, CreateMoodInput{
		Date:      time.Now(),
		MoodScore: 4,
		Notes:     "meh",
	})
	require.NoError(t, err)
	require.Empty(t, mood.Embedding)
}

func TestMoodListPaginationAndSearch(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewMoodService(db, nil, nil)
	require.NoError(t, err)

	user := seedUser(t, db, "list@example.com", "password1", true)
	other := seedUser(t, db, "other@example.com", "password1", true)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), user.ID, CreateMoodInput{
			Date:      base.AddDate(0, 0, i),
			MoodScore: i + 1,
			Notes:     "entry",
		})
		require.NoError(t, err)
	}
	_, err = svc.Create(context.Background(), other.ID, CreateMoodInput{
		Date: base, MoodScore: 9, Notes: "entry",
	})
	require.NoError(t, err)

	moods, total, err := svc.List(context.Background(), user.ID, ListMoodsOptions{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, moods, 2)
	// Newest first.
	require.True(t, moods[0].Date.After(moods[1].Date))

	moods, total, err = svc.List(context.Background(), user.ID, ListMoodsOptions{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, moods, 1)

	_, total, err = svc.List(context.Background(), user.ID, ListMoodsOptions{Search: "nope"})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestMoodGetUpdateDeleteScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewMoodService(db, nil, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner@example.com", "password1", true)
	intruder := seedUser(t, db, "intruder@example.com", "password1", true)

	mood, err := svc.Create(context.Background(), owner.ID, CreateMoodInput{
		Date: time.Now(), MoodScore: 5, Notes: "mine",
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), intruder.ID, mood.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	newScore := 8
	updated, err := svc.Update(context.Background(), owner.ID, mood.ID, UpdateMoodInput{MoodScore: &newScore})
	require.NoError(t, err)
	require.Equal(t, 8, updated.MoodScore)

	require.ErrorIs(t, svc.Delete(context.Background(), intruder.ID, mood.ID), apperrors.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), owner.ID, mood.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), owner.ID, mood.ID), apperrors.ErrNotFound)
}

func TestMoodSummary(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewMoodService(db, nil, nil)
	require.NoError(t, err)

	user := seedUser(t, db, "summary@example.com", "password1", true)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	scores := []int{2, 4, 6}
	for i, score := range scores {
		_, err := svc.Create(context.Background(), user.ID, CreateMoodInput{
			Date: base.AddDate(0, 0, i), MoodScore: score, MoodLabel: "calm",
		})
		require.NoError(t, err)
	}
	// Outside the window.
	_, err = svc.Create(context.Background(), user.ID, CreateMoodInput{
		Date: base.AddDate(0, 1, 0), MoodScore: 10,
	})
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), user.ID, base, base.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.EqualValues(t, 3, summary.Count)
	require.InDelta(t, 4.0, summary.AverageScore, 1e-9)
	require.Equal(t, 3, summary.ByLabel["calm"])
}

func TestMoodSimilarRanksByCosine(t *testing.T) {
	db := newTestDB(t)
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"query":       {1, 0},
		"happy great": {1, 0},
		"sad awful":   {0, 1},
	}}
	svc, err := NewMoodService(db, embedder, nil)
	require.NoError(t, err)

	user := seedUser(t, db, "similar@example.com", "password1", true)

	_, err = svc.Create(context.Background(), user.ID, CreateMoodInput{
		Date: time.Now(), MoodScore: 8, MoodLabel: "happy", Notes: "great",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), user.ID, CreateMoodInput{
		Date: time.Now(), MoodScore: 2, MoodLabel: "sad", Notes: "awful",
	})
	require.NoError(t, err)

	results, err := svc.Similar(context.Background(), user.ID, "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "happy", results[0].Mood.MoodLabel)
	require.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestMoodSimilarWithoutEmbedder(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewMoodService(db, nil, nil)
	require.NoError(t, err)

	_, err = svc.Similar(context.Background(), "user", "query", 5)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestMoodChatUsesRecentEntries(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewMoodService(db, nil, &fakeChat{reply: "you seem upbeat"})
	require.NoError(t, err)

	user := seedUser(t, db, "chat@example.com", "password1", true)

	_, err = svc.Create(context.Background(), user.ID, CreateMoodInput{
		Date: time.Now(), MoodScore: 8, Notes: "good day",
	})
	require.NoError(t, err)

	answer, err := svc.Chat(context.Background(), user.ID, "how am I doing?")
	require.NoError(t, err)
	require.Equal(t, "you seem upbeat", answer)
}
