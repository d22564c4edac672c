package models

import (
	"time"

	"gorm.io/datatypes"
)

// Mood is a single journal entry. The embedding column stores the vector
// produced by the embedding collaborator as JSON so similarity lookups can
// score entries without a dedicated vector store.
type Mood struct {
	BaseModel

	UserID    string                       `gorm:"type:uuid;not null;index" json:"user_id"`
	Date      time.Time                    `gorm:"not null;index" json:"date"`
	MoodScore int                          `gorm:"not null" json:"mood_score"`
	MoodLabel string                       `json:"mood_label"`
	Notes     string                       `json:"notes"`
	Embedding datatypes.JSONSlice[float64] `json:"-"`
}
