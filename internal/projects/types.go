package projects

import (
	"time"

	"github.com/google/uuid"
)

// Project is a website a user monitors.
type Project struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	KeywordCount int64     `json:"keywordCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Keyword is a search term tracked for a project.
type Keyword struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"projectId"`
	Keyword      string    `json:"keyword"`
	LocationCode int       `json:"locationCode"`
	LanguageCode string    `json:"languageCode"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ImportInput is the payload for adding a project.
type ImportInput struct {
	URL  string `json:"url" validate:"required,max=2048"`
	Name string `json:"name" validate:"omitempty,max=100"`
}

// TrackInput is the payload for tracking a keyword.
type TrackInput struct {
	Keyword      string `json:"keyword" validate:"required,max=200"`
	LocationCode int    `json:"locationCode" validate:"omitempty,min=1"`
	LanguageCode string `json:"languageCode" validate:"omitempty,len=2"`
}
