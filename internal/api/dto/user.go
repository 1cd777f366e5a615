package dto

import (
	"time"

	"github.com/google/uuid"
)

// UserResponse represents a directory member in API responses
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResponse reports the outcome of a file upload batch.
type UploadResponse struct {
	Uploaded []UploadedFile `json:"uploaded"`
	Failed   []string       `json:"failed,omitempty"`
}

type UploadedFile struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}
