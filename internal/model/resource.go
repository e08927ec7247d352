package model

import "time"

// Resource type constants.
const (
	ResourceTypeLink  = "link"
	ResourceTypeSheet = "sheet"
	ResourceTypePPT   = "ppt"
	ResourceTypeOther = "other"
)

// Resource is a shared link or document. When TaskID is set the
// resource is attached to that task and is deleted along with it.
type Resource struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Title        string    `json:"title" db:"title"`
	URL          string    `json:"url" db:"url"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	TaskID       *string   `json:"task_id,omitempty" db:"task_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
