package models

import "time"

// Favorite marks that UserID starred FileID within OrgID. At most one exists
// per (UserID, OrgID, FileID).
type Favorite struct {
	ID        string
	UserID    string
	OrgID     string
	FileID    string
	CreatedAt time.Time
}
