// Package models defines server-side data models persisted in the database.
package models

import "time"

// User mirrors an identity provider principal inside the system. Records are
// written by the external identity sync and are read-only to the core.
type User struct {
	ID              string
	TokenIdentifier string
	OrgIDs          []string
	Name            string
	Image           string
	CreatedAt       time.Time
}

// UserProfile is the display subset of a User shown next to uploaded files.
type UserProfile struct {
	Name  string
	Image string
}
