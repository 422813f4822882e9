// Package models defines client-side data models used by the accountkeeper CLI.
package models

import "time"

// Session is the logged-in state kept between CLI runs.
type Session struct {
	UserID       string
	MasterUserID string
	CompanyID    string
	Email        string
	AccessToken  string
	SavedAt      time.Time
}

// Valid reports whether s carries a token worth sending.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != ""
}

// Confirmation is returned once a registration code is accepted. SetupToken
// authorizes exactly the following SetPassword call.
type Confirmation struct {
	UserID     string
	SetupToken string
}
