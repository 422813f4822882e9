package models

import "time"

// Profile holds the contact attributes of a user. Email is the login handle
// and is unique among profiles that are not deleted.
type Profile struct {
	UserID      string
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	BirthDate   *time.Time
	NationalID  string
	Country     string
	Description string
	Deleted     bool
}

// Completed reports whether the user has filled in the profile form.
func (p *Profile) Completed() bool {
	return p != nil && p.FirstName != ""
}
