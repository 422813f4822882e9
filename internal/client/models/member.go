package models

// Profile mirrors the server profile message. BirthDate is "YYYY-MM-DD" or
// empty.
type Profile struct {
	UserID      string
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	BirthDate   string
	NationalID  string
	Country     string
	Description string
}

// FullName joins first and last name, skipping empty parts.
func (p Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Company struct {
	ID           string
	Name         string
	MasterUserID string
}

// NewMember describes a member created by a company admin. An empty
// Password leaves the account pending until the invitation code is used.
type NewMember struct {
	CompanyID   string
	Email       string
	Password    string
	AccessLevel string
	Profile     Profile
}

type MemberResult struct {
	UserID           string
	Active           bool
	NotificationSent bool
}
