package models

import (
	"fmt"
	"strings"
	"time"
)

// AccessLevel is the ordered permission tier of a company member.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessReader
	AccessEditor
	AccessCreator
	AccessAdmin
)

// StandardRoles lists the roles seeded for every master user, highest first.
var StandardRoles = []AccessLevel{AccessAdmin, AccessCreator, AccessEditor, AccessReader, AccessNone}

func (l AccessLevel) String() string {
	switch l {
	case AccessNone:
		return "No Access"
	case AccessReader:
		return "Reader"
	case AccessEditor:
		return "Editor"
	case AccessCreator:
		return "Creator"
	case AccessAdmin:
		return "Admin"
	default:
		return fmt.Sprintf("AccessLevel(%d)", int(l))
	}
}

// Valid reports whether l is one of the five known tiers.
func (l AccessLevel) Valid() bool {
	return l >= AccessNone && l <= AccessAdmin
}

// IsAtLeast reports whether l grants at least the permissions of min.
func (l AccessLevel) IsAtLeast(min AccessLevel) bool {
	return l >= min
}

// ParseAccessLevel accepts the role name in any case.
func ParseAccessLevel(s string) (AccessLevel, error) {
	for _, l := range StandardRoles {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return AccessNone, fmt.Errorf("unknown access level %q", s)
}

// Company is a tenant root owned by its master user.
type Company struct {
	ID           string
	Name         string
	MasterUserID string
	CreatedAt    time.Time
}

// Assignment is the membership of a user in a company.
type Assignment struct {
	CompanyID   string
	UserID      string
	AccessLevel AccessLevel
	CreatedAt   time.Time
}

// Role is a named access level template owned by a master user.
type Role struct {
	ID           string
	MasterUserID string
	Name         string
	AccessLevel  AccessLevel
}

// MasterContext is the tenant a user works in after login.
type MasterContext struct {
	MasterUserID string
	CompanyID    string
}
