package services

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{4,32}$`)
)

var emailRules = []validation.Rule{
	validation.Required,
	validation.Length(3, 254),
	validation.Match(emailPattern).Error("must be a valid email address"),
}

var passwordRules = []validation.Rule{
	validation.Required,
	validation.Length(MinPasswordLength, MaxPasswordLength),
}

// normalizeEmail trims and lower-cases the login handle.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if err := validation.Validate(email, emailRules...); err != nil {
		return common.Validation("email " + err.Error())
	}
	return nil
}

func validatePassword(password string) error {
	if err := validation.Validate(password, passwordRules...); err != nil {
		return common.Validation("password " + err.Error())
	}
	return nil
}

// validateID rejects ids the store could not parse; every id is a UUID.
func validateID(name, id string) error {
	if err := validation.Validate(id, validation.Required, is.UUID); err != nil {
		return common.Validation(name + " " + err.Error())
	}
	return nil
}

// ProfileInput carries the editable profile attributes.
type ProfileInput struct {
	FirstName   string
	LastName    string
	Phone       string
	BirthDate   *time.Time
	NationalID  string
	Country     string
	Description string
}

func (p ProfileInput) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.LastName, validation.Length(0, 100)),
		validation.Field(&p.Phone, validation.Match(phonePattern)),
		validation.Field(&p.NationalID, validation.Length(0, 32)),
		validation.Field(&p.Country, validation.Length(0, 64)),
		validation.Field(&p.Description, validation.Length(0, 2000)),
		validation.Field(&p.BirthDate, validation.By(notInFuture)),
	)
	if err != nil {
		return common.Validation(err.Error())
	}
	return nil
}

func (p ProfileInput) apply(dst *models.Profile) {
	dst.FirstName = p.FirstName
	dst.LastName = p.LastName
	dst.Phone = p.Phone
	dst.BirthDate = p.BirthDate
	dst.NationalID = p.NationalID
	dst.Country = p.Country
	dst.Description = p.Description
}

func notInFuture(value interface{}) error {
	t, _ := value.(*time.Time)
	if t != nil && t.After(time.Now()) {
		return errors.New("must not be in the future")
	}
	return nil
}
