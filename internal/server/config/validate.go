package config

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var mailAddress = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks the merged configuration before the server starts.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.EndpointAddrGRPC, validation.Required),
		validation.Field(&c.DatabaseDSN, validation.Required),
		validation.Field(&c.SecretKey, validation.Required, validation.Length(8, 0)),
		validation.Field(&c.AccessTokenValidityDuration, validation.Required, validation.Min(int64(60e9))),
		validation.Field(&c.CodeValidityDuration, validation.Required, validation.Min(int64(60e9))),
		validation.Field(&c.RateLimitPerSecond, validation.Required, validation.Min(0.1)),
		validation.Field(&c.RateLimitBurst, validation.Required, validation.Min(1)),
		validation.Field(&c.NotifierKind, validation.Required, validation.In(NotifierLog, NotifierS3)),
		validation.Field(&c.S3Bucket, requiredFor(c.NotifierKind == NotifierS3)),
		validation.Field(&c.S3Region, requiredFor(c.NotifierKind == NotifierS3)),
		validation.Field(&c.S3BaseEndpoint, is.URL),
		validation.Field(&c.MailFrom, validation.Match(mailAddress)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

// requiredFor is validation.Required applied only when cond holds.
func requiredFor(cond bool) validation.Rule {
	return validation.By(func(value interface{}) error {
		if !cond {
			return nil
		}
		if s, _ := value.(string); s == "" {
			return errors.New("cannot be blank")
		}
		return nil
	})
}
