package grpc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// fields reads typed values out of a request struct. Missing keys read as
// zero values.
type fields struct {
	m map[string]*structpb.Value
}

func newFields(s *structpb.Struct) fields {
	return fields{m: s.GetFields()}
}

func (f fields) str(key string) string {
	return strings.TrimSpace(f.m[key].GetStringValue())
}

// raw returns a string field untrimmed; passwords keep their spaces.
func (f fields) raw(key string) string {
	return f.m[key].GetStringValue()
}

func (f fields) has(key string) bool {
	_, ok := f.m[key]
	return ok
}

func (f fields) integer(key string) (int, error) {
	v, ok := f.m[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, common.Validation(key + " must be an integer")
	}
	return int(n.NumberValue), nil
}

func (f fields) date(key string) (*time.Time, error) {
	s := f.str(key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(pb.DateLayout, s)
	if err != nil {
		return nil, common.Validation(key + " must be formatted as YYYY-MM-DD")
	}
	return &t, nil
}

// accessLevel accepts a level name ("Editor") or its number (2).
func (f fields) accessLevel(key string) (models.AccessLevel, error) {
	v, ok := f.m[key]
	if !ok {
		return models.AccessNone, common.Validation(key + " is required")
	}
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		level, err := models.ParseAccessLevel(s.StringValue)
		if err != nil {
			return models.AccessNone, common.Validation(err.Error())
		}
		return level, nil
	}
	n, err := f.integer(key)
	if err != nil {
		return models.AccessNone, err
	}
	level := models.AccessLevel(n)
	if !level.Valid() {
		return models.AccessNone, common.Validation(fmt.Sprintf("unknown access level %d", n))
	}
	return level, nil
}

func (f fields) profile() (services.ProfileInput, error) {
	birth, err := f.date("birth_date")
	if err != nil {
		return services.ProfileInput{}, err
	}
	return services.ProfileInput{
		FirstName:   f.str("first_name"),
		LastName:    f.str("last_name"),
		Phone:       f.str("phone"),
		BirthDate:   birth,
		NationalID:  f.str("national_id"),
		Country:     f.str("country"),
		Description: f.raw("description"),
	}, nil
}

func profileValue(p *models.Profile) map[string]any {
	out := map[string]any{
		"user_id":     p.UserID,
		"email":       p.Email,
		"first_name":  p.FirstName,
		"last_name":   p.LastName,
		"phone":       p.Phone,
		"national_id": p.NationalID,
		"country":     p.Country,
		"description": p.Description,
	}
	if p.BirthDate != nil {
		out["birth_date"] = p.BirthDate.Format(pb.DateLayout)
	}
	return out
}

func reply(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	return s, nil
}
