package client

import (
	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
	"google.golang.org/protobuf/types/known/structpb"
)

// values reads reply fields; missing keys read as zero values.
type values struct {
	m map[string]*structpb.Value
}

func (v values) str(key string) string {
	return v.m[key].GetStringValue()
}

func (v values) boolean(key string) bool {
	return v.m[key].GetBoolValue()
}

func (v values) list(key string) []values {
	items := v.m[key].GetListValue().GetValues()
	out := make([]values, 0, len(items))
	for _, it := range items {
		out = append(out, values{m: it.GetStructValue().GetFields()})
	}
	return out
}

func (v values) profile() models.Profile {
	return models.Profile{
		UserID:      v.str("user_id"),
		Email:       v.str("email"),
		FirstName:   v.str("first_name"),
		LastName:    v.str("last_name"),
		Phone:       v.str("phone"),
		BirthDate:   v.str("birth_date"),
		NationalID:  v.str("national_id"),
		Country:     v.str("country"),
		Description: v.str("description"),
	}
}

// profileFields adds the editable profile fields of p to req, which may be
// nil.
func profileFields(p models.Profile, req map[string]any) map[string]any {
	if req == nil {
		req = map[string]any{}
	}
	req["first_name"] = p.FirstName
	req["last_name"] = p.LastName
	req["phone"] = p.Phone
	req["birth_date"] = p.BirthDate
	req["national_id"] = p.NationalID
	req["country"] = p.Country
	req["description"] = p.Description
	return req
}
