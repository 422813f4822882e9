package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
)

// readProfile prompts for every editable profile field. Answers default to
// the values in cur.
func (a *App) readProfile(cur models.Profile) (models.Profile, error) {
	p := cur
	prompts := []struct {
		label string
		dst   *string
	}{
		{"First name", &p.FirstName},
		{"Last name", &p.LastName},
		{"Phone", &p.Phone},
		{"Birth date (YYYY-MM-DD)", &p.BirthDate},
		{"National ID", &p.NationalID},
		{"Country", &p.Country},
	}
	for _, q := range prompts {
		v, err := a.askDefault(q.label, *q.dst)
		if err != nil {
			return models.Profile{}, err
		}
		*q.dst = v
	}

	if p.BirthDate != "" {
		if _, err := time.Parse(pb.DateLayout, p.BirthDate); err != nil {
			return models.Profile{}, fmt.Errorf("birth date must look like 1990-01-31")
		}
	}

	desc, err := GetMultiline(a.reader, "Description", a.out)
	if err != nil {
		return models.Profile{}, err
	}
	if desc != "" {
		p.Description = desc
	}
	return p, nil
}

// CompleteProfile fills in the caller's profile; the first completion sets
// up the default roles on the server and mails a welcome note.
func (a *App) CompleteProfile(ctx context.Context) error {
	p, err := a.readProfile(models.Profile{})
	if err != nil {
		return err
	}

	sent, err := a.api.CompleteProfile(ctx, p)
	if err != nil {
		return err
	}

	a.println("Profile saved.")
	if !sent {
		a.println("The welcome mail could not be sent.")
	}
	return nil
}
