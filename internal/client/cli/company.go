package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

// companyDefault is the company picked at login, if any.
func (a *App) companyDefault() string {
	if a.session == nil {
		return ""
	}
	return a.session.CompanyID
}

func (a *App) CreateCompany(ctx context.Context) error {
	name, err := a.ask("Company name")
	if err != nil {
		return err
	}

	c, err := a.api.CreateCompany(ctx, name)
	if err != nil {
		return err
	}

	a.println("Company created:", c.ID)
	return nil
}

// Assign grants an existing user a role in a company the caller administers.
func (a *App) Assign(ctx context.Context) error {
	companyID, err := a.askDefault("Company ID", a.companyDefault())
	if err != nil {
		return err
	}
	userID, err := a.ask("User ID")
	if err != nil {
		return err
	}
	level, err := a.askDefault("Access level (Admin, Creator, Editor, Reader, No Access)", "Reader")
	if err != nil {
		return err
	}

	if err := a.api.AssignUserToCompany(ctx, companyID, userID, level); err != nil {
		return err
	}
	a.println("User assigned")
	return nil
}

// Members lists the members of the caller's companies; an empty company ID
// lists all of them.
func (a *App) Members(ctx context.Context) error {
	companyID, err := a.ask("Company ID (empty for all)")
	if err != nil {
		return err
	}

	list, err := a.api.ListCompanyMembers(ctx, companyID)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		a.println("No members")
		return nil
	}
	printMembers(a, list)
	return nil
}

func printMembers(a *App, list []models.Profile) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER ID\tEMAIL\tNAME\tPHONE\tCOUNTRY")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.UserID, p.Email, p.FullName(), p.Phone, p.Country)
	}
	_ = w.Flush()
}

// AddMember creates a member inside a company. Without a password the
// member gets an invitation code by mail.
func (a *App) AddMember(ctx context.Context) error {
	companyID, err := a.askDefault("Company ID", a.companyDefault())
	if err != nil {
		return err
	}
	email, err := a.ask("Member email")
	if err != nil {
		return err
	}
	level, err := a.askDefault("Access level", "Reader")
	if err != nil {
		return err
	}

	m := models.NewMember{CompanyID: companyID, Email: email, AccessLevel: level}

	withPassword, err := a.confirm("Set a password now?")
	if err != nil {
		return err
	}
	if withPassword {
		password, err := a.readNewPassword()
		if err != nil {
			return err
		}
		m.Password = string(password)
		common.WipeByteArray(password)
	}

	if m.Profile, err = a.readProfile(models.Profile{}); err != nil {
		return err
	}

	res, err := a.api.CreateCompanyMember(ctx, m)
	if err != nil {
		return err
	}

	a.println("Member created:", res.UserID)
	if !res.Active {
		a.mailNote(res.NotificationSent, "Invitation")
	}
	return nil
}

// EditMember rewrites a member profile. Fields left empty keep the values
// listed by 'members'.
func (a *App) EditMember(ctx context.Context) error {
	userID, err := a.ask("User ID")
	if err != nil {
		return err
	}

	cur := a.findMember(ctx, userID)

	email, err := a.askDefault("Email", cur.Email)
	if err != nil {
		return err
	}
	p, err := a.readProfile(cur)
	if err != nil {
		return err
	}

	if email == cur.Email {
		email = ""
	}
	if err := a.api.UpdateMemberProfile(ctx, userID, email, p); err != nil {
		return err
	}
	a.println("Profile updated")
	return nil
}

// findMember looks userID up among the caller's members. Unknown members,
// or callers who are not a master, get an empty profile.
func (a *App) findMember(ctx context.Context, userID string) models.Profile {
	list, err := a.api.ListCompanyMembers(ctx, "")
	if err != nil {
		return models.Profile{UserID: userID}
	}
	for _, p := range list {
		if p.UserID == userID {
			return p
		}
	}
	return models.Profile{UserID: userID}
}

func (a *App) Deactivate(ctx context.Context) error {
	userID, err := a.ask("User ID")
	if err != nil {
		return err
	}
	ok, err := a.confirm("Deactivate " + userID + "?")
	if err != nil || !ok {
		return err
	}

	if err := a.api.DeactivateMember(ctx, userID); err != nil {
		return err
	}
	a.println("Member deactivated")
	return nil
}

// Level shows the role of a user, or of the caller, in a company.
func (a *App) Level(ctx context.Context) error {
	companyID, err := a.askDefault("Company ID", a.companyDefault())
	if err != nil {
		return err
	}
	userID, err := a.ask("User ID (empty for yourself)")
	if err != nil {
		return err
	}

	level, err := a.api.GetAccessLevel(ctx, companyID, userID)
	if err != nil {
		return err
	}
	a.println("Access level:", level)
	return nil
}
