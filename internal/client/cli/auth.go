package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

// getPassword is an indirection over the terminal prompt, swapped in tests.
var getPassword = GetPassword

func (a *App) mailNote(sent bool, what string) {
	if sent {
		a.println(what, "sent, check your mailbox.")
	} else {
		a.println("The server could not send the mail; try again later.")
	}
}

// Register asks for an email and starts the registration. Registering a
// pending address again just mails a fresh code.
func (a *App) Register(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	resent, sent, err := a.authService.Register(ctx, email)
	if err != nil {
		return err
	}

	if resent {
		a.println("This address is already waiting for confirmation.")
	}
	a.mailNote(sent, "Registration code")
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	sent, err := a.authService.ResendCode(ctx, email)
	if err != nil {
		return err
	}
	a.mailNote(sent, "Registration code")
	return nil
}

// Confirm redeems a registration code and goes straight on to SetPassword.
func (a *App) Confirm(ctx context.Context) error {
	code, err := a.ask("Enter the code from the mail")
	if err != nil {
		return err
	}

	if _, err := a.authService.Confirm(ctx, code); err != nil {
		return err
	}

	a.println("Code accepted.")
	return a.SetPassword(ctx)
}

// SetPassword chooses the first password of the account confirmed in this
// run. The password is asked twice.
func (a *App) SetPassword(ctx context.Context) error {
	password, err := a.readNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.SetPassword(ctx, password); err != nil {
		return err
	}

	a.println("Password set. You can login now.")
	return nil
}

func (a *App) readNewPassword() ([]byte, error) {
	password, err := a.askPassword("New password")
	if err != nil {
		return nil, err
	}
	again, err := a.askPassword("Repeat password")
	if err != nil {
		common.WipeByteArray(password)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if string(password) != string(again) {
		common.WipeByteArray(password)
		return nil, fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// Login prompts for credentials and replaces the current session. It then
// reminds the user of an unfinished profile.
func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.session = s
	a.println("Login successful")

	completed, err := a.api.CheckProfileCompleted(ctx)
	if err == nil && !completed {
		a.println("Your profile is not complete yet, run 'profile'.")
	}
	return nil
}

// Logout forgets the persisted session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.session = nil
	a.println("Logged out")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)
	a.println("Server is up")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	s := a.session
	a.println("Email:  ", s.Email)
	a.println("User:   ", s.UserID)
	a.println("Master: ", s.MasterUserID)
	if s.CompanyID != "" {
		a.println("Company:", s.CompanyID)
	}

	completed, err := a.api.CheckProfileCompleted(ctx)
	if err != nil {
		return err
	}
	a.println("Profile complete:", completed)
	return nil
}
