package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

// recoverNotify is the recovery mode mailing a "password changed" notice.
const recoverNotify = 2

// Recover requests a recovery code. Mode 1 re-sends a code already issued,
// mode 2 mails a "password changed" notice.
func (a *App) Recover(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	answer, err := a.askDefault("Mode: 0 forgot password, 1 resend code, 2 password changed notice", "0")
	if err != nil {
		return err
	}
	mode, err := strconv.Atoi(answer)
	if err != nil || mode < 0 || mode > recoverNotify {
		return fmt.Errorf("mode must be 0, 1 or 2")
	}

	sent, err := a.api.StartRecovery(ctx, email, mode)
	if err != nil {
		return err
	}

	if mode == recoverNotify {
		a.mailNote(sent, "Notice")
	} else {
		a.mailNote(sent, "Recovery code")
	}
	return nil
}

// Reset sets a new password using a recovery code.
func (a *App) Reset(ctx context.Context) error {
	code, err := a.ask("Enter the recovery code")
	if err != nil {
		return err
	}

	password, err := a.readNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sent, err := a.api.CompleteRecovery(ctx, code, string(password))
	if err != nil {
		return err
	}

	a.println("Password changed. You can login now.")
	if !sent {
		a.println("The confirmation mail could not be sent.")
	}
	return nil
}
