package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if a.session.Valid() {
		s = a.session.Email + " "
	}
	if m := a.getMode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// commands lists everything the REPL understands, in help order.
func (a *App) commands() []command {
	return []command{
		{name: "register", help: "start a registration", run: a.Register},
		{name: "resend", help: "resend the registration code", run: a.Resend},
		{name: "confirm", help: "redeem a registration code and choose a password", run: a.Confirm},
		{name: "setpassword", help: "choose the password of a confirmed account", run: a.SetPassword},
		{name: "login", help: "log in", run: a.Login},
		{name: "recover", help: "request a recovery code", run: a.Recover},
		{name: "reset", help: "set a new password with a recovery code", run: a.Reset},
		{name: "ping", help: "check the server", run: a.Ping},

		{name: "whoami", help: "show the current session", auth: true, run: a.WhoAmI},
		{name: "profile", help: "complete your profile", auth: true, run: a.CompleteProfile},
		{name: "company", help: "create a company", auth: true, run: a.CreateCompany},
		{name: "assign", help: "assign a user to a company", auth: true, run: a.Assign},
		{name: "members", aliases: []string{"l"}, help: "list members of your companies", auth: true, run: a.Members},
		{name: "addmember", help: "create a company member", auth: true, run: a.AddMember},
		{name: "editmember", help: "edit a member profile", auth: true, run: a.EditMember},
		{name: "deactivate", help: "deactivate a member", auth: true, run: a.Deactivate},
		{name: "level", help: "show an access level", auth: true, run: a.Level},
		{name: "logout", help: "log out", auth: true, run: a.Logout},
	}
}

func (a *App) Root(ctx context.Context) {

	a.println("Welcome to accountkeeper CLI (type 'help' for commands)")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a.commands(), a.isLoggedIn, a.getStatus, a.reader, a.out)
}
