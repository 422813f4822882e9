package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/client/client"
)

type command struct {
	name    string
	aliases []string
	help    string
	// auth commands need a logged-in session
	auth bool
	run  func(ctx context.Context) error
}

func (c command) matches(name string) bool {
	if c.name == name {
		return true
	}
	for _, al := range c.aliases {
		if al == name {
			return true
		}
	}
	return false
}

// runREPL reads a command per line from reader and dispatches it until EOF
// or "exit"/"quit". Errors returned by commands are printed and the loop
// goes on.
//
// The prompt shows statusFn(). "help" lists the commands usable in the
// current state, which loggedIn decides.
func runREPL(ctx context.Context, cmds []command, loggedIn func() bool, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "ak %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name := parts[0]

		switch name {
		case "help":
			printHelp(out, cmds, loggedIn())
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		}

		cmd, ok := findCommand(cmds, name)
		switch {
		case !ok:
			fmt.Fprintln(out, "Unknown command:", name)
		case cmd.auth && !loggedIn():
			fmt.Fprintln(out, "Please login first")
		default:
			if err := cmd.run(ctx); err != nil {
				fmt.Fprintln(out, "Error:", describe(err))
			}
		}
	}
}

func findCommand(cmds []command, name string) (command, bool) {
	for _, c := range cmds {
		if c.matches(name) {
			return c, true
		}
	}
	return command{}, false
}

func printHelp(out io.Writer, cmds []command, loggedIn bool) {
	fmt.Fprintln(out, "Available commands:")
	for _, c := range cmds {
		if c.auth && !loggedIn {
			continue
		}
		fmt.Fprintf(out, "  %-12s %s\n", c.name, c.help)
	}
	fmt.Fprintf(out, "  %-12s %s\n", "exit", "leave the program")
}

// describe turns client errors into a hint for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.Is(err, client.ErrThrottled):
		return "too many requests, slow down"
	case errors.Is(err, client.ErrUnauthorized):
		return err.Error() + " (try 'login')"
	}
	return err.Error()
}
