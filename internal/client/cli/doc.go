// Package cli provides the interactive accountkeeper command-line client.
//
// It wires configuration, the local session store, the account server API
// and a read-eval-print loop. Typical flow: register, confirm the mailed
// code and choose a password, log in, complete the profile, then manage
// companies and their members.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher and runREPL for details.
package cli
