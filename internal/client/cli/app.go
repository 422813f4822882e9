package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/client/client"
	"github.com/dmitrijs2005/accountkeeper/internal/client/config"
	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
	"github.com/dmitrijs2005/accountkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/accountkeeper/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	db          *sql.DB
	authService services.AuthService
	api         client.Client
	session     *models.Session
	reader      *bufio.Reader
	out         io.Writer

	modeMu sync.Mutex
	mode   Mode
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("error initializing session store: %w", err)
	}

	apiClient, err := client.NewAccountClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	as := services.NewAuthService(apiClient, db)

	return &App{
		config:      c,
		db:          db,
		authService: as,
		api:         apiClient,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) getMode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		_ = a.authService.Close(ctx)
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	s, err := a.authService.Restore(ctx)
	switch {
	case err == nil:
		a.session = s
		a.println("Restored session of", s.Email)
	case !errors.Is(err, session.ErrNoSession):
		log.Printf("session restore failed: %s", err.Error())
	}

	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session.Valid()
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// mode shown in the prompt until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

// askDefault is ask with a value used when the answer is empty.
func (a *App) askDefault(prompt, def string) (string, error) {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, def)
	}
	v, err := a.ask(prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

func (a *App) askPassword(prompt string) ([]byte, error) {
	return getPassword(prompt, a.out)
}

// confirm asks a yes/no question; anything but "y" or "yes" is no.
func (a *App) confirm(prompt string) (bool, error) {
	v, err := a.ask(prompt + " (y/N)")
	if err != nil {
		return false, err
	}
	return v == "y" || v == "Y" || v == "yes", nil
}
