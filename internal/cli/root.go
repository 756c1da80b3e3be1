// Package cli implements the certvault command-line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abduss/certvault/internal/gateway"
	"github.com/abduss/certvault/internal/vault"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
	recentLimit    = 5
)

// app holds what every command needs once flags and env are resolved.
type app struct {
	v      *viper.Viper
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	client *gateway.Client
	store  *SessionStore
	loc    *time.Location
	now    func() time.Time
}

// Execute runs the root command and prints errors that were not already
// shown as notices.
func Execute(ctx context.Context) error {
	cmd := NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err != nil && !Reported(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

// NewRootCommand builds the certvault command tree. Settings come from flags,
// then CERTVAULT_* environment variables, then config.yaml in the config dir.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), now: time.Now}

	root := &cobra.Command{
		Use:           "certvault",
		Short:         "Store and manage your certificates",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", defaultServer, "gateway base URL")
	flags.Duration("timeout", defaultTimeout, "per-request timeout")
	flags.String("config-dir", "", "directory holding config.yaml and the session (default: user config dir)")
	flags.String("timezone", "UTC", "time zone used to group certificates by month")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix("CERTVAULT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newRegisterCommand(a),
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newDashboardCommand(a),
		newListCommand(a),
		newUploadCommand(a),
		newEditCommand(a),
		newDeleteCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.in = cmd.InOrStdin()
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	dir := a.v.GetString("config-dir")
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("locate config dir: %w", err)
		}
		dir = filepath.Join(base, "certvault")
	}

	a.v.SetConfigName("config")
	a.v.SetConfigType("yaml")
	a.v.AddConfigPath(dir)
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	store, err := NewSessionStore(dir)
	if err != nil {
		return err
	}
	a.store = store

	loc, err := time.LoadLocation(a.v.GetString("timezone"))
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	a.loc = loc

	timeout := a.v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	a.client = gateway.NewClient(a.v.GetString("server"), timeout)
	return nil
}

// session returns a usable session, refreshing an expired access token once.
func (a *app) session(ctx context.Context) (vault.Session, error) {
	session, err := a.store.Load()
	if err != nil {
		return vault.Session{}, err
	}
	if session.SignedIn(a.now()) {
		return session, nil
	}
	if session.UserID == uuid.Nil || session.RefreshToken == "" {
		return vault.Session{}, ErrNotSignedIn
	}

	refreshed, err := a.client.Refresh(ctx, session)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			_ = a.store.Clear()
			return vault.Session{}, ErrNotSignedIn
		}
		return vault.Session{}, fmt.Errorf("refresh session: %w", err)
	}
	if err := a.store.Save(refreshed); err != nil {
		return vault.Session{}, err
	}
	return refreshed, nil
}

func (a *app) notifier() vault.Notifier {
	return vault.NotifierFunc(func(n vault.Notice) {
		if n.Level == vault.LevelError {
			fmt.Fprintln(a.errOut, n.Message)
			return
		}
		fmt.Fprintln(a.out, n.Message)
	})
}

// fail maps a flow error for the command's return. The flows have already
// notified the user, except when the gateway rejected the session.
func (a *app) fail(err error) error {
	if gateway.IsUnauthorized(err) || errors.Is(err, vault.ErrNotSignedIn) {
		return ErrNotSignedIn
	}
	return reported(err)
}
