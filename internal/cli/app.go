package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notionclone/client/internal/api"
	"notionclone/client/internal/config"
	"notionclone/client/internal/logging"
	"notionclone/client/internal/session"
)

const msgExpired = "Your session has expired. Run `notion login` to sign in again."

// App holds what the commands share for one invocation: configuration, the
// session and the API client built on it.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	session *session.Session
	client  *api.Client
	closers []func() error

	in     io.Reader
	reader *bufio.Reader
}

func (a *App) init(cmd *cobra.Command, flags *globalFlags) error {
	if a.client != nil {
		return nil
	}
	cfg := config.Load()
	flags.override(cmd, &cfg)

	if err := logging.Set(cfg.Verbose); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.Get()

	store, err := a.openStore(cfg)
	if err != nil {
		return err
	}
	a.session = session.New(store, a.logger.Named("session"))
	if err := a.session.Restore(cmd.Context()); err != nil {
		a.logger.Warn("stored login could not be read", zap.Error(err))
	}

	errOut := cmd.ErrOrStderr()
	opts := []api.Option{
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(a.logger.Named("api")),
		api.WithSessionExpired(func(string) {
			_, _ = fmt.Fprintln(errOut, msgExpired)
		}),
	}
	if cfg.DebugHTTP {
		opts = append(opts, api.WithDebugOutput(errOut))
	}
	a.client, err = api.New(cfg.APIURL, a.session, opts...)
	if err != nil {
		return err
	}
	a.logger.Debug("client ready",
		zap.String("api", cfg.APIURL),
		zap.String("profile", cfg.Profile),
		zap.String("tokenStore", cfg.TokenStore),
		zap.Bool("authenticated", a.session.Authenticated()))
	return nil
}

func (f *globalFlags) override(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("api-url") {
		cfg.APIURL = f.apiURL
	}
	if fl.Changed("profile") {
		cfg.Profile = f.profile
	}
	if fl.Changed("token-store") {
		cfg.TokenStore = f.tokenStore
	}
	if fl.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if fl.Changed("debug-http") {
		cfg.DebugHTTP = f.debugHTTP
	}
}

func (a *App) openStore(cfg config.Config) (session.TokenStore, error) {
	switch strings.ToLower(cfg.TokenStore) {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		store, err := session.NewRedisStore(cfg.RedisURL, cfg.Profile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "file", "":
		return session.NewFileStore(profileFile(cfg.TokenFile, cfg.Profile), cfg.TokenPassphrase), nil
	default:
		return nil, fmt.Errorf("unknown token store %q (want file, redis or memory)", cfg.TokenStore)
	}
}

// profileFile keeps the default profile at path and puts others next to it.
func profileFile(path, profile string) string {
	if profile == "" || profile == "default" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + profile + ext
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) input() *bufio.Reader {
	if a.reader == nil {
		in := a.in
		if in == nil {
			in = os.Stdin
		}
		a.reader = bufio.NewReader(in)
	}
	return a.reader
}
