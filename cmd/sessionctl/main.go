// sessionctl exercises the full login flow against a live authorization
// server from the terminal: password-grant exchange, profile resolution,
// store population, and the navigation decision (rendered as log lines).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/adminsuite/go-session-client/authflow"
	"github.com/adminsuite/go-session-client/internal/config"
	"github.com/adminsuite/go-session-client/session"
	"github.com/adminsuite/go-session-client/session/memstore"
	"github.com/adminsuite/go-session-client/transport"
	"github.com/adminsuite/go-session-client/userinfo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	username := flag.String("username", "", "login username")
	password := flag.String("password", "", "login password")
	logout := flag.Bool("logout", false, "log out after a successful login")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	displayAppname("sessionctl")

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "[run] config.Load")
	}

	ctx := context.Background()

	accessStore := memstore.NewAccessStore()
	userStore := memstore.NewUserStore()

	client, err := newTransport(ctx, cfg, accessStore, log)
	if err != nil {
		return errors.Wrap(err, "[run] build transport")
	}

	resolver, err := userinfo.New(client, accessStore, userinfo.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "[run] build resolver")
	}

	nav := &logNavigator{log: log, path: cfg.LoginPath}
	manager, err := authflow.NewManager(
		authflow.Stores{Access: accessStore, User: userStore},
		client,
		resolver,
		nav,
		&logNotifier{log: log},
		authflow.WithLogger(log),
		authflow.WithHomePath(cfg.DefaultHomePath),
		authflow.WithLoginPath(cfg.LoginPath),
		authflow.WithFallbackDelay(cfg.FallbackDelay),
	)
	if err != nil {
		return errors.Wrap(err, "[run] build manager")
	}

	profile := manager.Login(ctx, transport.Credentials{Username: *username, Password: *password}, nil)
	if profile == nil {
		return errors.New("[run] login failed")
	}
	printProfile(profile)

	if *logout {
		// Give the navigation fallback guard time to settle before tearing
		// the session down.
		time.Sleep(cfg.FallbackDelay)
		manager.Logout(ctx, true)
	}
	return nil
}

func newTransport(ctx context.Context, cfg *config.Config, store session.AccessStore, log zerolog.Logger) (*transport.Client, error) {
	options := []transport.Option{
		transport.WithClientCredentials(cfg.ClientID, cfg.ClientSecret, cfg.Scope),
		transport.WithLogger(log),
	}
	if cfg.Issuer != "" {
		return transport.NewFromIssuer(ctx, cfg.Issuer, store, options...)
	}
	endpoints := transport.Endpoints{
		TokenURL:       cfg.TokenURL,
		RevokeURL:      cfg.RevokeURL,
		UserInfoURL:    cfg.UserInfoURL,
		AccessCodesURL: cfg.AccessCodesURL,
	}
	return transport.New(endpoints, store, options...)
}

func printProfile(profile *session.UserProfile) {
	encoded, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", profile)
		return
	}
	fmt.Println(string(encoded))
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// logNavigator renders navigation as log lines while tracking a virtual
// location, standing in for the host application's router.
type logNavigator struct {
	log   zerolog.Logger
	path  string
	query string
}

func (n *logNavigator) Replace(path string, query url.Values) error {
	n.path = path
	n.query = query.Encode()
	n.log.Info().Str("path", path).Str("query", n.query).Msg("navigate (replace)")
	return nil
}

func (n *logNavigator) ForceAssign(path string) {
	n.path = path
	n.query = ""
	n.log.Info().Str("path", path).Msg("navigate (forced)")
}

func (n *logNavigator) CurrentPath() string {
	return n.path
}

func (n *logNavigator) CurrentFullPath() string {
	if n.query == "" {
		return n.path
	}
	return n.path + "?" + n.query
}

// logNotifier renders the notification channel as log lines.
type logNotifier struct {
	log zerolog.Logger
}

func (n *logNotifier) Success(message, description string) {
	n.log.Info().Str("description", description).Msg(message)
}

func (n *logNotifier) Warning(message, description string) {
	n.log.Warn().Str("description", description).Msg(message)
}

func (n *logNotifier) Error(message, description string) {
	n.log.Error().Str("description", description).Msg(message)
}
