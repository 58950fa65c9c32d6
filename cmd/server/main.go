package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goversion "github.com/caarlos0/go-version"
	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/drborges/apollo-react-spike/internal/client"
	"github.com/drborges/apollo-react-spike/internal/config"
	"github.com/drborges/apollo-react-spike/internal/graphql"
	"github.com/drborges/apollo-react-spike/internal/server"
	"github.com/drborges/apollo-react-spike/internal/session"
	"github.com/drborges/apollo-react-spike/internal/storage/memory"
)

// set by the linker
var (
	version = ""
	commit  = ""
	date    = ""
	builtBy = ""
)

const sweepInterval = time.Minute

func main() {
	usage := `Userdeck serves the user list backed by a remote GraphQL API.

Configuration comes from the environment (see .env.example). A YAML file
given with --config overrides it.

Usage:
    userdeck [--env=<env_file>] [--config=<config_file>] [--v=<level>]
    userdeck -h | --help
    userdeck --version

Options:
    -h --help               Show this screen.
    --version               Show version.
    --env=<env_file>        Dotenv file to load [default: .env].
    --config=<config_file>  YAML config overlay.
    --v=<level>             Log verbosity [default: 0].
`
	info := buildVersion()
	opts, err := docopt.ParseArgs(usage, os.Args[1:], info.String())
	if err != nil {
		panic(err)
	}

	initLogging(opts)
	defer glog.Flush()

	envFile, _ := opts.String("--env")
	loadLocalEnv(envFile)
	configFile, _ := opts.String("--config")

	cfg, err := config.Load(configFile)
	if err != nil {
		glog.Exitf("load config: %v", err)
	}

	protocol, err := graphql.ParseProtocol(cfg.WSProtocol)
	if err != nil {
		glog.Exitf("load config: %v", err)
	}
	remote := graphql.NewHTTPClient(cfg.GraphQLHTTPURL, cfg.RemoteTimeout)
	var live client.Subscriber
	if cfg.LiveUpdates() {
		settings := graphql.DefaultSubscriptionSettings()
		settings.Protocol = protocol
		live = graphql.NewSubscriptionClient(cfg.GraphQLWSURL, settings)
	}

	tokens := session.NewTokenManager(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL)
	sessions := session.NewManager(tokens, func() *client.Client {
		return client.New(remote, live, memory.NewFieldStore())
	}, cfg.SecureCookies, cfg.MaxSessions)

	srv := server.New(cfg, sessions)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		glog.Infof("userdeck %s listening on %s (live updates: %t)", info.GitVersion, cfg.HTTPAddress(), cfg.LiveUpdates())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx, sweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			glog.Infof("graceful shutdown error: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		glog.Exitf("%v", err)
	}
}

func initLogging(opts docopt.Opts) {
	level, _ := opts.String("--v")
	flag.Set("logtostderr", "true")
	flag.Set("v", level)
	flag.CommandLine.Parse(nil)
}

func loadLocalEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		glog.Infof("no %s file found; relying on existing environment", path)
	}
}

func buildVersion() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("userdeck", "Browse remote users and block them locally.", "https://github.com/drborges/apollo-react-spike"),
		func(i *goversion.Info) {
			if commit != "" {
				i.GitCommit = commit
			}
			if version != "" {
				i.GitVersion = version
			}
			if date != "" {
				i.BuildDate = date
			}
			if builtBy != "" {
				i.BuiltBy = builtBy
			}
		},
	)
}
