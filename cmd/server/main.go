package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jrsteele09/gmail-connect/connections"
	"github.com/jrsteele09/gmail-connect/credentials"
	"github.com/jrsteele09/gmail-connect/identity"
	"github.com/jrsteele09/gmail-connect/ingest"
	"github.com/jrsteele09/gmail-connect/internal/config"
	"github.com/jrsteele09/gmail-connect/internal/logging"
	"github.com/jrsteele09/gmail-connect/internal/store"
	"github.com/jrsteele09/gmail-connect/server"
	"github.com/jrsteele09/gmail-connect/sessions"
	"github.com/jrsteele09/gmail-connect/token"
	"github.com/rs/zerolog/log"
)

const janitorInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, c.GetDatabaseDriver(), c.GetDatabaseURL())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}()

	sessionRepo := sessions.NewInMemoryRepo()
	revoked := token.NewInMemoryRevokedTokenCache()
	issuer, err := token.NewIssuer(c.GetSessionSecret(), c.GetBaseURL(), c.GetAccessTokenTTL(), revoked)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	provider, err := identity.Discover(ctx, c.GetIssuer(), identity.SettingsFromConfig(c), sessionRepo, issuer)
	if err != nil {
		return err
	}

	connectionRepo := connections.NewSQLRepo(db.DB, db.Dialect)
	ingestClient := ingest.NewClient(c.GetBackendBaseURL(), c.GetIngestTimeout())
	if !ingestClient.Enabled() {
		log.Warn().Msg("BACKEND_BASE_URL not set, watch notifications disabled")
	}
	notifier := ingest.NewNotifier(ingestClient, c.GetIngestTimeout())

	handler, err := server.New(c, server.Services{
		Identity:    provider,
		Connections: connectionRepo,
		Persister:   credentials.NewPersister(connectionRepo, c.GetProviderTokenValidity(), c.GetProviderTokenSkew()),
		Notifier:    notifier,
		Tokens:      issuer,
		Health:      db,
	})
	if err != nil {
		return err
	}

	go janitor(ctx, sessionRepo, revoked)

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case <-ctx.Done():
	case returnError = <-serveErr:
	}

	if err := shutdown(httpServer); err != nil && returnError == nil {
		returnError = err
	}
	// In-flight watch notifications finish before the database goes away.
	notifier.Close()
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// janitor drops expired sessions and revocation entries.
func janitor(ctx context.Context, sessionRepo sessions.Repo, revoked token.RevokedTokenCache) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := sessionRepo.DeleteExpired(now)
			if err != nil {
				log.Warn().Err(err).Msg("failed to delete expired sessions")
			} else if n > 0 {
				log.Debug().Int("count", n).Msg("deleted expired sessions")
			}
			if n := revoked.Cleanup(now); n > 0 {
				log.Debug().Int("count", n).Msg("forgot expired revocations")
			}
		}
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
