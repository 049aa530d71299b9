package main

// Dev stack launcher: brings up the model server when it is not already
// running, pulls the default model in the background, then serves the API.
//   go run ./cmd/bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"autofill-backend/internal/bootstrap"
	"autofill-backend/internal/llm/ollama"
	"autofill-backend/internal/shared/config"
	"autofill-backend/internal/shared/process"
	"autofill-backend/internal/shared/server"
	"autofill-backend/internal/shared/storage/db"
	"autofill-backend/internal/shared/telemetry"
)

const ollamaInstallURL = "https://ollama.com/download"

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.Env)
	defer telemetry.Sync()

	fmt.Println("==========================================")
	fmt.Println("  AI Autofill Assistant — dev bootstrap")
	fmt.Println("==========================================")

	app, err := bootstrap.Build(cfg)
	if err != nil {
		fail("bootstrap: %v", err)
	}

	if app.DB != nil {
		fmt.Println("• running database migrations")
		if err := db.RunMigrations(context.Background(), app.DB, cfg.DatabaseURL); err != nil {
			fail("migrations: %v", err)
		}
		defer app.DB.Close()
	} else {
		fmt.Println("• no database configured, using in-memory repositories")
	}
	if cfg.AdminAPIKey == "" {
		fmt.Println("• ADMIN_API_KEY not set, the /admin surface stays disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervised := ensureOllama(ctx, cfg, app.Ollama)
	if supervised != nil {
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := supervised.Stop(stopCtx); err != nil {
				fmt.Printf("• model server did not stop cleanly: %v\n", err)
			}
		}()
	}

	addr := server.Addr(cfg.Port)
	srv := &http.Server{Addr: addr, Handler: app.Router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("• API listening on %s (Ctrl+C to stop)\n", addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("server: %v", err)
		}
	case <-ctx.Done():
		fmt.Println("• shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("• shutdown incomplete: %v\n", err)
		}
	}
}

// ensureOllama checks for a local model server and starts one under the
// supervisor when the binary exists but nothing answers. The returned
// process is nil when the server was already running or cannot be started;
// the API degrades to canned chat replies either way.
func ensureOllama(ctx context.Context, cfg config.Config, client *ollama.Client) *process.Managed {
	binPath, err := process.BinaryPath("ollama")
	if err != nil {
		fmt.Println("• ollama binary not found; chat falls back to canned replies")
		fmt.Printf("  install it from %s to enable AI answers\n", ollamaInstallURL)
		return nil
	}

	versionCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	version, err := exec.CommandContext(versionCtx, binPath, "--version").Output()
	if err != nil {
		fmt.Printf("• ollama --version failed: %v\n", err)
	} else {
		fmt.Printf("• found %s\n", strings.TrimSpace(string(version)))
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, 2*time.Second)
	defer cancelProbe()
	if client.Available(probeCtx) {
		fmt.Printf("• model server already running at %s\n", client.BaseURL())
		pullDefaultModel(ctx, client)
		return nil
	}

	fmt.Println("• starting ollama serve")
	managed, err := process.Start(ctx, process.Config{
		Name:         "ollama",
		Command:      binPath,
		Args:         []string{"serve"},
		ReadyURL:     client.BaseURL() + "/api/tags",
		ReadyTimeout: 30 * time.Second,
		StopTimeout:  10 * time.Second,
	})
	if err != nil {
		fmt.Printf("• could not start model server: %v\n", err)
		fmt.Println("  continuing without AI answers")
		return nil
	}

	pullDefaultModel(ctx, client)
	return managed
}

// pullDefaultModel downloads the generation model in the background so the
// first chat does not stall on a cold cache.
func pullDefaultModel(ctx context.Context, client *ollama.Client) {
	model := client.Model()
	fmt.Printf("• pulling model %s in the background\n", model)
	go func() {
		pullCtx, cancel := context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
		if err := client.Pull(pullCtx, model); err != nil {
			fmt.Printf("• model pull failed: %v — continuing without %s\n", err, model)
			return
		}
		fmt.Printf("• model %s ready\n", model)
	}()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
