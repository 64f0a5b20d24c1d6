package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/varlet-dev/varlet/internal/logging"
	"github.com/varlet-dev/varlet/internal/server"
	"github.com/varlet-dev/varlet/internal/watcher"
)

var (
	servePort     int
	serveHostname string
	serveSettings string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the headless varlet server",
	Long: `Start varlet as a headless server that exposes an HTTP API and an
SSE event stream. Editor plugins connect to it for validation,
rendering, and configuration management.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 7130, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "127.0.0.1", "Hostname to listen on")
	serveCmd.Flags().StringVar(&serveSettings, "settings-root", "", "Central settings tree to watch and auto-import")
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Bus().Close()

	settingsRoot := serveSettings
	if settingsRoot == "" {
		settingsRoot = settings.SettingsRoot
	}

	var w *watcher.Watcher
	if settingsRoot != "" {
		w, err = watcher.New(settingsRoot, eng)
		if err != nil {
			return fmt.Errorf("failed to watch settings root: %w", err)
		}
		if w != nil {
			if _, err := eng.ImportDiscovered(cmd.Context(), settingsRoot); err != nil {
				logging.Warn().Err(err).Str("root", settingsRoot).Msg("initial settings import failed")
			}
			w.Start()
			defer w.Stop()
		}
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = servePort
	serverConfig.Hostname = serveHostname
	if settings.Server != nil {
		if !cmd.Flags().Changed("port") && settings.Server.Port != 0 {
			serverConfig.Port = settings.Server.Port
		}
		if !cmd.Flags().Changed("hostname") && settings.Server.Hostname != "" {
			serverConfig.Hostname = settings.Server.Hostname
		}
	}
	srv := server.New(serverConfig, eng)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", fmt.Sprintf("http://%s:%d", serverConfig.Hostname, serverConfig.Port)).Msg("server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}
