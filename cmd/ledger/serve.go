package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Veraticus/spice-ledger/internal/api"
	"github.com/Veraticus/spice-ledger/internal/certs"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var (
		addr    string
		useTLS  bool
		certDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Serve every ledger operation as JSON under /api/v1. Responses use the
same data/meta/errors envelope as --output json.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				srv := &http.Server{
					Addr:              addr,
					Handler:           api.NewServer(store, slog.Default()).Routes(),
					ReadHeaderTimeout: 10 * time.Second,
				}

				if useTLS {
					if certDir == "" {
						certDir = filepath.Join(filepath.Dir(store.Path()), "certs")
					}
					cert, err := certs.NewStore(certDir).Load()
					if err != nil {
						return fmt.Errorf("failed to load TLS certificate: %w", err)
					}
					srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
				}

				errCh := make(chan error, 1)
				go func() {
					slog.Info("ledger server listening", "addr", addr, "tls", useTLS, "db", store.Path())
					if useTLS {
						errCh <- srv.ListenAndServeTLS("", "")
						return
					}
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return fmt.Errorf("server failed: %w", err)
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				slog.Info("shutting down ledger server")
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("failed to shut down server: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().BoolVar(&useTLS, "tls", false, "Serve HTTPS with a self-signed localhost certificate")
	cmd.Flags().StringVar(&certDir, "cert-dir", "", "Certificate directory (default: certs beside the database)")
	return cmd
}
