package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sufield/courier/internal/adapters/secondary/material"
	"github.com/sufield/courier/pkg/courier"
)

const defaultDrainTimeout = 30 * time.Second

// deliveryRecord is one line of listen output.
type deliveryRecord struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Address    string    `json:"address"`
	Content    string    `json:"content"`
	PeerID     string    `json:"peer_id,omitempty"`
}

// jsonLines writes one JSON document per line and is safe for concurrent use.
type jsonLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONLines(w io.Writer) *jsonLines {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &jsonLines{enc: enc}
}

func (j *jsonLines) Write(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(v)
}

func newListenCmd(a *app) *cobra.Command {
	var drainTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run a receiver and print every delivery",
		Long: `Run a receiver and print every delivery as one JSON line on standard output.

The receiver runs until interrupted. On SIGINT or SIGTERM it stops accepting,
waits up to --drain-timeout for in-flight deliveries and exits.`,
		Example: `  courier listen --host 0.0.0.0 --port 7847 --cert server.pem --key server-key.pem --ca ca.pem --verify-client-cert
  courier listen --port 0 --metrics-address 127.0.0.1:9090`,
		Args: usageArgs(cobra.NoArgs),
	}

	flags := cmd.Flags()
	bindings := addTLSFlags(flags, "listen.tls")
	flags.String("host", "", "host to bind (default localhost)")
	flags.Int("port", 0, "port to bind, 0 picks a free port (default 7847)")
	flags.StringSlice("crl", nil, "certificate revocation list, PEM or DER (repeatable)")
	flags.StringSlice("cipher-suites", nil, "TLS 1.0-1.2 cipher suites by name")
	flags.Duration("handshake-timeout", 0, "TLS handshake timeout per connection")
	flags.Bool("request-client-cert", false, "ask senders for a certificate")
	flags.Bool("verify-client-cert", false, "reject senders whose certificate does not verify")
	flags.String("metrics-address", "", "serve Prometheus metrics on this host:port")
	flags.DurationVar(&drainTimeout, "drain-timeout", defaultDrainTimeout, "how long to wait for in-flight deliveries on shutdown")

	bindings["listen.host"] = "host"
	bindings["listen.port"] = "port"
	bindings["listen.crls"] = "crl"
	bindings["listen.cipher_suites"] = "cipher-suites"
	bindings["listen.handshake_timeout"] = "handshake-timeout"
	bindings["listen.request_client_cert"] = "request-client-cert"
	bindings["listen.verify_client_cert"] = "verify-client-cert"
	bindings["metrics.address"] = "metrics-address"

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := a.setup(cmd, bindings); err != nil {
			return err
		}

		serverMaterial, err := a.cfg.Listen.ServerMaterial(material.NewLoader(a.logger))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := newJSONLines(cmd.OutOrStdout())
		handler := courier.HandlerFunc(func(_ context.Context, d courier.Delivery) {
			err := out.Write(deliveryRecord{
				ID:         d.ID,
				ReceivedAt: time.Now().UTC(),
				Address:    d.Address,
				Content:    d.Content,
				PeerID:     d.PeerID,
			})
			if err != nil {
				a.logger.Error("failed to write delivery", "delivery_id", d.ID, "error", err)
			}
		})

		opts := []courier.Option{courier.WithLogger(a.logger)}
		if a.cfg.Metrics.Address != "" {
			opts = append(opts, courier.WithPrometheusMetrics())
		}
		receiver := courier.NewReceiver(handler, opts...)

		failed := make(chan error, 1)
		endpoint, err := receiver.Listen(ctx, courier.ListenRequest{
			Host:     a.cfg.Listen.Host,
			Port:     a.cfg.Listen.Port,
			Material: serverMaterial,
			OnError: func(err error) {
				failed <- err
			},
		})
		if err != nil {
			if errors.Is(err, courier.ErrInvalidMaterial) {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "listening on https://%s/\n", endpoint)

		g, gctx := errgroup.WithContext(ctx)
		if addr := a.cfg.Metrics.Address; addr != "" {
			serveMetrics(gctx, g, addr)
			a.logger.Info("serving metrics", "address", addr)
		}

		g.Go(func() error {
			var serveErr error
			select {
			case <-gctx.Done():
			case serveErr = <-failed:
			}

			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			if err := receiver.Close(drainCtx); err != nil && !errors.Is(err, courier.ErrNotListening) {
				a.logger.Warn("receiver did not drain in time", "error", err)
			}

			if serveErr != nil {
				return fmt.Errorf("%w: receiver stopped: %w", ErrRuntime, serveErr)
			}
			return nil
		})

		return g.Wait()
	}
	return cmd
}

// serveMetrics runs a Prometheus endpoint on addr until ctx ends.
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: metrics server: %w", ErrRuntime, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
