package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gmail-file-downloader/internal/config"
	"github.com/teemow/gmail-file-downloader/internal/downloader"
	"github.com/teemow/gmail-file-downloader/internal/gmail"
	"github.com/teemow/gmail-file-downloader/internal/google"
	"github.com/teemow/gmail-file-downloader/internal/instrumentation"
	"github.com/teemow/gmail-file-downloader/internal/logging"
	"github.com/teemow/gmail-file-downloader/internal/server"
	"github.com/teemow/gmail-file-downloader/internal/store"
)

const downloadCmdName = "download-attachments"

type downloadFlags struct {
	startingPageToken string
	queries           []string
	downloadDir       string
	user              string
	metricsAddr       string
	gmailEndpoint     string
}

func newDownloadCmd(a *app) *cobra.Command {
	var f downloadFlags

	cmd := &cobra.Command{
		Use:   downloadCmdName,
		Short: "Save the attachments of all matching messages",
		Long: `Page through the mailbox and save every attachment into the download
directory. Attachments whose file already exists are skipped.

Each --query is a Gmail search expression. Several queries are combined, so a
message has to match all of them:

  gmail-file-downloader --query has:attachment --query from:billing@example.com

Debug logging (-v) prints the page token of every page. A run that was
interrupted can be resumed from such a token with --starting-page-token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.resolveConfig(cmd, f.apply(cmd))
			if err != nil {
				return err
			}
			_, err = a.runDownload(cmd.Context(), cfg, f)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.startingPageToken, "starting-page-token", "", "Page token to start listing from (default: first page)")
	flags.StringArrayVar(&f.queries, "query", nil, "Gmail search query; repeat to combine several")
	flags.StringVar(&f.downloadDir, "download-dir", "", "Directory attachments are saved to (default: attachments)")
	flags.StringVar(&f.user, "user", "", "Mailbox to read (default: me, the authorized user)")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")
	flags.StringVar(&f.gmailEndpoint, "gmail-endpoint", "", "Override the Gmail API base URL")
	_ = flags.MarkHidden("gmail-endpoint")

	return cmd
}

// apply returns the config override for the download flags that were set.
func (f *downloadFlags) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("query") {
			cfg.Queries = f.queries
		}
		if flags.Changed("download-dir") {
			cfg.DownloadDir = f.downloadDir
		}
		if flags.Changed("user") {
			cfg.User = f.user
		}
		if flags.Changed("metrics-addr") {
			cfg.MetricsAddr = f.metricsAddr
		}
	}
}

func (a *app) runDownload(ctx context.Context, cfg *config.Config, f downloadFlags) (*downloader.Stats, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if cfg.MetricsAddr != "" {
		instrConfig.Enabled = true
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("error during instrumentation shutdown", "error", err)
		}
	}()
	metrics := provider.Metrics()

	if cfg.MetricsAddr == "" && provider.HasPrometheusExporter() {
		a.logger.Warn("prometheus metrics exporter enabled without --metrics-addr, metrics will not be served",
			"metrics_exporter", instrConfig.MetricsExporter)
	}

	if cfg.MetricsAddr != "" {
		stop, err := a.startMetricsServer(cfg.MetricsAddr, provider)
		if err != nil {
			return nil, err
		}
		defer stop()
	}

	authorizer, err := a.newAuthorizer(cfg, google.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	httpClient, err := authorizer.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}

	clientOpts := []gmail.ClientOption{
		gmail.WithUserID(cfg.User),
		gmail.WithMetrics(metrics),
	}
	if f.gmailEndpoint != "" {
		clientOpts = append(clientOpts, gmail.WithEndpoint(f.gmailEndpoint))
	}
	client, err := gmail.NewClient(ctx, httpClient, clientOpts...)
	if err != nil {
		return nil, err
	}

	d := downloader.New(client, store.NewDirStore(cfg.DownloadDir),
		downloader.WithLogger(logging.WithAccount(a.logger, client.UserID())),
		downloader.WithMetrics(metrics),
	)

	a.logger.Debug("starting download",
		"user", client.UserID(),
		"download_dir", cfg.DownloadDir,
		"queries", cfg.Queries,
		"starting_page_token", f.startingPageToken)

	return d.Run(ctx, downloader.Options{
		Queries:           cfg.Queries,
		StartingPageToken: f.startingPageToken,
	})
}

// startMetricsServer binds addr and serves metrics in the background. The
// returned function shuts the server down.
func (a *app) startMetricsServer(addr string, provider *instrumentation.Provider) (func(), error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Logger:                  a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	if err := metricsServer.Listen(); err != nil {
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	}

	go func() {
		if err := metricsServer.Start(); err != nil {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("error during metrics server shutdown", "error", err)
		}
	}, nil
}
