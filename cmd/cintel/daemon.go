package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/cache"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/daemon"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/dashboard"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/sealer"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the site daemon (foreground)",
	Long: `Run the long-lived site daemon.

The daemon is a site's single writer. It:
  - watches the ingest directory for dropped .json/.yaml intel files,
    seals and submits them, and archives processed files
  - rebuilds the read view on an interval and mirrors it into the local
    SQLite cache for offline listing
  - serves the dashboard: WebSocket event stream, record and stats APIs,
    and the remote submit endpoint other clients reach with
    'cintel submit --remote'
  - optionally republishes record events to NATS

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.cfg
		if dir, _ := cmd.Flags().GetString("ingest"); dir != "" {
			cfg.Daemon.IngestDir = dir
		}
		if port, _ := cmd.Flags().GetInt("dashboard-port"); cmd.Flags().Changed("dashboard-port") {
			cfg.Daemon.DashboardPort = port
		}
		if interval, _ := cmd.Flags().GetDuration("refresh"); interval > 0 {
			cfg.Daemon.RefreshInterval = interval
		}

		seal, err := sealer.FromSpec(cfg.Sealer, a.logger)
		if err != nil {
			return err
		}

		d, err := daemon.New(a.engine, a.builder, seal, daemon.Config{
			IngestDir:        cfg.Daemon.IngestDir,
			ArchiveDir:       cfg.Daemon.ArchiveDir,
			Actor:            a.actor,
			RefreshInterval:  cfg.Daemon.RefreshInterval,
			DebounceInterval: cfg.Daemon.DebounceInterval,
			Logger:           cfg.NewLogger("[daemon] "),
		})
		if err != nil {
			return err
		}

		if cfg.CachePath != "" {
			mirror, err := cache.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer mirror.Close()
			d.SetMirror(mirror)
			fmt.Printf("   Cache:     %s\n", cfg.CachePath)
		}

		if cfg.Daemon.DashboardPort > 0 {
			server := dashboard.NewServer(dashboard.Config{
				Port:   cfg.Daemon.DashboardPort,
				Logger: cfg.NewLogger("[dashboard] "),
			}, a.engine)
			if err := server.Start(); err != nil {
				return err
			}
			defer func() {
				if err := server.Stop(); err != nil {
					a.logger.Printf("error stopping dashboard: %v", err)
				}
			}()

			d.SetDashboard(dashboard.NewHandler(server, cfg.NewLogger("[dashboard] ")))
			fmt.Printf("   Dashboard: http://localhost:%d (ws://localhost:%d/ws)\n",
				cfg.Daemon.DashboardPort, cfg.Daemon.DashboardPort)
		}

		if cfg.Daemon.NATSURL != "" {
			publisher, err := daemon.NewPublisher(cfg.Daemon.NATSURL, cfg.Daemon.NATSSubject, a.logger)
			if err != nil {
				return err
			}
			d.SetPublisher(publisher)
			fmt.Printf("   Events:    %s (%s)\n", cfg.Daemon.NATSURL, cfg.Daemon.NATSSubject)
		}

		fmt.Printf("%s Daemon starting\n", ui.RenderAccent("▶"))
		if cfg.Daemon.IngestDir != "" {
			fmt.Printf("   Ingest:    %s\n", cfg.Daemon.IngestDir)
		}
		fmt.Printf("   Refresh:   every %v\n", cfg.Daemon.RefreshInterval.Round(time.Second))
		fmt.Println("\nPress Ctrl+C to stop")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return d.Start(ctx)
	},
}

func init() {
	daemonCmd.Flags().String("ingest", "", "ingest directory to watch (overrides config)")
	daemonCmd.Flags().Int("dashboard-port", 0, "dashboard listen port (overrides config, 0 in config disables)")
	daemonCmd.Flags().Duration("refresh", 0, "view refresh interval (overrides config)")
	rootCmd.AddCommand(daemonCmd)
}
