package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	flagServer      string
	flagPort        int
	flagIdent       string
	flagTimeout     time.Duration
	flagMetricsAddr string
	flagVerbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nettable",
		Short: "Client for the nettable telemetry protocol",
		Long: `nettable connects to a nettable server and mirrors its shared
entry table over a persistent connection.

Subcommands can watch the table live, read or write single entries,
and invoke server-defined remote procedures.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flagVerbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagServer, "server", "127.0.0.1", "server host, or a ws:// / wss:// URL")
	pf.IntVar(&flagPort, "port", 1735, "server TCP port")
	pf.StringVar(&flagIdent, "ident", "", "client identity sent in the handshake")
	pf.DurationVar(&flagTimeout, "timeout", 10*time.Second, "connect timeout")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		watchCmd(),
		getCmd(),
		setCmd(),
		callCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nettable %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
