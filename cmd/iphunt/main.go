package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/iphunt/internal/config"
	"github.com/dreamware/iphunt/internal/progress"
	"github.com/dreamware/iphunt/internal/search"
	"github.com/dreamware/iphunt/internal/status"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := config.New()
	var configPath string

	root := &cobra.Command{
		Use:   "iphunt [flags] <sha256-hex>",
		Short: "Find the IPv4 address whose dotted-decimal text has a given SHA-256 digest",
		Long: `iphunt scans all 2^32 IPv4 addresses in parallel, hashing the
dotted-decimal form of each with SHA-256 until one matches the target digest.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return search.ErrMissingArgument
			}
			digest, err := search.ParseDigest(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}

			_, err = run(cmd.Context(), cfg, digest, stdout, stderr)
			return err
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	if err := config.BindFlags(v, root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(newConfigCmd(v, &configPath, stdout))
	root.AddCommand(newStatusCmd(stdout))
	return root
}

// newConfigCmd prints the effective configuration as YAML.
func newConfigCmd(v *viper.Viper, configPath *string, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *configPath)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = stdout.Write(out)
			return err
		},
	}
}

// newStatusCmd queries the status server of a running search.
func newStatusCmd(stdout io.Writer) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the progress of a search started with --status-addr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			r, err := status.Fetch(ctx, addr)
			if err != nil {
				return fmt.Errorf("fetch status from %s: %w", addr, err)
			}
			printReport(stdout, r)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "status server address")
	return cmd
}

// run wires the searcher to its progress sinks and the optional status
// server, then prints the outcome.
func run(ctx context.Context, cfg config.Config, digest search.Digest, stdout, stderr io.Writer) (search.Outcome, error) {
	log := config.NewLogger(cfg, stderr)

	space, err := cfg.Space()
	if err != nil {
		return search.Outcome{}, err
	}

	// A tiny --range cannot feed one worker per CPU.
	workers := cfg.Workers
	if uint64(workers) > space.Len() {
		workers = int(space.Len())
	}

	progressOpts := []progress.Option{
		progress.WithInterval(cfg.Interval),
		progress.WithWindow(cfg.Window),
	}
	switch cfg.Output {
	case config.OutputText:
		progressOpts = append(progressOpts, progress.WithSink(progress.NewWriterSink(stdout)))
	case config.OutputBar:
		progressOpts = append(progressOpts, progress.WithSink(progress.NewBarSink(stderr, space.Len())))
	case config.OutputLog:
		progressOpts = append(progressOpts, progress.WithSink(progress.NewLogSink(log)))
	}

	var srv *status.Server
	if cfg.StatusAddr != "" {
		srv = status.NewServer(cfg.StatusAddr, log)
		progressOpts = append(progressOpts, progress.WithSink(srv))
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.WithError(err).Error("status server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	searcher := search.New(digest,
		search.WithWorkers(workers),
		search.WithSpace(space),
		search.WithLogger(log),
		search.WithProgress(progressOpts...),
	)

	outcome, err := searcher.Run(ctx)
	if err != nil {
		if srv != nil {
			srv.Finish(status.StateCanceled, "")
		}
		return outcome, fmt.Errorf("search interrupted after %d candidates: %w", outcome.Processed, err)
	}

	if outcome.Found {
		if srv != nil {
			srv.Finish(status.StateFound, outcome.Address)
		}
		color.New(color.FgGreen, color.Bold).Fprintf(stdout, "Found! IP: %s\n", outcome.Address)
	} else {
		if srv != nil {
			srv.Finish(status.StateExhausted, "")
		}
		color.New(color.FgYellow).Fprintf(stdout, "Not found: exhausted %d candidates in %v\n",
			outcome.Processed, outcome.Elapsed.Round(time.Millisecond))
	}

	log.WithFields(logrus.Fields{
		"workers": outcome.Workers,
		"elapsed": outcome.Elapsed,
	}).Debug("search finished")
	return outcome, nil
}

func printReport(w io.Writer, r status.Report) {
	fmt.Fprintf(w, "State: %s\n", r.State)
	if r.Result != "" {
		fmt.Fprintf(w, "Result: %s\n", r.Result)
	}
	fmt.Fprintf(w, "Progress: %.2f%% (%d/%d)\n", r.Percent, r.Processed, r.Total)
	if r.Throughput != nil {
		fmt.Fprintf(w, "Speed: %.2f ips/s\n", *r.Throughput)
	}
	if r.ETASeconds != nil {
		fmt.Fprintf(w, "Remaining: %.2fs\n", *r.ETASeconds)
	}
}
