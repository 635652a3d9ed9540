package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"k8s.io/klog/v2"

	"github.com/kubeagle/kubeagle/internal/app"
	"github.com/kubeagle/kubeagle/internal/model"
)

var (
	// Version will be set by build flags, default to timestamp
	Version = "dev-" + time.Now().Format("20060102-150405")

	// Global flags
	configFile  string
	kubeContext string
	verbose     bool
	metricsPort int
)

var rootCmd = &cobra.Command{
	Use:   "kubeagle",
	Short: "Cluster and chart data acquisition engine",
	Long: `kubeagle acquires live cluster and chart-release state through the
kubectl and helm command-line tools, with bounded concurrency, two-tier
result caching and namespace-streaming partial updates, and derives
scheduling-aware resource and pressure views from the raw facts.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run one full acquisition cycle and print the result",
	RunE:  runSnapshot,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-acquire on an interval and print summaries",
	RunE:  runWatch,
}

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "List installed chart releases with their rendered values",
	RunE:  runCharts,
}

func init() {
	// Configure klog to keep client-go's own logging off stderr; the
	// engine logs through zap with file rotation instead.
	klog.InitFlags(nil)
	flag.Set("logtostderr", "false")
	flag.Set("alsologtostderr", "false")
	flag.Set("stderrthreshold", "FATAL")
	flag.Set("v", "0")

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(chartsCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&kubeContext, "context", "c", "", "cluster context to use (default: current kubeconfig context)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().IntVar(&metricsPort, "metrics-port", 0, "serve self-monitoring metrics on this port")

	snapshotCmd.Flags().Bool("force", false, "bypass caches for this cycle")
	watchCmd.Flags().IntP("interval", "i", 30, "seconds between acquisition cycles")
}

func buildApp(cmd *cobra.Command) (*app.App, error) {
	config, err := app.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if kubeContext != "" {
		config.Context = kubeContext
	}
	if verbose {
		config.LogLevel = "debug"
	}
	if metricsPort > 0 {
		config.MetricsEnabled = true
		config.MetricsPort = metricsPort
	}

	application, err := app.New(config, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	if err := application.Start(); err != nil {
		application.Shutdown()
		return nil, err
	}
	return application, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	application, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	ctx, cancel := signalContext()
	defer cancel()

	force, _ := cmd.Flags().GetBool("force")
	snap, err := application.Controller().Snapshot(ctx, force)
	if err != nil {
		return fmt.Errorf("acquisition failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func runCharts(cmd *cobra.Command, args []string) error {
	application, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	ctx, cancel := signalContext()
	defer cancel()

	list, err := application.Charts().List(ctx)
	if err != nil {
		return fmt.Errorf("chart listing failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

func runWatch(cmd *cobra.Command, args []string) error {
	application, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	ctx, cancel := signalContext()
	defer cancel()

	seconds, _ := cmd.Flags().GetInt("interval")
	if seconds <= 0 {
		seconds = 30
	}
	ticker := time.NewTicker(time.Duration(seconds) * time.Second)
	defer ticker.Stop()

	for {
		snap, err := application.Controller().Snapshot(ctx, false)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "acquisition failed: %v\n", err)
		} else {
			printSummary(snap)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			application.ForceRefresh()
		}
	}
}

func printSummary(snap *model.ClusterSnapshot) {
	healthy := 0
	for _, n := range snap.Nodes {
		if n.Healthy {
			healthy++
		}
	}
	warnings := 0
	if snap.Events != nil {
		warnings = snap.Events.TotalWarnings
	}
	fmt.Printf("%s  context=%s nodes=%d/%d workloads=%d releases=%d warnings=%d\n",
		snap.CapturedAt.Format(time.RFC3339),
		snap.Context,
		healthy, len(snap.Nodes),
		len(snap.Workloads),
		len(snap.Releases),
		warnings,
	)
}

func main() {
	// Container-aware runtime limits; no-ops outside cgroup limits.
	maxprocs.Set()
	memlimit.SetGoMemLimitWithOpts(memlimit.WithRatio(0.9))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
