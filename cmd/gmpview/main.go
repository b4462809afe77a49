package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fenilmodi00/gmp-tracker/config"
	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/fenilmodi00/gmp-tracker/services"
	"github.com/fenilmodi00/gmp-tracker/shared"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	sourceURL string
	search    string
	sortBy    string
	order     string
	timeout   time.Duration
	asJSON    bool
	verbose   bool
)

// rootCmd fetches the GMP feed once and prints the dashboard view
var rootCmd = &cobra.Command{
	Use:   "gmpview",
	Short: "Show the IPO grey market premium dashboard in the terminal",
	Long: `Fetch the IPO GMP feed once, then filter, sort and format it the same way
the HTTP API does.

Sort columns: ipo, price, gmp, est_listing, ipo_size, lot, open, close, boa_dt,
listing, gmp_updated. Order: asc or desc.`,
	SilenceUsage: true,
	RunE:         runView,
}

// statsCmd prints only the derived statistics
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show active, upcoming and average premium statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sourceURL, "source", "", "Upstream GMP feed URL (or set GMP_SOURCE_URL env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall fetch timeout")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive substring match on the IPO name")
	rootCmd.Flags().StringVar(&sortBy, "sort-by", string(services.DefaultSortColumn), "Column to sort by")
	rootCmd.Flags().StringVar(&order, "order", string(services.DefaultSortDirection), "Sort order (asc or desc)")

	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newDashboard() (*services.DashboardService, error) {
	gateway, err := newGateway()
	if err != nil {
		return nil, err
	}
	return services.NewDashboardService(gateway), nil
}

func newGateway() (*services.GMPGateway, error) {
	cfg, err := config.LoadConfig().ToUnified()
	if err != nil {
		return nil, err
	}
	if sourceURL != "" {
		cfg.Service.BaseURL = sourceURL
	}

	// Logs go to stderr at warn level unless --verbose.
	cfg.Logging.Format = "text"
	if verbose {
		cfg.Logging.Level = "debug"
	} else {
		cfg.Logging.Level = "warn"
	}
	shared.ConfigureLogging(cfg.Logging)
	logrus.SetOutput(os.Stderr)

	return services.NewGMPGateway(cfg), nil
}

func runView(cmd *cobra.Command, args []string) error {
	dashboard, err := newDashboard()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	view, err := dashboard.BuildView(ctx, models.ViewQuery{Search: search, SortBy: sortBy, Order: order})
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd, view)
	}
	renderView(cmd.OutOrStdout(), view)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	dashboard, err := newDashboard()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	info, stats, err := dashboard.CurrentStats(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd, map[string]interface{}{
			"snapshot":  info,
			"stats":     dashboard.Formatter.FormatStats(stats),
			"raw_stats": stats,
		})
	}
	renderStats(cmd.OutOrStdout(), info, dashboard.Formatter.FormatStats(stats))
	return nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
