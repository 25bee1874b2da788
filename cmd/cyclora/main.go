package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/danmcgrath10/cyclora/internal/app"
	"github.com/danmcgrath10/cyclora/internal/config"
	"github.com/danmcgrath10/cyclora/internal/model"
	"github.com/danmcgrath10/cyclora/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "RidesList", "Sync").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// printNotices drains the session's notice channel to the terminal.
func printNotices(s *session.Session) {
	for {
		select {
		case n := <-s.Notices():
			if n.Level == session.NoticeError {
				fmt.Fprintln(os.Stderr, n.Message)
			} else {
				fmt.Println(n.Message)
			}
		default:
			return
		}
	}
}

func formatRide(r *model.Ride, tier string) string {
	summary := ""
	if r.AISummary != nil {
		summary = "  " + *r.AISummary
	}
	return fmt.Sprintf("%s  %-6s  %6.1f km  %8s  %5.1f km/h%s",
		r.Timestamp.Local().Format("2006-01-02 15:04"),
		tier,
		r.Distance,
		(time.Duration(r.Duration) * time.Second).String(),
		r.AverageSpeed,
		summary,
	)
}

var rootCmd = &cobra.Command{
	Use:   "cyclora",
	Short: "Cycling tracker with hybrid local/cloud ride storage",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Println("Set remote.url and auth.jwt_secret, then run 'cyclora login'.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Local Store: %s\n", cfg.Local.Type)
		fmt.Printf("Archive URL: %s\n", cfg.Remote.URL)
		fmt.Printf("Summaries:   %v\n", cfg.Summary.Enabled)
		return nil
	},
}

// rides command
var ridesCmd = &cobra.Command{
	Use:   "rides",
	Short: "Manage rides",
}

var ridesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rides across both tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		ctx := cmd.Context()

		a, err := newApp(ctx, "RidesList")
		if err != nil {
			return err
		}
		defer a.Close()

		sess := a.Session()
		sess.Load(ctx)
		for all && sess.View().HasMore {
			before := len(sess.View().RemoteRides)
			sess.LoadMore(ctx)
			if len(sess.View().RemoteRides) == before {
				break
			}
		}
		printNotices(sess)

		view := sess.View()
		if len(view.LocalRides) == 0 && len(view.RemoteRides) == 0 {
			fmt.Println("No rides recorded.")
			return nil
		}

		for _, r := range view.LocalRides {
			fmt.Println(formatRide(r, "local"))
		}
		for _, r := range view.RemoteRides {
			fmt.Println(formatRide(r, "cloud"))
		}
		if view.LocalOnly {
			fmt.Printf("\n%d ride(s) on this device (archive unavailable)\n", view.TotalCount)
		} else {
			shown := len(view.LocalRides) + len(view.RemoteRides)
			fmt.Printf("\n%d of %d ride(s)", shown, view.TotalCount)
			if view.HasMore {
				fmt.Print("  (use --all for the rest)")
			}
			fmt.Println()
		}
		return nil
	},
}

var ridesSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Record a finished ride",
	RunE: func(cmd *cobra.Command, args []string) error {
		distance, _ := cmd.Flags().GetFloat64("distance")
		durationStr, _ := cmd.Flags().GetString("duration")
		maxSpeed, _ := cmd.Flags().GetFloat64("max-speed")
		when, _ := cmd.Flags().GetString("start")
		ctx := cmd.Context()

		duration, err := time.ParseDuration(durationStr)
		if err != nil {
			return fmt.Errorf("parsing duration: %w", err)
		}
		if distance < 0 || duration <= 0 {
			return fmt.Errorf("distance must be non-negative and duration positive")
		}

		start := time.Now()
		if when != "" {
			start, err = time.Parse(time.RFC3339, when)
			if err != nil {
				return fmt.Errorf("parsing start time: %w", err)
			}
		}

		draft := model.RideDraft{
			Timestamp:    start,
			Distance:     distance,
			Duration:     int64(duration.Seconds()),
			AverageSpeed: distance / duration.Hours(),
		}
		if cmd.Flags().Changed("max-speed") {
			draft.MaxSpeed = &maxSpeed
		}

		a, err := newApp(ctx, "RidesSave")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Session().SaveRide(ctx, draft)
		if err != nil {
			return fmt.Errorf("saving ride: %w", err)
		}
		printNotices(a.Session())
		fmt.Printf("Ride %s saved\n", id)
		return nil
	},
}

var ridesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a ride from whichever tier holds it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "RidesDelete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Session().Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("deleting ride: %w", err)
		}
		printNotices(a.Session())
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload every local ride to the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Session().ForceSync(ctx); err != nil {
			return err
		}
		printNotices(a.Session())
		return nil
	},
}

// integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Report ride counts per tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "Integrity")
		if err != nil {
			return err
		}
		defer a.Close()

		report := a.Service().CheckIntegrity(ctx)
		fmt.Printf("Local rides:   %d\n", report.LocalCount)
		fmt.Printf("Archive rides: %d\n", report.RemoteCount)
		fmt.Printf("Pending sync:  %d\n", report.OldLocalCount)
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the archive access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Print("Access token: ")
		token, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		if len(token) == 0 {
			return fmt.Errorf("empty token")
		}

		if err := os.WriteFile(cfg.Auth.TokenPath, token, 0600); err != nil {
			return fmt.Errorf("writing token: %w", err)
		}
		fmt.Printf("Token written to %s\n", cfg.Auth.TokenPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	ridesCmd.AddCommand(ridesListCmd)
	ridesListCmd.Flags().Bool("all", false, "Load every archive page")
	ridesCmd.AddCommand(ridesSaveCmd)
	ridesSaveCmd.Flags().Float64("distance", 0, "Distance in kilometers")
	ridesSaveCmd.Flags().String("duration", "", "Ride duration (e.g. 1h30m)")
	ridesSaveCmd.Flags().Float64("max-speed", 0, "Maximum speed in km/h")
	ridesSaveCmd.Flags().String("start", "", "Start time in RFC3339 (default: now)")
	ridesSaveCmd.MarkFlagRequired("distance")
	ridesSaveCmd.MarkFlagRequired("duration")
	ridesCmd.AddCommand(ridesDeleteCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ridesCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(integrityCmd)
	rootCmd.AddCommand(loginCmd)
}
