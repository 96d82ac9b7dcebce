// Command edusync runs the study-planner service: an HTTP API over a
// SQLite event store, day-planning heuristics, ICS busy import, and a
// periodically re-rendered dashboard preview.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"edusync/internal/config"
	applog "edusync/internal/log"
	"edusync/internal/plan"
	"edusync/internal/store"
	"edusync/internal/web"
)

const version = "0.1.0"

var (
	flagConfig string
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:     "edusync",
		Short:   "Study planner with day-planning heuristics and an ICS-fed dashboard",
		Version: version,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "./edusync.yaml", "path to config file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newPlanCmd(), newRenderCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies the log level (the --debug
// flag wins over the configured level).
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", flagConfig, err)
	}
	if flagDebug {
		applog.SetLevel(applog.LevelDebug)
	} else {
		applog.SetLevel(applog.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

// openServer builds the store-backed server from the loaded config.
func openServer(cfg *config.Config) (*web.Server, *store.Repo, error) {
	repo, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", cfg.Database, err)
	}
	return web.NewServer(cfg, repo), repo, nil
}

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, dashboard, and background refresh",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			srv, repo, err := openServer(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			// Warm the busy cache before accepting traffic; feed failures
			// are non-fatal here, the cron refresh will retry.
			if err := srv.RefreshBusy(ctx); err != nil {
				applog.Warn("initial busy refresh incomplete", "error", err.Error())
			}

			c := cron.New()
			if _, err := c.AddFunc(cfg.RefreshCron, func() {
				jobCtx, jobCancel := context.WithTimeout(ctx, 2*time.Minute)
				defer jobCancel()
				if err := srv.RefreshBusy(jobCtx); err != nil {
					applog.Error("scheduled busy refresh failed", err)
				}
				if err := srv.WritePreview(jobCtx); err != nil {
					applog.Error("scheduled preview render failed", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			c.Start()
			defer c.Stop()

			httpSrv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				applog.Info("edusync serving", "listen", "http://"+cfg.Listen,
					"version", version, "refresh", cfg.RefreshCron)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			applog.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}

// planInput is the YAML shape accepted by the plan command.
type planInput struct {
	Tasks  []plan.Task  `yaml:"tasks"`
	Habits []plan.Habit `yaml:"habits"`
}

func newPlanCmd() *cobra.Command {
	var (
		date   string
		input  string
		commit bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan one day from a YAML task/habit file and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			srv, repo, err := openServer(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading plan input: %w", err)
			}
			var in planInput
			if err := yaml.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("parsing plan input: %w", err)
			}

			day, err := resolveDay(cfg, date)
			if err != nil {
				return err
			}

			// Imported busy blocks count as existing commitments.
			if err := srv.RefreshBusy(cmd.Context()); err != nil {
				applog.Warn("busy refresh incomplete", "error", err.Error())
			}
			existing, err := srv.EventsOnDay(day)
			if err != nil {
				return err
			}

			res := srv.Planner().PlanDay(day, existing, in.Tasks, in.Habits)
			if commit && len(res.Events) > 0 {
				inserted, err := repo.InsertAll(res.Events)
				if err != nil {
					return fmt.Errorf("storing planned events: %w", err)
				}
				res.Events = inserted
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to plan, YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&input, "input", "f", "", "YAML file with tasks and habits (required)")
	cmd.Flags().BoolVar(&commit, "commit", false, "persist the placed blocks")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		date string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the dashboard for one day to a PNG and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			srv, repo, err := openServer(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			day, err := resolveDay(cfg, date)
			if err != nil {
				return err
			}
			if out == "" {
				out = srv.PreviewPath()
			}

			if err := srv.RefreshBusy(cmd.Context()); err != nil {
				applog.Warn("busy refresh incomplete", "error", err.Error())
			}
			if err := srv.RenderPNG(cmd.Context(), day, out); err != nil {
				return err
			}
			applog.Info("dashboard rendered", "day", day.Format("2006-01-02"), "out", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to render, YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path (default: configured preview path)")
	return cmd
}

// resolveDay parses an optional YYYY-MM-DD in the configured timezone,
// defaulting to today.
func resolveDay(cfg *config.Config, date string) (time.Time, error) {
	loc := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		}
	}
	if date == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return day, nil
}
