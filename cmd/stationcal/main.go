package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/EpicMandM/station-calendar/internal/app"
	"github.com/EpicMandM/station-calendar/internal/calendar"
	"github.com/EpicMandM/station-calendar/internal/config"
	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/handler"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/metrics"
	"github.com/EpicMandM/station-calendar/internal/service"
	"github.com/EpicMandM/station-calendar/internal/store"
	"github.com/EpicMandM/station-calendar/internal/ui"
)

const shutdownTimeout = 10 * time.Second

// env is the configuration and logging shared by every command.
type env struct {
	cfg      *config.Config
	features *service.FeatureConfig
	logger   *logger.Logger
	logFile  io.Closer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noDelay bool

	root := &cobra.Command{
		Use:           "stationcal",
		Short:         "Weekly pickup/return calendar for rental stations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalendar(cmd, "/", noDelay)
		},
	}
	root.PersistentFlags().BoolVar(&noDelay, "no-delay", false, "skip the artificial API latency")

	calendarCmd := &cobra.Command{
		Use:   "calendar [path]",
		Short: "Open the interactive calendar (default), optionally at /booking/<id>",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			return runCalendar(cmd, path, noDelay)
		},
	}

	var weekStation, weekDate string
	weekCmd := &cobra.Command{
		Use:   "week",
		Short: "Print a station's pickups and returns for one week",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(weekDate)
			if err != nil {
				return err
			}
			return withApp(cmd, noDelay, false, func(a *app.App) error {
				return a.PrintWeek(cmd.Context(), weekStation, day)
			})
		},
	}
	weekCmd.Flags().StringVar(&weekStation, "station", "", "station id or name")
	weekCmd.Flags().StringVar(&weekDate, "date", "", "any day of the week to show (YYYY-MM-DD, default today)")
	_ = weekCmd.MarkFlagRequired("station")

	bookingCmd := &cobra.Command{
		Use:   "booking <id>",
		Short: "Print a booking's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, noDelay, false, func(a *app.App) error {
				return a.PrintDetail(cmd.Context(), args[0])
			})
		},
	}

	var rsStation, rsEndpoint, rsDate string
	rescheduleCmd := &cobra.Command{
		Use:   "reschedule <bookingId>",
		Short: "Move a booking's pickup or return to another day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseEndpoint(rsEndpoint)
			if err != nil {
				return err
			}
			day, err := dates.Parse(rsDate)
			if err != nil {
				return err
			}
			return withApp(cmd, noDelay, false, func(a *app.App) error {
				b, err := a.Reschedule(cmd.Context(), rsStation, args[0], kind, day)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Booking #%s (%s): %s - %s\n",
					b.ID, b.CustomerName, dates.FormatLong(b.StartDate), dates.FormatLong(b.EndDate))
				return err
			})
		},
	}
	rescheduleCmd.Flags().StringVar(&rsStation, "station", "", "station id or name")
	rescheduleCmd.Flags().StringVar(&rsEndpoint, "endpoint", "", "start|end (or pickup|return)")
	rescheduleCmd.Flags().StringVar(&rsDate, "date", "", "new day (YYYY-MM-DD)")
	for _, f := range []string{"station", "endpoint", "date"} {
		_ = rescheduleCmd.MarkFlagRequired(f)
	}

	var exportStation, exportDate string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a station's week to Google Calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(exportDate)
			if err != nil {
				return err
			}
			return withApp(cmd, noDelay, false, func(a *app.App) error {
				result, err := a.ExportWeek(cmd.Context(), exportStation, day)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events (%d new, %d updated, %d failed)\n",
					result.Total(), result.Created, result.Updated, result.Failed)
				return err
			})
		},
	}
	exportCmd.Flags().StringVar(&exportStation, "station", "", "station id or name")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "any day of the week to export (YYYY-MM-DD, default today)")
	_ = exportCmd.MarkFlagRequired("station")

	var mockAddr, mockFixture string
	mockCmd := &cobra.Command{
		Use:   "mockapi",
		Short: "Serve the station/booking API locally from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(false)
			if err != nil {
				return err
			}
			defer e.close()
			if mockAddr == "" {
				mockAddr = e.cfg.MockAddr
			}
			if mockFixture == "" {
				mockFixture = e.features.Mock.FixturePath
			}
			return serveMock(cmd.Context(), e, mockAddr, mockFixture)
		},
	}
	mockCmd.Flags().StringVar(&mockAddr, "addr", "", "listen address (default STATIONCAL_MOCK_ADDR)")
	mockCmd.Flags().StringVar(&mockFixture, "fixture", "", "stations YAML file (default built-in fixture)")

	root.AddCommand(calendarCmd, weekCmd, bookingCmd, rescheduleCmd, exportCmd, mockCmd)
	return root
}

func runCalendar(cmd *cobra.Command, path string, noDelay bool) error {
	start, err := ui.ParseRoute(path)
	if err != nil {
		return err
	}
	return withApp(cmd, noDelay, true, func(a *app.App) error {
		return ui.Run(cmd.Context(), a, start)
	})
}

// withApp loads configuration, initializes the App and runs fn with it.
func withApp(cmd *cobra.Command, noDelay, interactive bool, fn func(a *app.App) error) error {
	e, err := setup(interactive)
	if err != nil {
		return err
	}
	defer e.close()
	if noDelay {
		e.cfg.NoDelay = true
	}

	a := app.New(e.cfg, e.features, e.logger, cmd.OutOrStdout())
	if err := a.Initialize(cmd.Context()); err != nil {
		e.logger.Error("Failed to initialize application", logger.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(cmd.Context()); err != nil {
			e.logger.Warn("Failed to close application", logger.Error(err))
		}
	}()
	return fn(a)
}

func setup(interactive bool) (*env, error) {
	envPath := getEnvOrDefault("STATIONCAL_ENV_FILE", ".env")
	cfg, err := config.LoadWithFile(envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", envPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, closer, err := buildLogger(cfg, interactive)
	if err != nil {
		return nil, err
	}

	features, err := service.LoadFeatureConfig(cfg.FeatureConfigPath)
	if err != nil {
		l.Error("Failed to load feature config", logger.Error(err), logger.F("path", cfg.FeatureConfigPath))
		closeQuietly(closer)
		return nil, err
	}
	if err := features.Validate(); err != nil {
		closeQuietly(closer)
		return nil, err
	}
	return &env{cfg: cfg, features: features, logger: l, logFile: closer}, nil
}

// buildLogger writes to STATIONCAL_LOG_FILE when set. Otherwise the TUI stays
// silent and the other commands log to stderr.
func buildLogger(cfg *config.Config, interactive bool) (*logger.Logger, io.Closer, error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l, err := logger.NewWithLevel(f, cfg.LogLevel)
		if err != nil {
			closeQuietly(f)
			return nil, nil, err
		}
		return l, f, nil
	}
	if interactive {
		return logger.Nop(), nil, nil
	}
	l, err := logger.NewWithLevel(os.Stderr, cfg.LogLevel)
	return l, nil, err
}

func (e *env) close() {
	_ = e.logger.Sync()
	closeQuietly(e.logFile)
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func serveMock(ctx context.Context, e *env, addr, fixture string) error {
	st, err := store.NewFixtureStore(fixture)
	if err != nil {
		e.logger.Error("Failed to load fixture", logger.Error(err), logger.F("path", fixture))
		return err
	}
	defer closeQuietly(st)

	metrics.RegisterDefault()
	limiter := handler.NewRateLimiter(e.features.Mock.RateRPS, e.features.Mock.RateBurst, e.logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewAPIHandler(st, e.logger).Routes(limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("Mock API listening", logger.Action("serve"), logger.URL(addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mock api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	e.logger.Info("Shutting down mock API", logger.Action("serve"), logger.Status("stopping"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mock api shutdown: %w", err)
	}
	e.logger.Info("Mock API stopped", logger.Action("serve"), logger.Status("stopped"))
	return nil
}

func parseDay(s string) (dates.Key, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return dates.Parse(strings.TrimSpace(s))
}

func parseEndpoint(s string) (calendar.Endpoint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start", "pickup":
		return calendar.EndpointStart, nil
	case "end", "return":
		return calendar.EndpointEnd, nil
	default:
		return "", fmt.Errorf("invalid endpoint %q: want start or end", s)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
