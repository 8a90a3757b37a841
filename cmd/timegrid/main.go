package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"timegrid/internal/config"
	"timegrid/internal/host"
	"timegrid/internal/ics"
	"timegrid/internal/layout"
	appLog "timegrid/internal/log"
	"timegrid/internal/model"
	"timegrid/internal/store"
	"timegrid/internal/web"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "timegrid",
		Short:         "Week grid scheduler for tasks and calendar events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "timegrid.yaml", "Path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(layoutCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(rmCmd())

	if err := rootCmd.Execute(); err != nil {
		appLog.Error("command failed", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	if lvl, ok := appLog.ParseLevel(conf.LogLevel); ok {
		appLog.SetLevel(lvl)
	} else {
		appLog.Warn("unknown log level; keeping info", "log_level", conf.LogLevel)
	}
	return conf, nil
}

func openRepository(conf *config.Config) (host.Repository, *store.Store, error) {
	if dir := filepath.Dir(conf.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return host.Repository{}, nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	tasks, err := store.Open(conf.Database)
	if err != nil {
		return host.Repository{}, nil, err
	}

	repo := host.Repository{Tasks: tasks}
	if len(conf.ICS) > 0 {
		sources := make([]ics.Source, 0, len(conf.ICS))
		for _, c := range conf.ICS {
			if c.URL == "" {
				continue
			}
			sources = append(sources, ics.Source{ID: c.ID, Name: c.Name, URL: c.URL, Color: c.Color})
		}
		repo.Events = ics.NewCalendar(sources, conf.Location(), nil)
	}
	return repo, tasks, nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			// --listen overrides the config file.
			if listen != "" {
				conf.Listen = listen
			}

			appLog.Info("effective config",
				"listen", conf.Listen,
				"timezone", conf.Timezone,
				"week_start", conf.WeekStart,
				"refresh", conf.RefreshCron,
				"horizon_days", conf.HorizonDays,
				"database", conf.Database,
				"ics_count", len(conf.ICS),
			)

			repo, tasks, err := openRepository(conf)
			if err != nil {
				return err
			}
			defer tasks.Close()

			loop, err := host.New(host.FromConfig(conf), repo)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			loopErr := make(chan error, 1)
			go func() { loopErr <- loop.Run(ctx) }()

			srvErr := web.ListenAndServe(ctx, web.NewServer(conf, loop))
			cancel()
			if err := <-loopErr; err != nil {
				return err
			}
			appLog.Info("timegrid exiting")
			return srvErr
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func layoutCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the column layout of one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			day := model.DateOf(time.Now().In(conf.Location()))
			if date != "" {
				if day, err = model.ParseDate(date); err != nil {
					return err
				}
			}

			repo, tasks, err := openRepository(conf)
			if err != nil {
				return err
			}
			defer tasks.Close()

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			items, err := repo.FetchItems(ctx, model.DateRange{Start: day, End: day})
			if err != nil && len(items) == 0 {
				return err
			}

			printDay(layout.ForDay(day, items))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to lay out, YYYY-MM-DD (default today)")
	return cmd
}

func printDay(d layout.Day) {
	fmt.Printf("%s\n", d.Date)
	for _, it := range d.AllDay {
		fmt.Printf("  all-day  %s\n", it.Title)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	for i, a := range d.Assignments {
		it := d.Timed[i]
		start, end, _ := it.Interval()
		fmt.Fprintf(w, "  %s-%s\t%d/%d\t%s\n",
			model.TimeOfDay(start), model.TimeOfDay(min(end, model.MinutesPerDay)),
			a.Column+1, a.TotalColumns, it.Title)
	}
	w.Flush()
}

func addCmd() *cobra.Command {
	var (
		date    string
		at      string
		minutes int
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			it := model.ScheduledItem{
				Kind:            model.KindTask,
				Title:           strings.Join(args, " "),
				DurationMinutes: minutes,
			}
			if date != "" {
				d, err := model.ParseDate(date)
				if err != nil {
					return err
				}
				it.Date = &d
			}
			if at != "" {
				if it.Date == nil {
					return fmt.Errorf("--time needs --date")
				}
				t, err := model.ParseTimeOfDay(at)
				if err != nil {
					return err
				}
				if int(t) >= model.MinutesPerDay {
					return fmt.Errorf("--time %s is the end of the day, not a start", at)
				}
				it.Time = &t
			}

			tasks, err := store.Open(conf.Database)
			if err != nil {
				return err
			}
			defer tasks.Close()

			created, err := tasks.CreateItem(context.Background(), it)
			if err != nil {
				return err
			}
			fmt.Printf("Added task: %s\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day, YYYY-MM-DD (unscheduled if empty)")
	cmd.Flags().StringVar(&at, "time", "", "Start time, HH:MM (all-day if empty)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Duration in minutes")
	return cmd
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			tasks, err := store.Open(conf.Database)
			if err != nil {
				return err
			}
			defer tasks.Close()

			if err := tasks.DeleteItem(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed task: %s\n", args[0])
			return nil
		},
	}
}
