package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskcal/internal/app"
	"taskcal/internal/calendar"
	"taskcal/internal/config"
	"taskcal/internal/db"
	"taskcal/internal/domain"
	"taskcal/internal/engine"
	"taskcal/internal/ics"
	"taskcal/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tcal",
	Short: "Taskcal CLI",
	Long: `Taskcal is a calendar-anchored task manager.
Tasks carry optional dates, times, priorities, and recurrence rules; the
engine projects them into calendar occurrences on demand. Dragging or
resizing an occurrence (via the API) maps back onto the stored task.
The workspace is a .taskcal directory holding a single SQLite database;
preferences live in taskcal.yml next to it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKCAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(agendaCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks are the stored records. A task with no dates never shows on the calendar; add a date (and optionally a time) to give it occurrences. Recurring tasks repeat daily, weekly, or monthly at a configurable interval.",
	}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskToggleCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Title = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "task id (optional, random UUID if omitted)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.StartDate, "date", "", "start date (2006-01-02)")
	cmd.Flags().StringVar(&opts.EndDate, "end-date", "", "end date (2006-01-02)")
	cmd.Flags().StringVar(&opts.StartTime, "time", "", "start time of day (15:04)")
	cmd.Flags().StringVar(&opts.EndTime, "end-time", "", "end time of day (15:04)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "medium", "priority (low, medium, high)")
	cmd.Flags().StringVar(&opts.Color, "color", "", "palette color id")
	cmd.Flags().StringVar(&opts.RecurrenceType, "repeat", "none", "recurrence (none, daily, weekly, monthly)")
	cmd.Flags().IntVar(&opts.RecurrenceInterval, "interval", 1, "recurrence interval")
	cmd.Flags().StringVar(&opts.RecurrenceEndDate, "until", "", "recurrence end date (2006-01-02)")
	return cmd
}

func taskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "When", "Priority", "Repeat", "Done"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, describeWhen(t), t.Priority, describeRepeat(t), t.Completed})
				}
				tw.Render()
				total, completed, err := e.Repo.CountTasks(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%d tasks, %d completed\n", total, completed)
				return nil
			})
		},
	}
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, description, startDate, endDate, startTime, endTime string
	var priority, color, repeat, until string
	var interval int
	var completed bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Long:  "Only changed flags are applied. Passing an empty value clears an optional field, e.g. --time \"\" turns a timed task back into an all-day one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskUpdateOptions{
				ID:      args[0],
				ActorID: viper.GetString("actor-id"),
			}
			set := func(name string, v *string) *string {
				if cmd.Flags().Changed(name) {
					return v
				}
				return nil
			}
			opts.Title = set("title", &title)
			opts.Description = set("description", &description)
			opts.StartDate = set("date", &startDate)
			opts.EndDate = set("end-date", &endDate)
			opts.StartTime = set("time", &startTime)
			opts.EndTime = set("end-time", &endTime)
			opts.Priority = set("priority", &priority)
			opts.Color = set("color", &color)
			opts.RecurrenceType = set("repeat", &repeat)
			opts.RecurrenceEndDate = set("until", &until)
			if cmd.Flags().Changed("interval") {
				opts.RecurrenceInterval = &interval
			}
			if cmd.Flags().Changed("completed") {
				opts.Completed = &completed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&startDate, "date", "", "start date (empty clears)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "end date (empty clears)")
	cmd.Flags().StringVar(&startTime, "time", "", "start time (empty clears)")
	cmd.Flags().StringVar(&endTime, "end-time", "", "end time (empty clears)")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (low, medium, high)")
	cmd.Flags().StringVar(&color, "color", "", "palette color id (empty clears)")
	cmd.Flags().StringVar(&repeat, "repeat", "", "recurrence (none, daily, weekly, monthly)")
	cmd.Flags().IntVar(&interval, "interval", 1, "recurrence interval")
	cmd.Flags().StringVar(&until, "until", "", "recurrence end date (empty clears)")
	cmd.Flags().BoolVar(&completed, "completed", false, "completed flag")
	return cmd
}

func taskToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "Flip a task's completed flag",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ToggleTask(ctx, id, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, id, viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func agendaCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show projected occurrences",
		Long:  "Projects every task into its calendar occurrences, recurrence expanded. --from/--to select an inclusive date window; without them the whole projection is shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromT, toT *time.Time
			if from != "" {
				d, err := calendar.ParseDate(from)
				if err != nil {
					return fmt.Errorf("invalid --from date: %w", err)
				}
				fromT = &d
			}
			if to != "" {
				d, err := calendar.ParseDate(to)
				if err != nil {
					return fmt.Errorf("invalid --to date: %w", err)
				}
				bound := d.AddDate(0, 0, 1)
				toT = &bound
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				occs, err := e.Occurrences(ctx, fromT, toT)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(occs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Start", "End", "Title", "All-day", "Repeat", "ID"})
				for _, o := range occs {
					repeat := ""
					if o.IsRecurrence {
						repeat = fmt.Sprintf("#%d", o.OccurrenceIndex)
					}
					tw.AppendRow(table.Row{o.Start, o.End, o.Title, o.AllDay, repeat, o.ID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date of the window (2006-01-02)")
	cmd.Flags().StringVar(&to, "to", "", "last date of the window, inclusive (2006-01-02)")
	return cmd
}

func settingsCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change settings",
	}
	s.AddCommand(settingsShowCmd())
	s.AddCommand(settingsSetCmd())
	return s
}

func settingsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Settings(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func settingsSetCmd() *cobra.Command {
	var darkMode bool
	var maxOccurrences, defaultDuration int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.SettingsUpdateOptions{ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("dark-mode") {
				opts.DarkMode = &darkMode
			}
			if cmd.Flags().Changed("max-occurrences") {
				opts.MaxOccurrences = &maxOccurrences
			}
			if cmd.Flags().Changed("default-duration") {
				opts.DefaultDurationMinutes = &defaultDuration
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.UpdateSettings(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().BoolVar(&darkMode, "dark-mode", false, "dark mode")
	cmd.Flags().IntVar(&maxOccurrences, "max-occurrences", 100, "recurrence expansion cap")
	cmd.Flags().IntVar(&defaultDuration, "default-duration", 60, "default timed duration in minutes")
	return cmd
}

func exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the task collection",
		Long:  "Exports every task as JSON (reimportable with 'tcal import') or as an iCalendar feed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx)
				if err != nil {
					return err
				}
				var data []byte
				switch format {
				case "json":
					data, err = json.MarshalIndent(tasks, "", "  ")
					if err != nil {
						return err
					}
					data = append(data, '\n')
				case "ics":
					s, err := e.Settings(ctx)
					if err != nil {
						return err
					}
					feed, err := ics.Export(tasks, calendar.Options{
						DefaultDuration: time.Duration(s.DefaultDurationMinutes) * time.Minute,
						MaxOccurrences:  s.MaxOccurrences,
					}, time.Now())
					if err != nil {
						return err
					}
					data = []byte(feed)
				default:
					return fmt.Errorf("unknown format %q (json, ics)", format)
				}
				if out == "" {
					_, err := os.Stdout.Write(data)
					return err
				}
				return os.WriteFile(out, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "export format (json, ics)")
	cmd.Flags().StringVar(&out, "out", "", "output file (stdout if omitted)")
	return cmd
}

func importCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a task collection from JSON",
		Long:  "Replaces the whole stored collection with the file's contents. There are no partial imports.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			var tasks []domain.Task
			if err := json.Unmarshal(data, &tasks); err != nil {
				return fmt.Errorf("parse %s: %w", filePath, err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.ReplaceTasks(ctx, tasks, viper.GetString("actor-id")); err != nil {
					return err
				}
				stored, err := e.ListTasks(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stored)
				}
				fmt.Printf("Imported %d tasks\n", len(stored))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to JSON task list")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config is taskcal.yml in the workspace: calendar defaults (expansion cap, default duration), UI preferences, and webhook endpoints for the API server.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default taskcal.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: creates, edits, drags, resizes, imports.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.ListEvents(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the task API, the occurrence projection, and the iCalendar feed. With TASKCAL_JWT_SECRET set, bearer auth is enforced; without it the server runs open in single-user mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			e, err := app.Open(workspace)
			if err != nil {
				return err
			}
			defer e.DB.Close()
			authCfg := server.AuthConfig{
				JWTSecret:      os.Getenv("TASKCAL_JWT_SECRET"),
				AnonymousActor: viper.GetString("actor-id"),
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Taskcal API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer e.DB.Close()
	return fn(ctx, e)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func describeWhen(t domain.Task) string {
	switch {
	case t.StartDate == nil:
		return ""
	case t.StartTime != nil && t.EndTime != nil:
		return fmt.Sprintf("%s %s-%s", *t.StartDate, *t.StartTime, *t.EndTime)
	case t.StartTime != nil:
		return fmt.Sprintf("%s %s", *t.StartDate, *t.StartTime)
	case t.EndDate != nil && *t.EndDate != *t.StartDate:
		return fmt.Sprintf("%s..%s", *t.StartDate, *t.EndDate)
	default:
		return *t.StartDate
	}
}

func describeRepeat(t domain.Task) string {
	if t.RecurrenceType == domain.RecurrenceNone {
		return ""
	}
	out := t.RecurrenceType
	if t.RecurrenceInterval > 1 {
		out = fmt.Sprintf("%s/%d", out, t.RecurrenceInterval)
	}
	if t.RecurrenceEndDate != nil {
		out = fmt.Sprintf("%s until %s", out, *t.RecurrenceEndDate)
	}
	return out
}
