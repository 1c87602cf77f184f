package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/config"
	"github.com/litescript/ls-skyline/internal/logging"
	"github.com/litescript/ls-skyline/internal/scene"
	"github.com/litescript/ls-skyline/internal/storage"
	"github.com/litescript/ls-skyline/internal/theme"
	"github.com/litescript/ls-skyline/internal/version"
)

// fixedSource serves one snapshot to a renderer.
type fixedSource struct {
	snap theme.Snapshot
}

func (f fixedSource) Snapshot() theme.Snapshot { return f.snap }

// parseAt accepts RFC3339 or a local HH:MM for today.
func parseAt(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("15:04", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("--at %q: want RFC3339 or HH:MM", s)
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

// smartSnapshot resolves the environment once and builds the snapshot
// smart mode would show.
func smartSnapshot(ctx context.Context, cfg *config.Config, log *logging.Logger) (theme.Snapshot, acquire.Result) {
	res := buildAcquirer(cfg, log, nil).Resolve(ctx)
	env := res.Env

	snap := theme.Snapshot{
		Mode:        theme.ModeSmart,
		Selection:   cfg.Selection(),
		Weather:     cfg.Selection().Weather,
		Window:      env.Window,
		LastRefresh: env.ResolvedAt,
		Environment: &env,
	}
	if w, ok := env.Weather(); ok {
		snap.Weather = w
	}
	if env.HasLocation {
		loc := env.Location
		snap.Location = &loc
	}
	if res.Err != nil {
		snap.LastError = res.Err.Error()
	}
	return snap, res
}

func frameCmd() *cobra.Command {
	var (
		weather string
		tod     string
		width   int
		height  int
		at      string
		seed    int64
		smart   bool
		watch   bool
		plain   bool
	)

	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Print a frame of the scene",
		Long:  "Render the scene without the interactive UI. With --watch it animates in place until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer log.Close()

			ctx, cancel := signalContext()
			defer cancel()

			frameAt, err := parseAt(at, time.Now())
			if err != nil {
				return err
			}

			sel := cfg.Selection()
			if weather != "" {
				if sel.Weather, err = catalog.ParseCategory(weather); err != nil {
					return err
				}
			}
			if tod != "" {
				if sel.TimeOfDay, err = astro.ParseTimeOfDay(tod); err != nil {
					return err
				}
			}

			snap := theme.Snapshot{Mode: theme.ModeManual, Selection: sel, Weather: sel.Weather}
			if smart {
				snap, _ = smartSnapshot(ctx, cfg, log)
			}

			if width <= 0 || height <= 0 {
				w, h, err := term.GetSize(int(os.Stdout.Fd()))
				if err != nil {
					w, h = 80, 24
				}
				if width <= 0 {
					width = w
				}
				if height <= 0 {
					height = h - 1
				}
			}

			profile := termenv.NewOutput(os.Stdout).EnvColorProfile()
			if plain {
				profile = termenv.Ascii
			}
			render := func(c *scene.Canvas) string {
				if profile == termenv.Ascii {
					return c.Plain()
				}
				return c.String()
			}

			if seed == 0 {
				seed = cfg.Render.Seed
			}
			ropts := []scene.Option{scene.WithFPS(scene.FPSFor(profile, cfg.Render.LowPower))}
			if seed != 0 {
				ropts = append(ropts, scene.WithSeed(seed))
			}
			r := scene.NewRenderer(fixedSource{snap: snap}, ropts...)

			if scene.UseStatic(profile, width, height) {
				fmt.Println(render(scene.Static(snap, frameAt, width, height)))
				return nil
			}
			r.Resize(width, height)

			if !watch {
				r.RenderFrame(frameAt)
				fmt.Println(render(r.Canvas()))
				return nil
			}
			return watchFrames(ctx, r, frameAt, render)
		},
	}

	cmd.Flags().StringVarP(&weather, "weather", "w", "", "weather: clear, cloudy, rainy, snowy, stormy, foggy")
	cmd.Flags().StringVarP(&tod, "time", "t", "", "time of day: dawn, morning, afternoon, evening, night")
	cmd.Flags().IntVar(&width, "width", 0, "width in cells (default: terminal width)")
	cmd.Flags().IntVar(&height, "height", 0, "height in cells (default: terminal height)")
	cmd.Flags().StringVar(&at, "at", "", "clock time for smart mode (RFC3339 or HH:MM)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "particle seed for reproducible frames")
	cmd.Flags().BoolVar(&smart, "smart", false, "resolve the real weather and sun times first")
	cmd.Flags().BoolVar(&watch, "watch", false, "animate until interrupted")
	cmd.Flags().BoolVar(&plain, "plain", false, "no color")
	return cmd
}

// watchFrames animates r in place. Scene time starts at start and advances
// with the wall clock.
func watchFrames(ctx context.Context, r *scene.Renderer, start time.Time, render func(*scene.Canvas) string) error {
	out := termenv.NewOutput(os.Stdout)
	out.HideCursor()
	out.ClearScreen()
	defer out.ShowCursor()

	began := time.Now()
	ticker := scene.NewTicker(time.Second/scene.DefaultFPS, func(now time.Time) {
		if !r.RenderFrame(start.Add(now.Sub(began))) {
			return
		}
		out.MoveCursor(1, 1)
		fmt.Fprint(out, render(r.Canvas()))
	})
	ticker.Start(ctx)
	<-ctx.Done()
	ticker.Stop()
	fmt.Fprintln(out)
	return nil
}

func resolveCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve location, weather and sun times once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer log.Close()

			ctx, cancel := signalContext()
			defer cancel()

			res := buildAcquirer(cfg, log, nil).Resolve(ctx)
			if err := writeEnvironment(os.Stdout, format, res.Env); err != nil {
				return err
			}
			if res.Err != nil {
				return fmt.Errorf("resolve failed after %s: %w", res.Duration.Round(time.Millisecond), res.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, yaml")
	return cmd
}

func writeEnvironment(w io.Writer, format string, env acquire.Environment) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if env.HasLocation {
			fmt.Fprintf(tw, "Location:\t%s\n", env.Location.Label())
		} else {
			fmt.Fprintf(tw, "Location:\tunknown\n")
		}
		if c, ok := env.Weather(); ok {
			fmt.Fprintf(tw, "Weather:\t%s (%s, %.1f°C via %s)\n", c, env.Condition.Description, env.Condition.TempC, env.Condition.Provider)
		} else {
			fmt.Fprintf(tw, "Weather:\tunknown\n")
		}
		fmt.Fprintf(tw, "Sunrise:\t%s\n", env.Window.Sunrise.Format("15:04"))
		fmt.Fprintf(tw, "Sunset:\t%s (%s)\n", env.Window.Sunset.Format("15:04"), env.Window.Source)
		pos := env.Window.Positions(env.ResolvedAt)
		fmt.Fprintf(tw, "Time of day:\t%s\n", pos.TimeOfDay)
		for _, warn := range env.Warnings {
			fmt.Fprintf(tw, "Warning:\t%s\n", warn)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run headless",
		Long:  "Run smart mode without a terminal UI, serving the HTTP API and publishing to MQTT as configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Theme.Smart = true

			log, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer log.Close()
			for _, w := range cfg.Warnings() {
				log.Warn("%s", w)
			}

			ctx, cancel := signalContext()
			defer cancel()

			a := newApp(ctx, cfg, log)
			a.listen(func(s theme.Snapshot) {
				if s.Environment != nil && !s.Loading {
					log.Info("Scene: %s %s at %s", s.Weather, s.TimeOfDay(time.Now()), s.Environment.Location.Label())
				}
			})
			if err := a.start(ctx); err != nil {
				cancel()
				a.close()
				return err
			}

			log.Info("ls-skyline v%s serving. Press Ctrl+C to stop.", version.Version)
			<-ctx.Done()
			log.Info("Shutting down...")
			a.close()
			return nil
		},
	}
}

// observationRow is the flat CSV form of a stored observation.
type observationRow struct {
	Timestamp   string  `csv:"timestamp" json:"timestamp"`
	Method      string  `csv:"method" json:"method"`
	City        string  `csv:"city" json:"city"`
	Country     string  `csv:"country" json:"country"`
	Lat         float64 `csv:"lat" json:"lat"`
	Lon         float64 `csv:"lon" json:"lon"`
	Category    string  `csv:"category" json:"category"`
	Description string  `csv:"description" json:"description"`
	TempC       float64 `csv:"temp_c" json:"temp_c"`
	Provider    string  `csv:"provider" json:"provider"`
	Sunrise     string  `csv:"sunrise" json:"sunrise"`
	Sunset      string  `csv:"sunset" json:"sunset"`
	SunSource   string  `csv:"sun_source" json:"sun_source"`
}

func toRow(o storage.Observation) observationRow {
	row := observationRow{
		Timestamp: o.Timestamp.Format(time.RFC3339),
		Method:    o.Method,
		City:      o.City,
		Country:   o.Country,
		Lat:       o.Lat,
		Lon:       o.Lon,
		SunSource: o.SunSource,
	}
	if o.HasWeather {
		row.Category = o.Category
		row.Description = o.Description
		row.TempC = o.TempC
		row.Provider = o.Provider
	}
	if !o.Sunrise.IsZero() {
		row.Sunrise = o.Sunrise.Format(time.RFC3339)
		row.Sunset = o.Sunset.Format(time.RFC3339)
	}
	return row
}

func historyCmd() *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer log.Close()

			store, err := storage.Open(cfg.Storage.Path, log.With("storage"))
			if err != nil {
				return err
			}
			defer store.Close()

			obs, err := store.RecentObservations(limit)
			if err != nil {
				return err
			}
			rows := make([]observationRow, len(obs))
			for i, o := range obs {
				rows[i] = toRow(o)
			}

			switch strings.ToLower(format) {
			case "csv":
				return gocsv.Marshal(rows, os.Stdout)
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv, json")
	return cmd
}
