// Command ls-skyline draws a live animated sky in the terminal. The scene
// follows a chosen weather and time of day, or in smart mode the real
// conditions where the machine is.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/litescript/ls-skyline/internal/config"
	"github.com/litescript/ls-skyline/internal/telemetry"
	"github.com/litescript/ls-skyline/internal/theme"
	"github.com/litescript/ls-skyline/internal/ui"
	"github.com/litescript/ls-skyline/internal/version"
)

var (
	configFile string
	verbose    bool
	smartFlag  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "ls-skyline",
		Short:   "Animated terminal sky",
		Long:    "A terminal sky scene that follows a chosen weather and time of day, or the real ones (smart mode).",
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVar(&smartFlag, "smart", false, "start in smart mode")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(frameCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the animated sky (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
	cmd.Flags().BoolVar(&smartFlag, "smart", false, "start in smart mode")
	return cmd
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runTUI(cmd *cobra.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stdout is not a terminal; try 'ls-skyline frame' or 'ls-skyline serve'")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("smart") {
		cfg.Theme.Smart = smartFlag
	}

	log, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, cancel := signalContext()
	defer cancel()

	a := newApp(ctx, cfg, log)
	defer a.close()
	defer cancel()

	opts := ui.Options{
		Profile:  termenv.NewOutput(os.Stdout).EnvColorProfile(),
		FPS:      cfg.Render.FPS,
		LowPower: cfg.Render.LowPower,
		Seed:     cfg.Render.Seed,
	}

	perf, err := telemetry.CreateCSV(cfg.Telemetry.PerfCSV)
	if err != nil {
		log.Warn("Frame stats disabled: %v", err)
	}
	if perf != nil {
		defer perf.Close()
		collector := telemetry.NewCollector(telemetry.DefaultWindow)
		collector.SetSink(perf)
		opts.Observer = collector
	}

	p := tea.NewProgram(ui.New(ctx, a.manager, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	// Send blocks until the program reads it, and theme changes are also
	// made from inside Update, so deliver from a separate goroutine.
	a.listen(func(s theme.Snapshot) {
		go p.Send(ui.DataUpdateMsg{Snapshot: s})
	})

	if err := a.start(ctx); err != nil {
		log.Error("Startup failed: %v", err)
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ls-skyline v%s\n", version.Version)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the merged configuration (defaults, file, environment) as YAML with secrets masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			for _, w := range cfg.Warnings() {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			return cfg.Redacted().WriteYAML(os.Stdout)
		},
	}
}
