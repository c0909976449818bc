package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jshclinic/aichart/internal/clipboard"
	"github.com/jshclinic/aichart/internal/config"
	"github.com/jshclinic/aichart/internal/journal"
	"github.com/jshclinic/aichart/internal/logging"
	"github.com/jshclinic/aichart/internal/pipeline"
	"github.com/jshclinic/aichart/internal/store"
	"github.com/jshclinic/aichart/internal/transcribe"
	"github.com/jshclinic/aichart/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	configFile string
	envFile    string

	logger *zap.Logger
	now    func() time.Time

	serviceFn func(cfg config.Config, logger *zap.Logger) (transcribe.Service, error)
	copyFn    func(ctx context.Context, value string) error
}

func newAppState() *appState {
	return &appState{
		now:       time.Now,
		serviceFn: defaultService,
		copyFn:    clipboard.CopyText,
	}
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aichart",
		Short:         "Turn recorded clinical conversations into S.O.A.P. chart notes",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindConfigFlags(cmd, app)
	bindServiceFlags(cmd)
	bindStorageFlags(cmd)

	cmd.AddCommand(newChartCmd(app))
	cmd.AddCommand(newSessionCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newTemplatesCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := cmd.Root()
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", root.Name(), root.Version)
			return nil
		},
	})

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable the busy indicator")
}

func bindConfigFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.configFile, "config", "", "Config file (default <config dir>/aichart/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.envFile, "env-file", "", "Dotenv file with credentials (default ./.env when present)")
}

// Service and storage flags are read through config.Load so they share
// precedence with the config file and environment.
func bindServiceFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("provider", "", "Transcription provider: gemini|openai (default gemini)")
	cmd.PersistentFlags().String("model", "", "Provider model name (default depends on provider)")
	cmd.PersistentFlags().String("template", "", "Chart template: full|minimal (default full)")
	cmd.PersistentFlags().String("api-key", "", "Provider API key (prefer AICHART_API_KEY or the config file)")
	cmd.PersistentFlags().Duration("timeout", 0, "Bound on one transcription call; 0 waits indefinitely")
}

func bindStorageFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-file", "", "Chart log CSV path (default <data dir>/aichart/charts.csv)")
	cmd.PersistentFlags().String("journal-file", "", "Encounter journal path (default <data dir>/aichart/encounters.jsonl)")
	cmd.PersistentFlags().String("staging-dir", "", "Directory for the temporary audio staging file (default OS temp dir)")
}

func defaultService(cfg config.Config, logger *zap.Logger) (transcribe.Service, error) {
	return transcribe.NewService(cfg.Provider, cfg.Model, logger)
}

func (a *appState) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: a.configFile,
		EnvFile:    a.envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.ConfigFile != "" {
		a.log().Debug("configuration loaded", zap.String("file", cfg.ConfigFile))
	}
	return cfg, nil
}

type encounterDeps struct {
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	journal      *journal.Journal
	service      transcribe.Service
}

func (a *appState) newEncounter(cfg config.Config) (encounterDeps, error) {
	serviceFn := a.serviceFn
	if serviceFn == nil {
		serviceFn = defaultService
	}

	svc, err := serviceFn(cfg, a.log())
	if err != nil {
		return encounterDeps{}, err
	}

	client := transcribe.NewClient(svc, transcribe.Options{
		StagingDir: cfg.StagingDir,
		Timeout:    cfg.Timeout,
		Logger:     a.log(),
	})
	chartStore := store.New(cfg.LogFile, a.log())
	encounterJournal := journal.New(cfg.JournalFile)

	orchestrator := pipeline.New(pipeline.Options{
		Transcriber: client,
		Store:       chartStore,
		Journal:     encounterJournal,
		Credentials: cfg.APIKey,
		Service:     svc.Name(),
		Now:         a.clock(),
		Logger:      a.log(),
	})

	a.log().Debug("encounter outputs",
		zap.String("log", chartStore.Path()),
		zap.String("journal", encounterJournal.Path()),
		zap.String("service", svc.Name()),
	)
	return encounterDeps{orchestrator: orchestrator, store: chartStore, journal: encounterJournal, service: svc}, nil
}

func (a *appState) copyChart(ctx context.Context, text string) {
	copyFn := a.copyFn
	if copyFn == nil {
		copyFn = clipboard.CopyText
	}

	if err := copyFn(ctx, text); err != nil {
		if errors.Is(err, clipboard.ErrUnavailable) {
			a.log().Warn("clipboard tool unavailable; chart left on stdout")
			return
		}
		a.log().Warn("failed to copy chart to clipboard; chart left on stdout", zap.Error(err))
		return
	}
	a.log().Info("chart copied to clipboard")
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) clock() func() time.Time {
	if a.now == nil {
		return time.Now
	}
	return a.now
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
