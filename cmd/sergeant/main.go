// Command sergeant is the Code Sergeant CLI: a personal focus agent that
// watches activity, judges it against a stated goal, and talks back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/config"
	"github.com/CuevaLabs/CodeSergeant/internal/logging"
	"github.com/CuevaLabs/CodeSergeant/internal/perception"
	"github.com/CuevaLabs/CodeSergeant/internal/sensor"
	"github.com/CuevaLabs/CodeSergeant/internal/session"
	"github.com/CuevaLabs/CodeSergeant/internal/speech"
	"github.com/CuevaLabs/CodeSergeant/internal/store"
)

const version = "0.3.0"

var (
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sergeant",
	Short: "Code Sergeant - a focus agent that keeps you on mission",
	Long: `Code Sergeant watches what you are doing, judges it against the goal you
stated, and speaks up when you drift. It tracks focus stats per session,
runs a pomodoro timer, and nags you relentlessly while a distraction
stays open.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [goal]",
	Short: "Start a focus session toward a goal",
	Long: `Starts a monitored focus session. Activity lines are read from stdin in
the form "app | window title"; idle and AFK state are inferred from the
time between lines. The session ends on Ctrl-C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSession,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sessions",
	RunE:  showHistory,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the most recent session as markdown",
	RunE:  exportLatest,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sergeant %s\n", version)
	},
}

var historyLimit int

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sergeant.yaml", "config file path")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of sessions to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	backend, err := perception.NewBackend(cfg.LLM)
	if err != nil {
		return err
	}
	if backend == nil {
		logger.Warn("no AI backend configured, judging by rules only")
	}

	history, err := store.OpenSessionStore(cfg.Storage.DatabasePath, logger.Named("store"))
	if err != nil {
		return err
	}
	defer history.Close()

	speaker := speech.NewQueueSpeaker(speech.NewLogEngine(logger.Named("speech")), logger.Named("speech"))
	speaker.Start()
	defer speaker.Close()

	act := sensor.NewStdin(os.Stdin, 2*time.Minute, logger.Named("sensor"))

	ctrl := session.NewController(cfg, session.Deps{
		Sensor:  act,
		Speaker: speaker,
		Backend: backend,
		History: history,
		Logs:    store.NewLogWriter(cfg.Storage.LogDir, cfg.Storage.NotesDir),
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watcher, err := config.NewWatcher(configPath, ctrl.UpdateConfig, logger.Named("config"))
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	go ctrl.Run(ctx)
	ctrl.StartSession(ctx, goal)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	ctrl.EndSession()
	cancel()
	return nil
}

func showHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	history, err := store.OpenSessionStore(cfg.Storage.DatabasePath, logger.Named("store"))
	if err != nil {
		return err
	}
	defer history.Close()

	sessions, err := history.RecentSessions(historyLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet.")
		return nil
	}

	for _, s := range sessions {
		focus := time.Duration(s.FocusSeconds+s.ThinkingSeconds) * time.Second
		fmt.Printf("%s  %-40s  focus %-8s  rate %3.0f%%  distractions %d\n",
			s.StartTime.Local().Format("2006-01-02 15:04"),
			truncate(s.Goal, 40), focus, s.FocusRate()*100, s.DistractionsCount)
	}
	return nil
}

func exportLatest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	history, err := store.OpenSessionStore(cfg.Storage.DatabasePath, logger.Named("store"))
	if err != nil {
		return err
	}
	defer history.Close()

	sessions, err := history.RecentSessions(1)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions to export")
	}

	writer := store.NewLogWriter(cfg.Storage.LogDir, cfg.Storage.NotesDir)
	path, err := writer.ExportMarkdown(sessions[0])
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
