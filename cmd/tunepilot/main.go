// Package main provides the tunepilot CLI application entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"tunepilot/internal/app"
	"tunepilot/internal/core"
	httpserver "tunepilot/internal/http"
	"tunepilot/internal/i18n"
	"tunepilot/internal/player"
	"tunepilot/internal/recovery"
	"tunepilot/internal/source"
	"tunepilot/internal/store"
)

// updateInterval is the playback poll period driving preload and transitions.
const updateInterval = 500 * time.Millisecond

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "tunepilot",
	Short: "tunepilot - voice and text commanded music playback agent",
	Long: `tunepilot plays music on request: it searches the platform, downloads the
audio just in time, keeps the music going with radio continuation, and
recovers the titles of deleted videos in your saved playlists.`,
	RunE: runTunepilot,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().String("data-dir", "", "directory for config, favorites and playlists (default ~/.tunepilot)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("lang", i18n.Spanish, "reply language (en, es)")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Bool("radio", true, "start with radio continuation enabled")
	rootCmd.PersistentFlags().Bool("listen", false, "start with voice listening enabled")
	rootCmd.PersistentFlags().String("text", "", "run a single command and exit")
	rootCmd.PersistentFlags().Bool("list-mics", false, "list audio input devices and exit")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	viper.SetEnvPrefix("TUNEPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func initLogger() {
	var zapLevel zapcore.Level
	switch strings.ToLower(viper.GetString("log-level")) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{"stderr"}

	built, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}
	logger = built
}

func dataDir() (string, error) {
	if dir := viper.GetString("data-dir"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".tunepilot"), nil
}

// cleanTempFiles removes audio files left behind by a previous run.
func cleanTempFiles() {
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "tunepilot_*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			logger.Debug("removed stale audio file", zap.String("path", m))
		}
	}
}

func runTunepilot(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc := i18n.NewLocalizer(viper.GetString("lang"))

	if viper.GetBool("list-mics") {
		fmt.Println(loc.T("mic.none"))
		return nil
	}

	dir, err := dataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	cleanTempFiles()

	cfgStore := core.NewConfigStore(dir)
	cfg := cfgStore.Load()
	if f := rootCmd.PersistentFlags().Lookup("listen"); f != nil && f.Changed {
		cfg.ListenEnabled = viper.GetBool("listen")
	}

	logger.Info("Starting tunepilot",
		zap.String("data_dir", dir),
		zap.Bool("filters", cfg.FiltersEnabled),
		zap.Bool("radio", viper.GetBool("radio")))

	docs := store.NewDocuments(dir)
	history := store.NewHistory(cfg.HistorySize)
	backend := source.New(logger, cfg.SearchDepth, os.TempDir())

	srv := httpserver.NewServer(viper.GetString("server-host"), viper.GetInt("server-port"), logger)

	engine := recovery.New(backend, logger, srv)
	verifier := recovery.NewVerifier(docs, backend, engine, logger, cfg.VerifyWorkers)

	ctrl := core.NewController(cfg, cfgStore, docs, history, backend, player.New,
		srv, logger, viper.GetBool("radio"))

	executor := app.NewExecutor(ctrl, verifier, docs, history, backend, loc, logger)

	if line := viper.GetString("text"); line != "" {
		reply, _ := executor.ExecuteText(ctx, line)
		fmt.Println(reply)
		ctrl.Stop()
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(updateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				ctrl.Stop()
				return nil
			case <-ticker.C:
				ctrl.Update(gCtx)
			}
		}
	})

	g.Go(func() error {
		return commandLoop(gCtx, cancel, executor, cfg)
	})

	logger.Info("tunepilot started",
		zap.String("http_addr", fmt.Sprintf("%s:%d", viper.GetString("server-host"), viper.GetInt("server-port"))))

	if err := g.Wait(); err != nil {
		logger.Error("tunepilot stopped with error", zap.Error(err))
		return err
	}
	logger.Info("tunepilot stopped gracefully")
	return nil
}

// commandLoop reads commands from stdin until EOF, quit, or shutdown.
func commandLoop(ctx context.Context, cancel context.CancelFunc, executor *app.Executor,
	cfg *core.Config) error {

	prompt := color.New(color.FgGreen, color.Bold)
	reply := color.New(color.FgCyan)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	prompt.Print("> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				cancel()
				return nil
			}
			line = stripHotwords(line, cfg.Hotwords)
			if line == "" {
				prompt.Print("> ")
				continue
			}
			msg, quit := executor.ExecuteText(ctx, line)
			if msg != "" {
				reply.Println(msg)
			}
			if quit {
				cancel()
				return nil
			}
			prompt.Print("> ")
		}
	}
}

// stripHotwords drops a leading wake word so "rafa pon salsa" and
// "pon salsa" parse the same.
func stripHotwords(line string, hotwords []string) string {
	trimmed := strings.TrimSpace(line)
	low := strings.ToLower(trimmed)
	for _, hw := range hotwords {
		hw = strings.ToLower(strings.TrimSpace(hw))
		if hw == "" {
			continue
		}
		if strings.HasPrefix(low, hw+" ") {
			return strings.TrimSpace(trimmed[len(hw)+1:])
		}
		if low == hw {
			return ""
		}
	}
	return trimmed
}
