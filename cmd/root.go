package cmd

import (
	"fmt"
	"os"

	"github.com/abhisek/edusarthi/internal/config"
	"github.com/abhisek/edusarthi/internal/llm"
	"github.com/abhisek/edusarthi/internal/logger"
	"github.com/abhisek/edusarthi/internal/prompt"
	"github.com/abhisek/edusarthi/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "edusarthi",
	Short: "AI study assistant for school students",
	Long: "EduSarthi generates study notes and quizzes, answers questions and holds tutoring\n" +
		"conversations in English, Hindi or Hinglish, with optional image input.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("db", "", "Path to SQLite database file (overrides EDUSARTHI_DB env var)")
	flags.String("provider", "", "LLM provider: gemini, anthropic, openai, ollama, mock")
	flags.String("lang", "", "Response language: en, hi, hn")
	flags.String("level", "", "Education level, e.g. \"Class 8\"")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration with global flags applied on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	cfg, err := config.Load(config.LoadOptions{
		Path: flag("config"),
		Overrides: map[string]string{
			"llm.provider": flag("provider"),
			"language":     flag("lang"),
			"level":        flag("level"),
			"log.level":    flag("log-level"),
			"store.path":   flag("db"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db or store.path
// (highest priority), then EDUSARTHI_DB env var, then the default XDG path.
func resolveDBPath(cfg *config.Config) (string, error) {
	if p := cfg.Store.Path; p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openStore opens the event log selected by the flags and config.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// app bundles what the study commands need.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *store.Store
	provider llm.Provider
	lang     prompt.Language
	level    string
}

// newApp loads config, opens the store and builds the provider.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	lang := prompt.ParseLanguage(cfg.Language)
	if err := prompt.CheckContext(lang, cfg.Level); err != nil {
		return nil, fmt.Errorf("%w (use --lang and --level)", err)
	}
	if !lang.Known() {
		fmt.Fprintf(os.Stderr, "warning: unknown language code %q, passing it through\n", lang)
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider, err := llm.NewProvider(cmd.Context(), cfg.LLM, log, st.EventRepo())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}

	log.Debug("provider ready", "provider", cfg.LLM.Provider, "model", provider.ModelID(), "db", dbPath)
	return &app{cfg: cfg, log: log, store: st, provider: provider, lang: lang, level: cfg.Level}, nil
}

func (a *app) Close() {
	a.store.Close()
	a.log.Sync()
}

// readImage loads the file named by --image, if any.
func readImage(cmd *cobra.Command) ([]byte, error) {
	path, _ := cmd.Flags().GetString("image")
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}
