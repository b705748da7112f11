// Package cli implements the casewright command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/casewright/casewright/internal/cache"
	"github.com/casewright/casewright/internal/llm"
	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/pipeline"
	"github.com/casewright/casewright/internal/store"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "casewright",
	Short: "Casewright - structured use case extraction from requirements text",
	Long: `Casewright turns free-form requirements text into structured use cases.

It estimates how many use cases a document plausibly contains, chunks large
documents, extracts candidates through a local or remote language model,
validates and deduplicates them, and stores the survivors per session.

When no model is reachable, extraction degrades to pattern matching rather
than failing.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("casewright v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.casewright/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.casewright")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CASEWRIGHT_*
	viper.SetEnvPrefix("CASEWRIGHT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the effective configuration: defaults, then config file,
// then well-known environment variables.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		if cfg.LLM.Provider == "ollama" {
			cfg.LLM.BaseURL = v
		}
		if cfg.Embedding.Provider == "ollama" {
			cfg.Embedding.BaseURL = v
		}
	}

	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	return cfg, nil
}

// newLogger builds the CLI logger. Verbose mode lowers the level to debug.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// buildOrchestrator assembles the pipeline from configuration. The caller
// owns the returned store and must close it.
func buildOrchestrator(cfg *model.Config, log zerolog.Logger) (*pipeline.Orchestrator, *store.SQLiteStore, error) {
	generator, err := llm.NewGenerator(llm.ConfigFromLLM(cfg.LLM))
	if err != nil {
		return nil, nil, fmt.Errorf("configuring generator: %w", err)
	}
	if generator == nil {
		log.Warn().Msg("no generation provider configured, extraction will use pattern matching")
	}

	embedder, err := llm.NewEmbedder(llm.ConfigFromEmbedding(cfg.Embedding))
	if err != nil {
		return nil, nil, fmt.Errorf("configuring embedder: %w", err)
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.New(cfg.Cache.Dir, cfg.Cache.TTL)
	}

	return pipeline.NewOrchestrator(cfg, generator, embedder, st, c, log), st, nil
}
