// File: cmd/root.go
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Marianu08/trading-alg-rama01/advisor"
	"github.com/Marianu08/trading-alg-rama01/dataprovider"
	"github.com/Marianu08/trading-alg-rama01/pkg/app"
	"github.com/Marianu08/trading-alg-rama01/pkg/broker/kraken"
	"github.com/Marianu08/trading-alg-rama01/utilities"
	"github.com/Marianu08/trading-alg-rama01/web"
)

var (
	cfgFile string
	cfg     utilities.AppConfig
	logger  *utilities.Logger
)

// rootCmd represents the base command for the rama CLI.
var rootCmd = &cobra.Command{
	Use:   "rama",
	Short: "Kraken portfolio reconciliation and ranking engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("json")
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
		cfg.ApplyDefaults()

		var err error
		logger, err = utilities.NewLoggerFromConfig(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one full reconciliation and print the ranking payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cache, err := buildApp()
		if err != nil {
			return err
		}
		defer cache.Close()

		result, err := engine.Analyze(cmd.Context(), app.RunOptions{
			ShowSmartSummary: cfg.Analysis.ShowSmartSummary,
		})
		out := json.NewEncoder(os.Stdout)
		out.SetIndent("", "  ")
		if err != nil {
			_ = out.Encode(app.ErrorPayload(err))
			return err
		}
		return out.Encode(result)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cache, err := buildApp()
		if err != nil {
			return err
		}
		defer cache.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.LogWarn("Received signal: %v, initiating graceful shutdown.", sig)
			cancel()
		}()

		web.StartWebServer(ctx, &controller{app: engine})
		<-ctx.Done()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.json", "config file")
	rootCmd.AddCommand(analyzeCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildApp wires the config into the analysis pipeline: Kraken credentials,
// the historical close-series cache, the exchange adapter and the advisor.
func buildApp() (*app.App, *dataprovider.SQLiteCache, error) {
	if cfg.Kraken.APIKey == "" {
		keyFile := cfg.Kraken.KeyFile
		if keyFile == "" {
			keyFile = filepath.Join(cfg.Web.DataDir, "kraken.key")
		}
		if _, err := os.Stat(keyFile); err == nil {
			apiKey, apiSecret, err := utilities.LoadKeyFile(keyFile)
			if err != nil {
				return nil, nil, err
			}
			cfg.Kraken.APIKey = apiKey
			cfg.Kraken.APISecret = apiSecret
		}
	}

	cache, err := dataprovider.NewSQLiteCache(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session cache: %w", err)
	}

	client := kraken.NewClient(&cfg.Kraken, nil, logger)
	source := kraken.NewAdapter(client, cache, logger)

	engine := app.New(&cfg, source, advisorFor(cfg.Advisor.Provider), logger)
	engine.NewSummarizer = func(provider string) app.Summarizer {
		return advisorFor(provider)
	}
	return engine, cache, nil
}

// advisorFor builds a summarizer for a provider, pulling the API key from the
// provider's key file when the config does not carry one.
func advisorFor(provider string) app.Summarizer {
	acfg := cfg.Advisor
	acfg.Provider = provider
	if acfg.APIKey == "" {
		acfg.APIKey = readProviderKey(provider)
	}
	return advisor.NewClient(acfg, logger)
}

func readProviderKey(provider string) string {
	raw, err := os.ReadFile(filepath.Join(cfg.Web.DataDir, provider+".key"))
	if err != nil {
		return ""
	}
	lines := strings.SplitN(strings.TrimSpace(string(raw)), "\n", 2)
	return strings.TrimSpace(lines[0])
}

// controller adapts the engine to the web package's AppController.
type controller struct {
	app *app.App
}

func (c *controller) RunAnalysis(ctx context.Context, opts app.RunOptions) (*app.Result, error) {
	return c.app.Analyze(ctx, opts)
}

func (c *controller) GetConfig() utilities.AppConfig {
	return cfg
}

func (c *controller) Logger() *utilities.Logger {
	return logger
}
