package utilities

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel defines the severity of a log message.
type LogLevel int

// Logging Level
const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	Fatal
)

// Trade sides used across the portfolio and broker packages.
const (
	OpBuy  = "buy"
	OpSell = "sell"
)

// --- Types (Alphabetized) ---

// AdvisorConfig holds settings for the smart-summary agent.
type AdvisorConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Provider          string `mapstructure:"provider"` // "groq", "gemini" or "openai"
	APIKey            string `mapstructure:"api_key"`
	Model             string `mapstructure:"model"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

// AnalysisConfig holds the tunables of the reconciliation and ranking run.
type AnalysisConfig struct {
	Currency           string   `mapstructure:"currency"`
	BuyLimit           int      `mapstructure:"buy_limit"`
	MinimumBuyAmount   float64  `mapstructure:"minimum_buy_amount"`
	BuyLimitAmount     float64  `mapstructure:"buy_limit_amount"` // 0 = derive from buy_limit and minimum_buy_amount
	BuyPercentage      float64  `mapstructure:"buy_percentage"`
	SellPercentage     float64  `mapstructure:"sell_percentage"`
	TrendThr           float64  `mapstructure:"trend_thr"`
	Pages              int      `mapstructure:"pages"`
	RecordsPerPage     int      `mapstructure:"records_per_page"`
	ExcludePairNames   []string `mapstructure:"exclude_pair_names"`
	ExcludeAmountNames []string `mapstructure:"exclude_amount_names"`
	LoadClosePrices    bool     `mapstructure:"load_close_prices"`
	UseTradeLog        bool     `mapstructure:"use_trade_log"`
	ShowSmartSummary   bool     `mapstructure:"show_smart_summary"`
	SellsInRangeWindow int      `mapstructure:"sells_in_range_window"`
	DisplayPrecision   int      `mapstructure:"display_precision"`
}

// AppConfig is the root configuration structure, holding all other config sections.
type AppConfig struct {
	AppName     string         `mapstructure:"app_name"`
	Version     string         `mapstructure:"version"`
	Environment string         `mapstructure:"environment"`
	Advisor     AdvisorConfig  `mapstructure:"advisor"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	DB          DatabaseConfig `mapstructure:"database"`
	Kraken      KrakenConfig   `mapstructure:"kraken"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Ranking     RankingConfig  `mapstructure:"ranking"`
	TradeLog    TradeLogConfig `mapstructure:"tradelog"`
	Web         WebConfig      `mapstructure:"web"`
}

// DatabaseConfig holds settings for database connections.
type DatabaseConfig struct {
	DBPath string `mapstructure:"database_path"`
}

// KrakenConfig holds all settings for the Kraken exchange integration.
type KrakenConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	APISecret         string  `mapstructure:"api_secret"`
	KeyFile           string  `mapstructure:"key_file"`
	BaseURL           string  `mapstructure:"base_url"`
	MaxRetries        int     `mapstructure:"max_retries"`
	RateBurst         int     `mapstructure:"rate_burst"`
	RateLimitPerSec   float64 `mapstructure:"rate_limit_per_sec"`
	RequestTimeoutSec int     `mapstructure:"request_timeout_sec"`
	RetryDelaySec     int     `mapstructure:"retry_delay_sec"`
}

// KrakenNonceGenerator generates nonces for Kraken API requests.
type KrakenNonceGenerator struct {
	counter uint64
	mu      sync.Mutex
}

// Logger provides a structured logger with different levels.
type Logger struct {
	Level  LogLevel
	Logger *log.Logger
}

// LoggingConfig holds settings related to logging.
type LoggingConfig struct {
	Level           string `mapstructure:"level"`
	LogToFile       bool   `mapstructure:"log_to_file"`
	LogFilePath     string `mapstructure:"log_file_path"`
	MaxSizeMB       int    `mapstructure:"max_size_mb"`
	MaxBackups      int    `mapstructure:"max_backups"`
	MaxAgeDays      int    `mapstructure:"max_age_days"`
	CompressBackups bool   `mapstructure:"compress_backups"`
}

// RankingConfig parameterizes the composite score that decides ranking order
// and the live/dead classification. The exact weighting is configuration by
// contract; the score must stay monotonic in margin and trend.
type RankingConfig struct {
	MarginWeight float64 `mapstructure:"margin_weight"`
	TrendWeight  float64 `mapstructure:"trend_weight"`
	BLRPenalty   float64 `mapstructure:"blr_penalty"`
}

// SessionPoint is one entry of a historical daily close-price or volume series.
type SessionPoint struct {
	Timestamp int64   `json:"timestamp"` // unix seconds of the session open
	Value     float64 `json:"value"`
}

// TradeLogConfig holds settings for the persisted trade log.
type TradeLogConfig struct {
	Path string `mapstructure:"path"`
}

// WebConfig holds settings for the HTTP API server.
type WebConfig struct {
	Addr    string `mapstructure:"addr"`
	DataDir string `mapstructure:"data_dir"` // key files live here
}

// --- Methods and constructors ---

// ApplyDefaults fills zero-valued analysis/ranking knobs with the documented
// defaults so a minimal config file still produces a full run.
func (c *AppConfig) ApplyDefaults() {
	a := &c.Analysis
	if a.Currency == "" {
		a.Currency = "EUR"
	}
	if a.BuyLimit == 0 {
		a.BuyLimit = 4
	}
	if a.MinimumBuyAmount == 0 {
		a.MinimumBuyAmount = 70
	}
	if a.BuyLimitAmount == 0 {
		a.BuyLimitAmount = float64(a.BuyLimit) * 0.5 * a.MinimumBuyAmount
	}
	if a.BuyPercentage == 0 {
		a.BuyPercentage = 0.2
	}
	if a.SellPercentage == 0 {
		a.SellPercentage = 0.2
	}
	if a.TrendThr == 0 {
		a.TrendThr = 0.2
	}
	if a.Pages == 0 {
		a.Pages = 20
	}
	if a.RecordsPerPage == 0 {
		a.RecordsPerPage = 50
	}
	if a.SellsInRangeWindow == 0 {
		a.SellsInRangeWindow = 200
	}
	if a.DisplayPrecision == 0 {
		a.DisplayPrecision = 3
	}
	r := &c.Ranking
	if r.MarginWeight == 0 {
		r.MarginWeight = 1.0
	}
	if r.TrendWeight == 0 {
		r.TrendWeight = 1.0
	}
	if r.BLRPenalty == 0 {
		r.BLRPenalty = 1.0
	}
	if c.Kraken.BaseURL == "" {
		c.Kraken.BaseURL = "https://api.kraken.com"
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
	if c.Web.DataDir == "" {
		c.Web.DataDir = "data/keys"
	}
}

// NewLogger creates a new Logger instance writing to stdout.
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		Level:  level,
		Logger: log.New(os.Stdout, "[rama] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// NewLoggerFromConfig creates a Logger honoring the file-output settings.
// File output goes through a size/age-rotated writer.
func NewLoggerFromConfig(cfg LoggingConfig) (*Logger, error) {
	level, err := ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var sink io.Writer = os.Stdout
	if cfg.LogToFile {
		if cfg.LogFilePath == "" {
			return nil, fmt.Errorf("logging: log_to_file set but log_file_path empty")
		}
		rotated := &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.CompressBackups,
		}
		sink = io.MultiWriter(os.Stdout, rotated)
	}
	return &Logger{
		Level:  level,
		Logger: log.New(sink, "[rama] ", log.Ldate|log.Ltime|log.Lshortfile),
	}, nil
}

// LogDebug logs a message at Debug level.
func (l *Logger) LogDebug(format string, v ...interface{}) {
	if l.Level <= Debug {
		_ = l.Logger.Output(2, fmt.Sprintf("[DEBUG] "+format, v...))
	}
}

// LogError logs a message at Error level.
func (l *Logger) LogError(format string, v ...interface{}) {
	if l.Level <= Error {
		_ = l.Logger.Output(2, fmt.Sprintf("[ERROR] "+format, v...))
	}
}

// LogFatal logs a message at Fatal level and then calls os.Exit(1).
func (l *Logger) LogFatal(format string, v ...interface{}) {
	_ = l.Logger.Output(2, fmt.Sprintf("[FATAL] "+format, v...))
	os.Exit(1)
}

// LogInfo logs a message at Info level.
func (l *Logger) LogInfo(format string, v ...interface{}) {
	if l.Level <= Info {
		_ = l.Logger.Output(2, fmt.Sprintf("[INFO] "+format, v...))
	}
}

// LogWarn logs a message at Warn level.
func (l *Logger) LogWarn(format string, v ...interface{}) {
	if l.Level <= Warn {
		_ = l.Logger.Output(2, fmt.Sprintf("[WARN] "+format, v...))
	}
}

// SetLogLevel updates the logging level of the logger.
func (l *Logger) SetLogLevel(level LogLevel) {
	l.Level = level
}

// NewNonceCounter creates a new KrakenNonceGenerator.
func NewNonceCounter() *KrakenNonceGenerator {
	return &KrakenNonceGenerator{counter: uint64(time.Now().UnixNano())}
}

// Nonce generates and returns a new unique nonce.
func (n *KrakenNonceGenerator) Nonce() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counter++
	return n.counter
}

// ParseLogLevel converts a string log level to the LogLevel type.
func ParseLogLevel(levelStr string) (LogLevel, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn":
		return Warn, nil
	case "error":
		return Error, nil
	case "fatal":
		return Fatal, nil
	default:
		return Info, fmt.Errorf("invalid log level string: %s", levelStr)
	}
}
