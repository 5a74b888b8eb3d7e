package common

import (
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/clinical-extractor/constants"
)

var listenAddr = regexp.MustCompile(`^[^\s:]*:\d{1,5}$`)

// Config holds all application configuration
type Config struct {
	Extraction  ExtractionConfig
	Database    DatabaseConfig
	Server      ServerConfig
	TextExtract TextExtractConfig
	Queue       QueueConfig
	Log         LogConfig
}

// ExtractionConfig holds matching and scoring configuration
type ExtractionConfig struct {
	Mode           string
	FuzzyCutoff    float64
	Similarity     string
	CPTMinDigits   int
	CPTMaxDigits   int
	DictionaryPath string
	LabelPattern   string
	JSONIndent     int
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	HTTPAddr string
}

// TextExtractConfig holds document-to-text configuration
type TextExtractConfig struct {
	Pdftotext string
	MaxBytes  int64
}

// QueueConfig holds async worker pool configuration
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() *Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("EXTRACT_MODE", constants.ModeFuzzy)
	v.SetDefault("FUZZY_CUTOFF", 0.8)
	v.SetDefault("SIMILARITY", "ratio")
	v.SetDefault("CPT_MIN_DIGITS", 5)
	v.SetDefault("CPT_MAX_DIGITS", 6)
	v.SetDefault("DICTIONARY_PATH", "")
	v.SetDefault("SEGMENT_LABEL_PATTERN", "")
	v.SetDefault("JSON_INDENT", 2)

	v.SetDefault("DB_URL", "file:clinical-extractor.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", 5*time.Minute)
	v.SetDefault("DB_DIAL_TIMEOUT", 3*time.Second)
	v.SetDefault("DB_STATEMENT_TIMEOUT", time.Duration(0))

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")

	v.SetDefault("PDFTOTEXT", "pdftotext")
	v.SetDefault("MAX_DOCUMENT_BYTES", int64(10<<20))

	v.SetDefault("QUEUE_WORKERS", 4)
	v.SetDefault("QUEUE_SIZE", 256)
	v.SetDefault("QUEUE_TIMEOUT", time.Minute)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	return &Config{
		Extraction: ExtractionConfig{
			Mode:           strings.ToLower(v.GetString("EXTRACT_MODE")),
			FuzzyCutoff:    v.GetFloat64("FUZZY_CUTOFF"),
			Similarity:     strings.ToLower(v.GetString("SIMILARITY")),
			CPTMinDigits:   v.GetInt("CPT_MIN_DIGITS"),
			CPTMaxDigits:   v.GetInt("CPT_MAX_DIGITS"),
			DictionaryPath: v.GetString("DICTIONARY_PATH"),
			LabelPattern:   v.GetString("SEGMENT_LABEL_PATTERN"),
			JSONIndent:     v.GetInt("JSON_INDENT"),
		},
		Database: DatabaseConfig{
			DSN:              v.GetString("DB_URL"),
			MaxConns:         v.GetInt32("DB_MAX_CONNS"),
			MinConns:         v.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime:  v.GetDuration("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime:  v.GetDuration("DB_MAX_CONN_IDLE_TIME"),
			DialTimeout:      v.GetDuration("DB_DIAL_TIMEOUT"),
			StatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
		},
		Server: ServerConfig{
			GRPCAddr: v.GetString("GRPC_ADDR"),
			HTTPAddr: v.GetString("HTTP_ADDR"),
		},
		TextExtract: TextExtractConfig{
			Pdftotext: v.GetString("PDFTOTEXT"),
			MaxBytes:  v.GetInt64("MAX_DOCUMENT_BYTES"),
		},
		Queue: QueueConfig{
			Workers:        v.GetInt("QUEUE_WORKERS"),
			Size:           v.GetInt("QUEUE_SIZE"),
			ProcessTimeout: v.GetDuration("QUEUE_TIMEOUT"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	validator := NewValidator().
		Field("EXTRACT_MODE", c.Extraction.Mode, OneOf(constants.ModeExact, constants.ModeFuzzy)).
		Field("SIMILARITY", c.Extraction.Similarity, OneOf("ratio", "levenshtein")).
		Field("FUZZY_CUTOFF", c.Extraction.FuzzyCutoff, Between(0, 1)).
		Field("CPT_MIN_DIGITS", c.Extraction.CPTMinDigits, Between(5, 6)).
		Field("CPT_MAX_DIGITS", c.Extraction.CPTMaxDigits, Between(5, 6)).
		Field("JSON_INDENT", c.Extraction.JSONIndent, OneOf(2, 4)).
		Field("LOG_FORMAT", c.Log.Format, OneOf("text", "json")).
		Field("HTTP_ADDR", c.Server.HTTPAddr, Matches(listenAddr, "must be [host]:port")).
		Field("GRPC_ADDR", c.Server.GRPCAddr, Matches(listenAddr, "must be [host]:port")).
		Field("QUEUE_WORKERS", c.Queue.Workers, Between(1, 256))
	if c.Extraction.CPTMaxDigits < c.Extraction.CPTMinDigits {
		validator.Field("CPT_MAX_DIGITS", c.Extraction.CPTMaxDigits, func(field string, value interface{}) *ValidationError {
			return &ValidationError{Field: field, Value: value, Message: "must not be lower than CPT_MIN_DIGITS"}
		})
	}
	if validator.HasErrors() {
		return NewAppError("CONFIG_ERROR", validator.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
