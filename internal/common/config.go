package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	Models   ModelsConfig   `yaml:"models"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Cache    CacheConfig    `yaml:"cache"`
	Output   OutputConfig   `yaml:"output"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"` // postgres://... or a sqlite path / ":memory:"
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	InboxDir string `yaml:"inbox_dir"`
	Workers  int    `yaml:"workers"`
}

// OCRConfig holds rasterizer and layout engine configuration
type OCRConfig struct {
	Pdftoppm       string `yaml:"pdftoppm"`
	Pdftotext      string `yaml:"pdftotext"`
	TextExtractor  string `yaml:"text_extractor"` // pdf | pdftotext
	DPI            int    `yaml:"dpi"`
	MaxDimension   int    `yaml:"max_dimension"`
	LayoutEndpoint string `yaml:"layout_endpoint"`
	TesseractLang  string `yaml:"tesseract_lang"`
	TessdataDir    string `yaml:"tessdata_dir"`
}

// ModelsConfig holds endpoints of the hosted NLP collaborators
type ModelsConfig struct {
	LinguisticEndpoint string        `yaml:"linguistic_endpoint"`
	NEREndpoint        string        `yaml:"ner_endpoint"`
	ClassifierEndpoint string        `yaml:"classifier_endpoint"`
	APIToken           string        `yaml:"api_token"`
	Timeout            time.Duration `yaml:"timeout"`

	// OpenAI is used for clause classification when no classifier endpoint is set.
	OpenAIModel       string  `yaml:"openai_model"`
	OpenAIAPIKey      string  `yaml:"openai_api_key"`
	OpenAIBaseURL     string  `yaml:"openai_base_url"`
	OpenAITemperature float32 `yaml:"openai_temperature"`
}

// PipelineConfig holds orchestration settings
type PipelineConfig struct {
	Workers       int           `yaml:"workers"`
	PageTimeout   time.Duration `yaml:"page_timeout"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
	ProgressEvery int           `yaml:"progress_every"`
}

// CacheConfig holds the optional metadata cache settings
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
}

// OutputConfig holds artifact settings
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	WriteXLSX bool   `yaml:"write_xlsx"`
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			DSN:             "file:legal-ocr.db?_pragma=busy_timeout(5000)",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{GRPCAddr: ":8080", InboxDir: "./inbox", Workers: 2},
		OCR: OCRConfig{
			Pdftoppm:      "pdftoppm",
			Pdftotext:     "pdftotext",
			TextExtractor: "pdf",
			DPI:           200,
			TesseractLang: "eng",
		},
		Models: ModelsConfig{
			Timeout:     60 * time.Second,
			OpenAIModel: "gpt-4o-mini",
		},
		Pipeline: PipelineConfig{
			Workers:       1,
			PageTimeout:   2 * time.Minute,
			ProgressEvery: 10,
		},
		Cache:  CacheConfig{Prefix: "legal-ocr:meta:", TTL: 24 * time.Hour},
		Output: OutputConfig{Dir: "./results"},
	}
}

// LoadConfig loads configuration: defaults, then the YAML file named by CONFIG_FILE
// (if any), then environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.InboxDir = getEnv("INBOX_DIR", c.Server.InboxDir)
	c.Server.Workers = getEnvAsInt("QUEUE_WORKERS", c.Server.Workers)

	c.OCR.Pdftoppm = getEnv("PDFTOPPM", c.OCR.Pdftoppm)
	c.OCR.Pdftotext = getEnv("PDFTOTEXT", c.OCR.Pdftotext)
	c.OCR.TextExtractor = getEnv("TEXT_EXTRACTOR", c.OCR.TextExtractor)
	c.OCR.DPI = getEnvAsInt("RASTER_DPI", c.OCR.DPI)
	c.OCR.MaxDimension = getEnvAsInt("RASTER_MAX_DIMENSION", c.OCR.MaxDimension)
	c.OCR.LayoutEndpoint = getEnv("LAYOUT_ENDPOINT", c.OCR.LayoutEndpoint)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)

	c.Models.LinguisticEndpoint = getEnv("LINGUISTIC_ENDPOINT", c.Models.LinguisticEndpoint)
	c.Models.NEREndpoint = getEnv("NER_ENDPOINT", c.Models.NEREndpoint)
	c.Models.ClassifierEndpoint = getEnv("CLASSIFIER_ENDPOINT", c.Models.ClassifierEndpoint)
	c.Models.APIToken = getEnv("MODEL_API_TOKEN", c.Models.APIToken)
	c.Models.Timeout = getEnvAsDuration("MODEL_TIMEOUT", c.Models.Timeout)
	c.Models.OpenAIModel = getEnv("OPENAI_MODEL", c.Models.OpenAIModel)
	c.Models.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.Models.OpenAIAPIKey)
	c.Models.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.Models.OpenAIBaseURL)
	c.Models.OpenAITemperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.Models.OpenAITemperature)

	c.Pipeline.Workers = getEnvAsInt("PIPELINE_WORKERS", c.Pipeline.Workers)
	c.Pipeline.PageTimeout = getEnvAsDuration("PAGE_TIMEOUT", c.Pipeline.PageTimeout)
	c.Pipeline.RunTimeout = getEnvAsDuration("RUN_TIMEOUT", c.Pipeline.RunTimeout)
	c.Pipeline.ProgressEvery = getEnvAsInt("PROGRESS_EVERY", c.Pipeline.ProgressEvery)

	c.Cache.RedisAddr = getEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvAsInt("REDIS_DB", c.Cache.RedisDB)
	c.Cache.Prefix = getEnv("CACHE_PREFIX", c.Cache.Prefix)
	c.Cache.TTL = getEnvAsDuration("CACHE_TTL", c.Cache.TTL)

	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Output.WriteXLSX = getEnvAsBool("WRITE_XLSX", c.Output.WriteXLSX)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "RASTER_DPI must be positive", ErrInvalidInput)
	}
	switch c.OCR.TextExtractor {
	case "pdf", "pdftotext":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown TEXT_EXTRACTOR %q", c.OCR.TextExtractor), ErrInvalidInput)
	}
	if c.Pipeline.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Output.Dir == "" {
		return NewAppError("CONFIG_ERROR", "OUTPUT_DIR is required", ErrInvalidInput)
	}
	return nil
}
