package common

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/rol-extractor/constants"
)

const ServiceName = "rol-extractor"

// Config holds all application configuration. It is built once at process
// start and passed by value into each component.
type Config struct {
	Render     RenderConfig
	Preprocess PreprocessConfig
	OCR        OCRConfig
	Extract    ExtractConfig
	Pipeline   PipelineConfig
	Output     OutputConfig
	Log        LogConfig
	RulesFile  string
}

// RenderConfig controls document-to-image conversion.
type RenderConfig struct {
	Pdftoppm    string // binary name or absolute path
	DPI         int
	Grayscale   bool
	MaxPages    int    // 0 = no limit
	ImageFormat string // png | tiff
}

// PreprocessConfig controls page binarization.
type PreprocessConfig struct {
	Threshold  string // adaptive | otsu
	Blur       string // gaussian | median | none
	Contrast   float64
	Brightness float64
	BlockSize  int
	C          float64
	OpenSize   int
	DilateSize int
	Scale      float64
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string // cli | gosseract
	Tesseract     string // binary name or absolute path
	Languages     []string
	PSM           int // 6 = uniform block of text
	OEM           int
	Whitelist     string
	TessdataDir   string
	PayloadFormat string        // png | tiff
	Timeout       time.Duration // 0 = none
	CachePath     string        // empty disables the cache

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

// ExtractConfig holds pattern extraction thresholds.
type ExtractConfig struct {
	MinProcedureLength int
}

// PipelineConfig sizes the page worker pool.
type PipelineConfig struct {
	Workers int
}

// OutputConfig describes the exported table.
type OutputConfig struct {
	Path      string
	Format    string // empty = from extension
	Delimiter string
}

// LogConfig selects log level and handler.
type LogConfig struct {
	Level  string
	Format string // json | text
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Render: RenderConfig{
			Pdftoppm:    getEnv("PDFTOPPM", "pdftoppm"),
			DPI:         getEnvAsInt("RENDER_DPI", 300),
			Grayscale:   getEnvAsBool("RENDER_GRAYSCALE", true),
			MaxPages:    getEnvAsInt("RENDER_MAX_PAGES", 0),
			ImageFormat: getEnv("RENDER_IMAGE_FORMAT", constants.PNG),
		},
		Preprocess: PreprocessConfig{
			Threshold:  getEnv("PREPROCESS_THRESHOLD", "adaptive"),
			Blur:       getEnv("PREPROCESS_BLUR", "gaussian"),
			Contrast:   getEnvAsFloat64("PREPROCESS_CONTRAST", 1.5),
			Brightness: getEnvAsFloat64("PREPROCESS_BRIGHTNESS", 0),
			BlockSize:  getEnvAsInt("PREPROCESS_BLOCK_SIZE", 15),
			C:          getEnvAsFloat64("PREPROCESS_C", 5),
			OpenSize:   getEnvAsInt("PREPROCESS_OPEN_SIZE", 2),
			DilateSize: getEnvAsInt("PREPROCESS_DILATE_SIZE", 1),
			Scale:      getEnvAsFloat64("PREPROCESS_SCALE", 1),
		},
		OCR: OCRConfig{
			Engine:        getEnv("OCR_ENGINE", "cli"),
			Tesseract:     getEnv("TESSERACT", "tesseract"),
			Languages:     getEnvAsList("OCR_LANGUAGES", []string{"por"}),
			PSM:           getEnvAsInt("OCR_PSM", 6),
			OEM:           getEnvAsInt("OCR_OEM", 3),
			Whitelist:     getEnv("OCR_WHITELIST", constants.DefaultCharWhitelist),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			PayloadFormat: getEnv("OCR_PAYLOAD_FORMAT", constants.PNG),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 0),
			CachePath:     getEnv("OCR_CACHE_PATH", ""),

			RetryMaxAttempts:    getEnvAsInt("OCR_RETRY_MAX_ATTEMPTS", 2),
			RetryInitialBackoff: getEnvAsDuration("OCR_RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
			RetryMaxBackoff:     getEnvAsDuration("OCR_RETRY_MAX_BACKOFF", 2*time.Second),
			BreakerEnabled:      getEnvAsBool("OCR_BREAKER_ENABLED", true),
			BreakerMinRequests:  getEnvAsInt("OCR_BREAKER_MIN_REQUESTS", 5),
			BreakerFailureRatio: getEnvAsFloat64("OCR_BREAKER_FAILURE_RATIO", 0.8),
			BreakerOpenTimeout:  getEnvAsDuration("OCR_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Extract: ExtractConfig{
			MinProcedureLength: getEnvAsInt("EXTRACT_MIN_PROCEDURE_LENGTH", 5),
		},
		Pipeline: PipelineConfig{
			Workers: getEnvAsInt("PIPELINE_WORKERS", runtime.NumCPU()),
		},
		Output: OutputConfig{
			Path:      getEnv("OUTPUT_PATH", constants.DefaultOutputPath),
			Format:    getEnv("OUTPUT_FORMAT", ""),
			Delimiter: getEnv("OUTPUT_DELIMITER", ","),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RulesFile: getEnv("RULES_FILE", ""),
	}
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits on '+' or ',' so OCR_LANGUAGES=por+eng works like the
// tesseract -l flag.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == '+' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("RENDER_DPI", c.Render.DPI, MinInt(72)).
		Field("RENDER_MAX_PAGES", c.Render.MaxPages, MinInt(0)).
		Field("RENDER_IMAGE_FORMAT", c.Render.ImageFormat, OneOf(constants.PNG, constants.TIFF)).
		Field("PDFTOPPM", c.Render.Pdftoppm, Required).
		Field("PREPROCESS_THRESHOLD", c.Preprocess.Threshold, OneOf("adaptive", "otsu")).
		Field("PREPROCESS_BLUR", c.Preprocess.Blur, OneOf("gaussian", "median", "none")).
		Field("PREPROCESS_CONTRAST", c.Preprocess.Contrast, Between(0.1, 10)).
		Field("PREPROCESS_BLOCK_SIZE", c.Preprocess.BlockSize, MinInt(3), Odd).
		Field("PREPROCESS_OPEN_SIZE", c.Preprocess.OpenSize, MinInt(1)).
		Field("PREPROCESS_DILATE_SIZE", c.Preprocess.DilateSize, MinInt(1)).
		Field("PREPROCESS_SCALE", c.Preprocess.Scale, Between(0.25, 4)).
		Field("OCR_ENGINE", c.OCR.Engine, OneOf("cli", "gosseract")).
		Field("OCR_LANGUAGES", c.OCR.Languages, Required).
		Field("OCR_PSM", c.OCR.PSM, MinInt(0)).
		Field("OCR_PAYLOAD_FORMAT", c.OCR.PayloadFormat, OneOf(constants.PNG, constants.TIFF)).
		Field("OCR_RETRY_MAX_ATTEMPTS", c.OCR.RetryMaxAttempts, MinInt(1)).
		Field("EXTRACT_MIN_PROCEDURE_LENGTH", c.Extract.MinProcedureLength, MinInt(0)).
		Field("PIPELINE_WORKERS", c.Pipeline.Workers, MinInt(1)).
		Field("OUTPUT_PATH", c.Output.Path, Required).
		Field("OUTPUT_DELIMITER", c.Output.Delimiter, OneOf(",", ";", "\t", "|"))
	if c.Output.Format != "" {
		v.Field("OUTPUT_FORMAT", c.Output.Format, OneOf(constants.CSV, constants.XLSX))
	}
	if c.OCR.Engine == "cli" {
		v.Field("TESSERACT", c.OCR.Tesseract, Required)
	}
	return v.Error()
}
