package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	CaseLink   CaseLinkConfig   `yaml:"caselink" mapstructure:"caselink"`
	Docket     DocketConfig     `yaml:"docket" mapstructure:"docket"`
	Documents  DocumentsConfig  `yaml:"documents" mapstructure:"documents"`
	PDF        PDFConfig        `yaml:"pdf" mapstructure:"pdf"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CaseLinkConfig holds portal credentials and pacing.
type CaseLinkConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Username       string  `yaml:"username" mapstructure:"username"`
	Password       string  `yaml:"password" mapstructure:"password"`
	LoginWaitSecs  float64 `yaml:"login_wait_secs" mapstructure:"login_wait_secs"`
	SearchWaitSecs float64 `yaml:"search_wait_secs" mapstructure:"search_wait_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DocketConfig configures the sessions docket site.
type DocketConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DocumentsConfig configures pleading document fetching.
type DocumentsConfig struct {
	DataDir        string  `yaml:"data_dir" mapstructure:"data_dir"`
	Record         bool    `yaml:"record" mapstructure:"record"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// PDFConfig configures text extraction from pleading PDFs.
type PDFConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfToHTMLPath string `yaml:"pdftohtml_path" mapstructure:"pdftohtml_path"`
	PdfToPPMPath  string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	OCRMaxPages   int    `yaml:"ocr_max_pages" mapstructure:"ocr_max_pages"`
}

// ResilienceConfig tunes retries and the portal circuit breaker.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RDC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy deployments export these unprefixed names.
	_ = v.BindEnv("caselink.username", "RDC_CASELINK_USERNAME", "CASELINK_USERNAME")
	_ = v.BindEnv("caselink.password", "RDC_CASELINK_PASSWORD", "CASELINK_PASSWORD")
	_ = v.BindEnv("caselink.login_wait_secs", "RDC_CASELINK_LOGIN_WAIT_SECS", "LOGIN_WAIT")
	_ = v.BindEnv("caselink.search_wait_secs", "RDC_CASELINK_SEARCH_WAIT_SECS", "SEARCH_WAIT")
	_ = v.BindEnv("store.database_url", "RDC_STORE_DATABASE_URL", "SQLALCHEMY_DATABASE_URI")
	_ = v.BindEnv("documents.data_dir", "RDC_DOCUMENTS_DATA_DIR", "DATA_DIR")

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("caselink.base_url", "https://caselink.nashville.gov")
	v.SetDefault("caselink.login_wait_secs", 1.5)
	v.SetDefault("caselink.search_wait_secs", 1.5)
	v.SetDefault("caselink.requests_per_sec", 2.0)
	v.SetDefault("caselink.timeout_secs", 105)
	v.SetDefault("docket.base_url", "https://circuitclerk.nashville.gov")
	v.SetDefault("documents.data_dir", "./data")
	v.SetDefault("documents.requests_per_sec", 2.0)
	v.SetDefault("documents.concurrency", 4)
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("pdf.pdftohtml_path", "pdftohtml")
	v.SetDefault("pdf.pdftoppm_path", "pdftoppm")
	v.SetDefault("pdf.tesseract_path", "tesseract")
	v.SetDefault("pdf.ocr_max_pages", 6)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 30000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command mode needs are present.
// Modes: "scrape" (portal login + store), "documents" (store only),
// "docket" (docket site + store).
func (c *Config) Validate(mode string) error {
	var problems []string

	requireStore := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "scrape":
		requireStore()
		if c.CaseLink.Username == "" {
			problems = append(problems, "caselink.username is required")
		}
		if c.CaseLink.Password == "" {
			problems = append(problems, "caselink.password is required")
		}
	case "documents":
		requireStore()
		if c.Documents.Concurrency < 1 || c.Documents.Concurrency > 32 {
			problems = append(problems, "documents.concurrency must be between 1 and 32")
		}
	case "docket":
		requireStore()
		if c.Docket.BaseURL == "" {
			problems = append(problems, "docket.base_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
