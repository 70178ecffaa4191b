package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"mspro-labs/stock-watch/internal/core/errx"
	"mspro-labs/stock-watch/internal/models"
)

// DefaultEndpoint is the availability document URL, templated with market
// code and locale.
const DefaultEndpoint = "https://reserve.cdn-apple.com/{market}/{locale}/reserve/iPhone/availability.json"

// AppConfig holds infrastructure config from environment variables.
type AppConfig struct {
	ConfigPath   string `envconfig:"CONFIG_PATH" default:"config.yaml"`
	StateBackend string `envconfig:"STATE_BACKEND" default:"file"`
	StatePath    string `envconfig:"STATE_PATH" default:"previous_state.json"`
	RedisURL     string `envconfig:"REDIS_URL"`
	RedisKey     string `envconfig:"REDIS_KEY" default:"stock-watch:snapshot"`
	LogEnv       string `envconfig:"LOG_ENV" default:"development"`

	// Secrets are kept out of the YAML file.
	SenderPassword string `envconfig:"SENDER_PASSWORD"`
	TelegramToken  string `envconfig:"TELEGRAM_TOKEN"`
}

// Watch is the static description of what to poll and whom to tell.
type Watch struct {
	Country    string   `yaml:"country"`
	Stores     []string `yaml:"stores"`
	Products   []string `yaml:"products"`
	Recipients []string `yaml:"recipients"`
	Sender     string   `yaml:"sender"`
	Password   string   `yaml:"-"`

	SMTP      SMTP     `yaml:"smtp"`
	Telegram  Telegram `yaml:"telegram"`
	Transport string   `yaml:"transport"`
	Endpoint  string   `yaml:"endpoint"`

	// BrowserTimeout bounds page load for the browser transport, e.g. "45s".
	BrowserTimeout time.Duration `yaml:"browser_timeout"`
}

type SMTP struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Telegram struct {
	Token   string  `yaml:"-"`
	ChatIDs []int64 `yaml:"chat_ids"`
	// APIURL points at a self-hosted Bot API server; empty means api.telegram.org.
	APIURL string `yaml:"api_url"`
}

// GetAppConfig loads an optional .env file and then reads the environment.
func GetAppConfig() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, errx.Config("load .env", err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, errx.Config("read environment", err)
	}
	return cfg, nil
}

// LoadWatch reads the YAML watch definition, applies defaults and the secrets
// from app, and validates the result.
func LoadWatch(path string, app AppConfig) (Watch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Watch{}, errx.Config("read config", fmt.Errorf("failed to read config file at '%s': %w", path, err))
	}
	var w Watch
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Watch{}, errx.Config("parse config", fmt.Errorf("failed to parse YAML config: %w", err))
	}
	w.Password = app.SenderPassword
	w.Telegram.Token = app.TelegramToken
	w.applyDefaults()
	if err := w.Validate(); err != nil {
		return Watch{}, err
	}
	return w, nil
}

func (w *Watch) applyDefaults() {
	w.Country = strings.ToUpper(strings.TrimSpace(w.Country))
	if w.SMTP.Host == "" {
		w.SMTP.Host = "smtp.gmail.com"
	}
	if w.SMTP.Port == 0 {
		w.SMTP.Port = 587
	}
	if w.Transport == "" {
		w.Transport = "http"
	}
	if w.Endpoint == "" {
		w.Endpoint = DefaultEndpoint
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (w Watch) Validate() error {
	if _, err := w.Market(); err != nil {
		return err
	}
	if len(w.Stores) == 0 {
		return errx.Config("validate", errors.New("at least one store is required"))
	}
	if len(w.Products) == 0 {
		return errx.Config("validate", errors.New("at least one product is required"))
	}
	if w.Transport != "http" && w.Transport != "browser" {
		return errx.Config("validate", fmt.Errorf("unknown transport %q", w.Transport))
	}
	if len(w.Telegram.ChatIDs) > 0 && strings.TrimSpace(w.Telegram.Token) == "" {
		return errx.Config("validate", errors.New("telegram.chat_ids is set but TELEGRAM_TOKEN is empty"))
	}
	if w.BrowserTimeout < 0 {
		return errx.Config("validate", fmt.Errorf("browser_timeout must not be negative, got %s", w.BrowserTimeout))
	}
	return nil
}

// Market resolves the configured country code.
func (w Watch) Market() (models.Market, error) {
	m, ok := models.Countries[w.Country]
	if !ok {
		return models.Market{}, errx.Config("lookup country", fmt.Errorf("unknown country %q (known: %s)", w.Country, strings.Join(models.CountryCodes(), ", ")))
	}
	return m, nil
}

// URL expands the endpoint template for the configured country.
func (w Watch) URL() (string, error) {
	m, err := w.Market()
	if err != nil {
		return "", err
	}
	endpoint := w.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	r := strings.NewReplacer("{market}", m.Code, "{locale}", m.Locale)
	return r.Replace(endpoint), nil
}

func (w Watch) StoreIDs() []models.StoreID {
	ids := make([]models.StoreID, len(w.Stores))
	for i, s := range w.Stores {
		ids[i] = models.StoreID(s)
	}
	return ids
}

func (w Watch) ProductIDs() []models.ProductID {
	ids := make([]models.ProductID, len(w.Products))
	for i, p := range w.Products {
		ids[i] = models.ProductID(p)
	}
	return ids
}
