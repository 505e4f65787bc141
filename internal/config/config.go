package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

// Global configuration structure.
type Global struct {
	// MaxRows caps rows loaded from a file; 0 means unlimited.
	MaxRows      int    `mapstructure:"max_rows" yaml:"max_rows" validate:"gte=0"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format" validate:"oneof=markdown json"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
	ServerAddr   string `mapstructure:"server_addr" yaml:"server_addr" validate:"required,hostname_port"`

	// EDA tuning
	HistogramBins         int     `mapstructure:"histogram_bins" yaml:"histogram_bins" validate:"gt=0"`
	TopCategories         int     `mapstructure:"top_categories" yaml:"top_categories" validate:"gt=0"`
	RelationshipThreshold float64 `mapstructure:"relationship_threshold" yaml:"relationship_threshold" validate:"gte=0,lte=1"`
	ZScoreThreshold       float64 `mapstructure:"zscore_threshold" yaml:"zscore_threshold" validate:"gt=0"`
	IQRMultiplier         float64 `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier" validate:"gt=0"`

	// DecimalSeparator is "auto", "." (or "dot") or "," (or "comma").
	DecimalSeparator string `mapstructure:"decimal_separator" yaml:"decimal_separator" validate:"oneof=auto . 0x2C dot comma"`
}

var defaults = map[string]any{
	"max_rows":               100000,
	"output_format":          "markdown",
	"log_level":              "info",
	"log_format":             "text",
	"server_addr":            "127.0.0.1:8088",
	"histogram_bins":         10,
	"top_categories":         20,
	"relationship_threshold": 0.7,
	"zscore_threshold":       3.0,
	"iqr_multiplier":         1.5,
	"decimal_separator":      "auto",
}

// Keys lists every recognised configuration key in sorted order.
func Keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Default returns the built-in configuration without reading files or env.
func Default() *Global {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

var validate = validator.New()

// Validate checks field constraints and returns a single readable error.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Path resolves the config file location. If cfgFile is empty it is
// ~/.tabloom/config.yaml.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabloom", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path, creating the
// directory if necessary.
func Save(c *Global, cfgFile string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read first when present.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TABLOOM")
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		path, err := Path("")
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Set assigns one key from its string form, parsing numbers as needed.
func (c *Global) Set(key, value string) error {
	var err error
	switch key {
	case "max_rows":
		c.MaxRows, err = strconv.Atoi(value)
	case "output_format":
		c.OutputFormat = value
	case "log_level":
		c.LogLevel = value
	case "log_format":
		c.LogFormat = value
	case "server_addr":
		c.ServerAddr = value
	case "histogram_bins":
		c.HistogramBins, err = strconv.Atoi(value)
	case "top_categories":
		c.TopCategories, err = strconv.Atoi(value)
	case "relationship_threshold":
		c.RelationshipThreshold, err = strconv.ParseFloat(value, 64)
	case "zscore_threshold":
		c.ZScoreThreshold, err = strconv.ParseFloat(value, 64)
	case "iqr_multiplier":
		c.IQRMultiplier, err = strconv.ParseFloat(value, 64)
	case "decimal_separator":
		c.DecimalSeparator = strings.ToLower(strings.TrimSpace(value))
	default:
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	return nil
}
