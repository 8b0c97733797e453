package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBindAddr         = "0.0.0.0"
	DefaultPort             = 3000
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultSessionCountMode = "first_event"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL            string            `yaml:"dbURL"`
	BindAddr         string            `yaml:"bind"`
	Port             int               `yaml:"port"`
	LogLevel         string            `yaml:"logLevel"`
	LogFormat        string            `yaml:"logFormat"`
	APIKeys          map[string]string `yaml:"apiKeys,omitempty"` // apiKey -> client name
	CORSOrigins      []string          `yaml:"corsOrigins,omitempty"`
	SessionCountMode string            `yaml:"sessionCountMode"`
}

func Default() Config {
	return Config{
		BindAddr:         DefaultBindAddr,
		Port:             DefaultPort,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		APIKeys:          map[string]string{},
		CORSOrigins:      []string{"*"},
		SessionCountMode: DefaultSessionCountMode,
	}
}

// Load reads the optional YAML file named by CONFIG_FILE, then applies
// environment variables on top of it.
// API_KEYS format: "name1:key1,name2:key2"
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
}

// LoadFile is Load with an explicit config file path ("" for none).
func LoadFile(configPath string) (Config, error) {
	cfg := Default()

	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
		if cfg.APIKeys == nil {
			cfg.APIKeys = map[string]string{}
		}
	}

	if v := strings.TrimSpace(os.Getenv("DB_URL")); v != "" {
		cfg.DBURL = v
	} else if v := strings.TrimSpace(os.Getenv("MONGO_URL")); v != "" && strings.TrimSpace(cfg.DBURL) == "" {
		cfg.DBURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BIND_ADDR")); v != "" {
		cfg.BindAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse PORT=%q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("API_KEYS")); v != "" {
		keys, err := parseAPIKeys(v)
		if err != nil {
			return cfg, err
		}
		cfg.APIKeys = keys
	}
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_COUNT_MODE")); v != "" {
		cfg.SessionCountMode = v
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.SessionCountMode = strings.ToLower(strings.TrimSpace(cfg.SessionCountMode))

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DBURL) == "" {
		return errors.New("DB_URL required")
	}
	if strings.TrimSpace(c.BindAddr) == "" {
		return errors.New("bind address is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("port must be in range 0..65535")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q (want json or text)", c.LogFormat)
	}
	switch c.SessionCountMode {
	case "first_event", "per_type":
	default:
		return fmt.Errorf("invalid session count mode %q (want first_event or per_type)", c.SessionCountMode)
	}
	for _, origin := range c.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("invalid CORS origin %q (want * or an http(s) origin)", origin)
		}
	}
	return nil
}

// AllowAllOrigins reports whether CORS should accept any origin.
func (c Config) AllowAllOrigins() bool {
	if len(c.CORSOrigins) == 0 {
		return true
	}
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

// AuthEnabled reports whether read endpoints require an API key.
func (c Config) AuthEnabled() bool {
	return len(c.APIKeys) > 0
}

func parseAPIKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`API_KEYS must be "name:key,name:key"`)
		}
		name := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if name == "" || key == "" {
			return nil, errors.New(`API_KEYS must be "name:key,name:key"`)
		}
		keys[key] = name
	}
	return keys, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
