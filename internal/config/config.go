package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string  `yaml:"env" env-default:"local" env:"ENV"`
	LogFile string  `yaml:"log_file" env:"LOG_FILE"`
	Network Network `yaml:"network"`
	Journal Journal `yaml:"journal"`
	Metrics Metrics `yaml:"metrics"`
}

type Network struct {
	Identifier string `yaml:"identifier" env:"VALKYRIE_IDENTIFIER" env-default:"valkyrie"`
	Address    string `yaml:"address" env:"VALKYRIE_ADDRESS" env-default:"239.199.28.1"`
	Port       int    `yaml:"port" env:"VALKYRIE_PORT" env-default:"6781"`
	Interface  string `yaml:"interface" env:"VALKYRIE_INTERFACE"`

	// Join and leave announcements are sent unless disabled.
	DisableAnnounce bool `yaml:"disable_announce" env:"VALKYRIE_DISABLE_ANNOUNCE"`
}

type Journal struct {
	// Empty disables journaling.
	Path string `yaml:"path" env:"VALKYRIE_JOURNAL"`
}

type Metrics struct {
	// Empty disables the HTTP exporter.
	Address string `yaml:"address" env:"VALKYRIE_METRICS_ADDR"`
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configPath when given, otherwise only the environment.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from env: %w", err)
		}
		return &cfg, nil
	}

	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return &cfg, nil
}

// FetchConfigPath picks the config path.
// Priority: flag > env.
func FetchConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CONFIG_PATH")
}
