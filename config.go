package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/1Crazymoney/ilp-backend-crypto/service/coincap"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

type Config struct {
	HTTPPort   string          `yaml:"httpPort" env:"HTTP_PORT"`
	LogLevel   string          `yaml:"logLevel" env:"LOG_LEVEL"`
	Spread     string          `yaml:"spread" env:"SPREAD"`
	DBUsername string          `yaml:"dbUsername" env:"DB_USERNAME"`
	DBPassword string          `yaml:"dbPassword" env:"DB_PASSWORD"`
	DBPort     string          `yaml:"dbPort" env:"DB_PORT"`
	DBHost     string          `yaml:"dbHost" env:"DB_HOST"`
	DBName     string          `yaml:"dbName" env:"DB_NAME"`
	Coincap    coincap.Config  `yaml:"coincap"`
	Accounts   []model.Account `yaml:"accounts"`
}

// SpreadValue parses the configured spread, empty means zero
func (c Config) SpreadValue() (decimal.Decimal, error) {
	if c.Spread == "" {
		return decimal.Zero, nil
	}

	spread, err := decimal.NewFromString(c.Spread)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid spread %q: %w", c.Spread, err)
	}

	return spread, nil
}

// loadConfig reads the yaml configuration at path,
// then applies environment overrides, including those from .env
func loadConfig(path string) (Config, error) {
	cfg := Config{HTTPPort: ":3000", LogLevel: "info"}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = defaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	// variables that are set override the file, unset ones keep it
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	return cfg, nil
}
