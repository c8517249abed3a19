package config

import (
	"fmt"
	"strings"
)

func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if _, err := ParseEnvironment(cfg.Environment); err != nil {
		return err
	}
	return nil
}
