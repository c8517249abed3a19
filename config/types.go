package config

import (
	"fmt"
	"strings"
)

// Environment selects the deployment profile reported on every log line.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ParseEnvironment normalises the textual environment name. An empty value
// resolves to the development profile.
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "development", "dev":
		return EnvDevelopment, nil
	case "production", "prod":
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q", value)
	}
}

func (e Environment) String() string { return string(e) }
