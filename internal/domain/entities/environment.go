package entities

import (
	"fmt"
	"strings"
)

// Environment selects which Circle deployment and which credential a client uses
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// Environments returns every environment in the order the harness runs them
func Environments() []Environment {
	return []Environment{EnvironmentSandbox, EnvironmentProduction}
}

// ParseEnvironment converts a string to an Environment
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case EnvironmentSandbox:
		return EnvironmentSandbox, nil
	case EnvironmentProduction:
		return EnvironmentProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

// IsValid checks if the environment is one of the known deployments
func (e Environment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

func (e Environment) String() string {
	return string(e)
}

// Credentials holds one Circle API key per environment
type Credentials struct {
	SandboxAPIKey    string
	ProductionAPIKey string
}

// For returns the API key for the given environment
func (c Credentials) For(env Environment) string {
	switch env {
	case EnvironmentSandbox:
		return c.SandboxAPIKey
	case EnvironmentProduction:
		return c.ProductionAPIKey
	default:
		return ""
	}
}
