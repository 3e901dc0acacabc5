package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	msg := fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
	if len(ve.Suggestions) > 0 {
		msg += " (" + strings.Join(ve.Suggestions, "; ") + ")"
	}

	return msg
}

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validatePathsConfig(&config.Paths); err != nil {
		return fmt.Errorf("paths config: %w", err)
	}

	if err := validateDevConfig(&config.Dev); err != nil {
		return fmt.Errorf("dev config: %w", err)
	}

	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// 0 lets the OS assign a port, which tests rely on
	if config.Port < 0 || config.Port > 65535 {
		return &ValidationError{
			Field:       "server.port",
			Value:       config.Port,
			Message:     fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{"use 3000 for development"},
		}
	}

	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return &ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: "host contains dangerous character: " + char,
			}
		}
	}

	switch config.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return &ValidationError{
			Field:       "server.environment",
			Value:       config.Environment,
			Message:     fmt.Sprintf("unknown environment %q", config.Environment),
			Suggestions: []string{EnvDevelopment, EnvProduction},
		}
	}

	return nil
}

func validatePathsConfig(config *PathsConfig) error {
	paths := map[string]string{
		"paths.pages":  config.Pages,
		"paths.api":    config.API,
		"paths.public": config.Public,
		"paths.build":  config.Build,
	}
	for field, path := range paths {
		if err := validatePath(path); err != nil {
			return &ValidationError{Field: field, Value: path, Message: err.Error()}
		}
	}

	if !strings.HasPrefix(config.ClientAssetsPrefix, "/") {
		return &ValidationError{
			Field:       "paths.client_assets_prefix",
			Value:       config.ClientAssetsPrefix,
			Message:     "prefix must start with /",
			Suggestions: []string{"/assets"},
		}
	}

	return nil
}

func validateDevConfig(config *DevConfig) error {
	if config.HotReloadPort <= 0 || config.HotReloadPort > 65535 {
		return &ValidationError{
			Field:   "dev.hot_reload_port",
			Value:   config.HotReloadPort,
			Message: fmt.Sprintf("port %d is not in valid range 1-65535", config.HotReloadPort),
		}
	}

	if config.MaxReconnectAttempts <= 0 {
		return &ValidationError{
			Field:       "dev.max_reconnect_attempts",
			Value:       config.MaxReconnectAttempts,
			Message:     "reconnect ceiling must be positive",
			Suggestions: []string{"use 10"},
		}
	}

	if config.ReconnectInterval <= 0 {
		return &ValidationError{
			Field:   "dev.reconnect_interval",
			Value:   config.ReconnectInterval,
			Message: "reconnect interval must be positive",
		}
	}

	if config.SettleDelay < 0 || config.Debounce < 0 {
		return &ValidationError{
			Field:   "dev",
			Message: "delays must not be negative",
		}
	}

	return nil
}

// validatePath validates a project-relative directory
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
