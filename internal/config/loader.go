package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the shipper client.
type Config struct {
	APIBaseURL     string
	StateDSN       string
	StateSecret    string
	ProcessorKey   string
	DebounceWindow time.Duration
	RequestTimeout time.Duration
}

// Load parses configuration values from the current process environment.
//
// Optional fields receive defaults; required values are validated and
// reported together so a misconfigured environment surfaces in one error.
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:     "http://localhost:8000/api",
		StateDSN:       "file:shiporbit.db?_foreign_keys=on",
		DebounceWindow: time.Second,
		RequestTimeout: 15 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if base := strings.TrimSpace(os.Getenv("SHIPORBIT_API_URL")); base != "" {
		cfg.APIBaseURL = strings.TrimRight(base, "/")
	}

	if dsn := strings.TrimSpace(os.Getenv("SHIPORBIT_STATE_DSN")); dsn != "" {
		cfg.StateDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("SHIPORBIT_STATE_SECRET")); secret == "" {
		missing = append(missing, "SHIPORBIT_STATE_SECRET")
	} else {
		cfg.StateSecret = secret
	}

	// Publishable key for the card processor. Only the checkout flow needs
	// it, so it stays optional here and is checked at point of use.
	cfg.ProcessorKey = strings.TrimSpace(os.Getenv("SHIPORBIT_PROCESSOR_KEY"))

	if windowValue := strings.TrimSpace(os.Getenv("SHIPORBIT_DEBOUNCE_WINDOW")); windowValue != "" {
		window, err := time.ParseDuration(windowValue)
		if err != nil || window <= 0 {
			invalid = append(invalid, "SHIPORBIT_DEBOUNCE_WINDOW")
		} else {
			cfg.DebounceWindow = window
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("SHIPORBIT_REQUEST_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SHIPORBIT_REQUEST_TIMEOUT")
		} else {
			cfg.RequestTimeout = timeout
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
