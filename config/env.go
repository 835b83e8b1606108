package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvFloat parses key as a float.
func EnvFloat(key string) (float64, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvList splits a comma separated value, dropping empty items.
func EnvList(key string) ([]string, bool) {
	raw, ok := EnvString(key)
	if !ok {
		return nil, false
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, len(out) > 0
}

// LoadEnv overlays environment variables onto cfg. Search credentials use
// the names the providers document; everything else is LEADSCOUT_ prefixed.
func LoadEnv(cfg *Config) error {
	if v, ok := EnvString("GOOGLE_API_KEY"); ok {
		cfg.GoogleAPIKey = v
	}
	if v, ok := EnvString("GOOGLE_CX"); ok {
		cfg.GoogleCX = v
	}
	if v, ok := EnvString("BRAVE_SEARCH_API_KEY"); ok {
		cfg.BraveAPIKey = v
	}
	if v, ok := EnvString("LEADSCOUT_SEARCH_PROVIDER"); ok {
		cfg.SearchProvider = strings.ToLower(v)
	}
	if v, ok := EnvString("LEADSCOUT_RELEVANCE_POLICY"); ok {
		cfg.RelevancePolicy = strings.ToLower(v)
	}
	if v, ok := EnvString("LEADSCOUT_SCAN_POLICY"); ok {
		cfg.ScanPolicy = strings.ToLower(v)
	}
	if v, ok := EnvString("LEADSCOUT_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := EnvString("LEADSCOUT_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := EnvList("LEADSCOUT_ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"LEADSCOUT_MAX_SUBPAGES", &cfg.MaxSubpages},
		{"LEADSCOUT_MAX_QUERIES", &cfg.MaxQueries},
		{"LEADSCOUT_MAX_RESULTS", &cfg.MaxResults},
		{"LEADSCOUT_PARALLEL", &cfg.Parallelism},
		{"LEADSCOUT_WORKERS", &cfg.Workers},
	}
	for _, item := range ints {
		value, ok, err := EnvInt(item.key)
		if err != nil {
			return err
		}
		if ok {
			*item.dst = value
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LEADSCOUT_TIMEOUT", &cfg.Timeout},
		{"LEADSCOUT_SEARCH_TIMEOUT", &cfg.SearchTimeout},
	}
	for _, item := range durations {
		value, ok, err := EnvDuration(item.key)
		if err != nil {
			return err
		}
		if ok {
			*item.dst = value
		}
	}

	if v, ok, err := EnvBool("LEADSCOUT_RENDER_JS"); err != nil {
		return err
	} else if ok {
		cfg.RenderJS = v
	}
	if v, ok, err := EnvFloat("LEADSCOUT_BULK_RATE"); err != nil {
		return err
	} else if ok {
		cfg.BulkRate = v
	}

	return nil
}
