package main

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_CacheTTLValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		expectError bool
		errorSubstr string
	}{
		{
			name:        "valid cache ttl from flag",
			args:        []string{"-cache-ttl", "5m"},
			expectError: false,
		},
		{
			name:        "zero cache ttl from flag",
			args:        []string{"-cache-ttl", "0s"},
			expectError: true,
			errorSubstr: "cache ttl must be positive",
		},
		{
			name:        "negative cache ttl from flag",
			args:        []string{"-cache-ttl", "-5m"},
			expectError: true,
			errorSubstr: "cache ttl must be positive",
		},
		{
			name:        "valid cache ttl from env",
			envVars:     map[string]string{"LATERAL_CACHE_TTL": "5m"},
			expectError: false,
		},
		{
			name:        "zero cache ttl from env",
			envVars:     map[string]string{"LATERAL_CACHE_TTL": "0s"},
			expectError: true,
			errorSubstr: "LATERAL_CACHE_TTL must be positive",
		},
		{
			name:        "invalid cache ttl format from flag",
			args:        []string{"-cache-ttl", "invalid"},
			expectError: true,
			errorSubstr: "invalid cache ttl",
		},
		{
			name:        "invalid cache ttl format from env",
			envVars:     map[string]string{"LATERAL_CACHE_TTL": "invalid"},
			expectError: true,
			errorSubstr: "invalid LATERAL_CACHE_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			cfg, err := LoadConfig(tt.args)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errorSubstr)
				} else if !strings.Contains(err.Error(), tt.errorSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errorSubstr, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				} else if cfg.CacheTTL <= 0 {
					t.Errorf("expected positive cache ttl, got %v", cfg.CacheTTL)
				}
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig([]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != defaultAddr {
		t.Errorf("expected default addr %s, got %s", defaultAddr, cfg.Addr)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("expected default cache ttl of 1h, got %v", cfg.CacheTTL)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("expected caching disabled by default, got %q", cfg.RedisAddr)
	}
	if !strings.HasSuffix(cfg.DBPath, "lateral.db") {
		t.Errorf("unexpected default db path %q", cfg.DBPath)
	}
}

func TestLoadConfig_AddrFromPortEnv(t *testing.T) {
	os.Setenv("LATERAL_PORT", "9999")
	defer os.Unsetenv("LATERAL_PORT")

	cfg, err := LoadConfig([]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q", cfg.Addr)
	}
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	os.Setenv("LATERAL_ADDR", "127.0.0.1:7000")
	defer os.Unsetenv("LATERAL_ADDR")

	cfg, err := LoadConfig([]string{"-addr", "127.0.0.1:7001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7001" {
		t.Errorf("addr = %q", cfg.Addr)
	}
}
