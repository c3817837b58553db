package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultAddr     = "127.0.0.1:8090"
	defaultCacheTTL = time.Hour
)

type Config struct {
	DBPath    string
	Addr      string
	RedisAddr string
	CacheTTL  time.Duration
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	dbPath := envOrDefault("LATERAL_DB_PATH", filepath.Join(cwd, "lateral.db"))
	addr := addrFromEnv(defaultAddr)
	redisAddr := os.Getenv("LATERAL_REDIS_ADDR")
	cacheTTL := defaultCacheTTL
	if ttlEnv := os.Getenv("LATERAL_CACHE_TTL"); ttlEnv != "" {
		parsed, err := time.ParseDuration(ttlEnv)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LATERAL_CACHE_TTL: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("LATERAL_CACHE_TTL must be positive")
		}
		cacheTTL = parsed
	}

	flagSet := flag.NewFlagSet("lateral-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagRedis := flagSet.String("redis", redisAddr, "Redis address for the result cache (empty disables caching)")
	flagCacheTTL := flagSet.String("cache-ttl", cacheTTL.String(), "result cache entry lifetime")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	cacheTTLParsed, err := time.ParseDuration(*flagCacheTTL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid cache ttl: %w", err)
	}
	if cacheTTLParsed <= 0 {
		return Config{}, errors.New("cache ttl must be positive")
	}

	config := Config{
		DBPath:    resolvePath(*flagDB, cwd),
		Addr:      strings.TrimSpace(*flagAddr),
		RedisAddr: strings.TrimSpace(*flagRedis),
		CacheTTL:  cacheTTLParsed,
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}
	if config.DBPath == "" {
		return Config{}, errors.New("db path cannot be empty")
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("LATERAL_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("LATERAL_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
