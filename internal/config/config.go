package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 汇总服务端与客户端运行时所需的全部配置。
type Config struct {
	ContentPath      string
	Addr             string
	DiscoveryPort    int
	MetricsAddr      string
	DBPath           string
	ManageFirewall   bool
	LogLevel         string
	LogFormat        string
	SearchMaxResults int
	MaxTextBytes     int64
	DiscoveryTimeout time.Duration
	ScanTimeout      time.Duration
}

// Load 从环境变量构建配置，并提供合理的默认值。
func Load() (*Config, error) {
	devMode := boolEnv("DEV_MODE", false)
	defaultLevel, defaultFormat := "info", "json"
	if devMode {
		defaultLevel, defaultFormat = "debug", "console"
	}

	cfg := &Config{
		ContentPath:      getenv("CONTENT_PATH", ""),
		Addr:             getenv("LOCALBROWSER_HTTP_ADDR", ":5000"),
		DiscoveryPort:    intEnv("LOCALBROWSER_DISCOVERY_PORT", 41234),
		MetricsAddr:      getenv("LOCALBROWSER_METRICS_ADDR", ""),
		DBPath:           getenv("LOCALBROWSER_DB_PATH", "data/localbrowser.db"),
		ManageFirewall:   boolEnv("LOCALBROWSER_MANAGE_FIREWALL", true),
		LogLevel:         getenv("LOCALBROWSER_LOG_LEVEL", defaultLevel),
		LogFormat:        getenv("LOCALBROWSER_LOG_FORMAT", defaultFormat),
		SearchMaxResults: intEnv("LOCALBROWSER_SEARCH_MAX_RESULTS", 0),
		MaxTextBytes:     int64Env("LOCALBROWSER_MAX_TEXT_BYTES", 0),
		DiscoveryTimeout: durationEnv("LOCALBROWSER_DISCOVERY_TIMEOUT", 2*time.Second),
		ScanTimeout:      durationEnv("LOCALBROWSER_SCAN_TIMEOUT", 2*time.Second),
	}

	if cfg.DiscoveryPort <= 0 || cfg.DiscoveryPort > 65535 {
		return nil, fmt.Errorf("discovery port out of range: %d", cfg.DiscoveryPort)
	}
	if _, err := cfg.HTTPPort(); err != nil {
		return nil, err
	}
	if cfg.SearchMaxResults < 0 {
		return nil, fmt.Errorf("search max results must not be negative")
	}
	if cfg.MaxTextBytes < 0 {
		return nil, fmt.Errorf("max text bytes must not be negative")
	}
	if cfg.DiscoveryTimeout <= 0 {
		return nil, fmt.Errorf("discovery timeout must be positive")
	}

	return cfg, nil
}

// HTTPPort 从监听地址中解析出 TCP 端口，用于防火墙规则与客户端拼接地址。
func (c *Config) HTTPPort() (int, error) {
	_, portStr, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return 0, fmt.Errorf("invalid http addr %q: %w", c.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid http port in %q", c.Addr)
	}
	return port, nil
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func intEnv(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func int64Env(key string, fallback int64) int64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func boolEnv(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
