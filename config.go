package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"ansible-output-formatter/editor"
	"ansible-output-formatter/highlight"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config holds application-wide configuration
type Config struct {
	// Display
	LanguageID string
	FoldDelay  time.Duration
	Style      string
	Color      string // auto, always or never

	// Input limits
	MaxInputBytes int64

	// Concurrency control
	MaxConcurrentFormats int // Maximum concurrent format calls on the MCP server (0 = unlimited)

	// Result cache (0 TTL = disabled)
	CacheTTL        time.Duration
	CacheMaxEntries int
}

// Validation bounds
const (
	maxFoldDelay = 5 * time.Second

	minInputBytes     = 1 << 10
	maxInputBytes     = 1 << 30
	defaultInputBytes = 32 << 20

	defaultMaxConcurrentFormats = 4
	maxConcurrentFormats        = 64

	maxCacheTTL = 24 * time.Hour
)

var validColorModes = []string{"auto", "always", "never"}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		LanguageID:           editor.DefaultLanguageID,
		FoldDelay:            editor.DefaultFoldDelay,
		Style:                highlight.DefaultStyle,
		Color:                "auto",
		MaxInputBytes:        defaultInputBytes,
		MaxConcurrentFormats: defaultMaxConcurrentFormats,
		CacheTTL:             0,
		CacheMaxEntries:      defaultToolCacheMaxEntries,
	}
}

// Validate checks that all values are within reasonable bounds.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LanguageID) == "" {
		return fmt.Errorf("language id must not be empty")
	}
	if c.FoldDelay < 0 || c.FoldDelay > maxFoldDelay {
		return fmt.Errorf("fold delay (%v) must be between 0 and %v", c.FoldDelay, maxFoldDelay)
	}
	if c.MaxInputBytes < minInputBytes || c.MaxInputBytes > maxInputBytes {
		return fmt.Errorf("max input bytes (%d) must be between %d and %d", c.MaxInputBytes, minInputBytes, maxInputBytes)
	}
	if c.MaxConcurrentFormats < 0 || c.MaxConcurrentFormats > maxConcurrentFormats {
		return fmt.Errorf("max concurrent formats (%d) must be between 0 and %d", c.MaxConcurrentFormats, maxConcurrentFormats)
	}
	if c.CacheTTL < 0 || c.CacheTTL > maxCacheTTL {
		return fmt.Errorf("cache TTL (%v) must be between 0 and %v", c.CacheTTL, maxCacheTTL)
	}
	if !isColorMode(c.Color) {
		return fmt.Errorf("color mode %q must be one of %v", c.Color, validColorModes)
	}
	return nil
}

func isColorMode(s string) bool {
	for _, m := range validColorModes {
		if s == m {
			return true
		}
	}
	return false
}

// fileConfig mirrors the YAML config file. Values stay untyped so "200"
// and 200 are both accepted.
type fileConfig struct {
	LanguageID      interface{} `yaml:"language_id"`
	FoldDelayMS     interface{} `yaml:"fold_delay_ms"`
	Style           interface{} `yaml:"style"`
	Color           interface{} `yaml:"color"`
	MaxInputBytes   interface{} `yaml:"max_input_bytes"`
	MaxConcurrent   interface{} `yaml:"max_concurrent"`
	CacheTTLSeconds interface{} `yaml:"cache_ttl"`
	CacheMaxEntries interface{} `yaml:"cache_max"`
}

// setting binds one configurable value to its env var and file field.
type setting struct {
	env   string
	file  func(*fileConfig) interface{}
	apply func(cfg *Config, name string, v interface{}) error
}

var settings = []setting{
	{
		env:  "FORMATTER_LANGUAGE_ID",
		file: func(f *fileConfig) interface{} { return f.LanguageID },
		apply: func(cfg *Config, name string, v interface{}) error {
			s, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			if s = strings.TrimSpace(s); s != "" {
				cfg.LanguageID = s
			}
			return nil
		},
	},
	{
		env:  "FORMATTER_FOLD_DELAY_MS",
		file: func(f *fileConfig) interface{} { return f.FoldDelayMS },
		apply: func(cfg *Config, name string, v interface{}) error {
			ms, err := cast.ToIntE(v)
			if err != nil {
				return err
			}
			cfg.FoldDelay = clampDuration(name, time.Duration(ms)*time.Millisecond, 0, maxFoldDelay)
			return nil
		},
	},
	{
		env:  "FORMATTER_STYLE",
		file: func(f *fileConfig) interface{} { return f.Style },
		apply: func(cfg *Config, name string, v interface{}) error {
			s, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			if s = strings.TrimSpace(s); s != "" {
				cfg.Style = s
			}
			return nil
		},
	},
	{
		env:  "FORMATTER_COLOR",
		file: func(f *fileConfig) interface{} { return f.Color },
		apply: func(cfg *Config, name string, v interface{}) error {
			s, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			s = strings.ToLower(strings.TrimSpace(s))
			if b, err := cast.ToBoolE(s); err == nil {
				// true/false/1/0 are accepted as always/never
				if b {
					s = "always"
				} else {
					s = "never"
				}
			}
			if !isColorMode(s) {
				return fmt.Errorf("unknown color mode %q", s)
			}
			cfg.Color = s
			return nil
		},
	},
	{
		env:  "FORMATTER_MAX_INPUT_BYTES",
		file: func(f *fileConfig) interface{} { return f.MaxInputBytes },
		apply: func(cfg *Config, name string, v interface{}) error {
			n, err := cast.ToInt64E(v)
			if err != nil {
				return err
			}
			switch {
			case n < minInputBytes:
				log.Printf("[CONFIG] %s (%d) below minimum (%d), clamping", name, n, minInputBytes)
				n = minInputBytes
			case n > maxInputBytes:
				log.Printf("[CONFIG] %s (%d) exceeds maximum (%d), clamping", name, n, maxInputBytes)
				n = maxInputBytes
			}
			cfg.MaxInputBytes = n
			return nil
		},
	},
	{
		env:  "FORMATTER_MAX_CONCURRENT",
		file: func(f *fileConfig) interface{} { return f.MaxConcurrent },
		apply: func(cfg *Config, name string, v interface{}) error {
			n, err := cast.ToIntE(v)
			if err != nil {
				return err
			}
			if n <= 0 {
				cfg.MaxConcurrentFormats = 0 // 0 means unlimited
				log.Printf("[CONFIG] %s set to unlimited", name)
			} else if n > maxConcurrentFormats {
				cfg.MaxConcurrentFormats = maxConcurrentFormats
				log.Printf("[CONFIG] %s (%d) exceeds maximum (%d), clamping", name, n, maxConcurrentFormats)
			} else {
				cfg.MaxConcurrentFormats = n
			}
			return nil
		},
	},
	{
		env:  "FORMATTER_CACHE_TTL",
		file: func(f *fileConfig) interface{} { return f.CacheTTLSeconds },
		apply: func(cfg *Config, name string, v interface{}) error {
			s, err := cast.ToIntE(v)
			if err != nil {
				return err
			}
			if s <= 0 {
				cfg.CacheTTL = 0
				return nil
			}
			cfg.CacheTTL = clampDuration(name, time.Duration(s)*time.Second, time.Second, maxCacheTTL)
			return nil
		},
	},
	{
		env:  "FORMATTER_CACHE_MAX",
		file: func(f *fileConfig) interface{} { return f.CacheMaxEntries },
		apply: func(cfg *Config, name string, v interface{}) error {
			n, err := cast.ToIntE(v)
			if err != nil {
				return err
			}
			if n > 0 {
				cfg.CacheMaxEntries = n
			}
			return nil
		},
	},
}

// clampDuration ensures a duration is within [min, max] and logs if clamped
func clampDuration(name string, value, minVal, maxVal time.Duration) time.Duration {
	if value < minVal {
		log.Printf("[CONFIG] %s (%v) below minimum (%v), clamping to minimum", name, value, minVal)
		return minVal
	}
	if value > maxVal {
		log.Printf("[CONFIG] %s (%v) exceeds maximum (%v), clamping to maximum", name, value, maxVal)
		return maxVal
	}
	return value
}

// LoadConfigFile loads configuration from defaults, then the YAML file at
// path (skipped when path is empty), then environment variables.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		for _, s := range settings {
			v := s.file(&fc)
			if v == nil {
				continue
			}
			if err := s.apply(cfg, s.env, v); err != nil {
				return nil, fmt.Errorf("config %s: %s: %w", path, s.env, err)
			}
		}
	}

	for _, s := range settings {
		v := os.Getenv(s.env)
		if v == "" {
			continue
		}
		if err := s.apply(cfg, s.env, v); err != nil {
			log.Printf("[CONFIG] ignoring %s=%q: %v", s.env, v, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads configuration from FORMATTER_CONFIG (if set) and the
// environment. Falls back to defaults when the file cannot be used.
func LoadConfig() *Config {
	cfg, err := LoadConfigFile(os.Getenv("FORMATTER_CONFIG"))
	if err != nil {
		log.Printf("[CONFIG] %v, using defaults", err)
		if cfg, err = LoadConfigFile(""); err != nil {
			return DefaultConfig()
		}
	}
	return cfg
}

// Global config instance (initialized lazily)
var (
	globalConfig *Config
	configLock   sync.RWMutex
)

// GetConfig returns the global configuration, initializing it lazily on first access.
// This allows tests to set environment variables before the first call to GetConfig().
func GetConfig() *Config {
	// Fast path: read lock for concurrent reads
	configLock.RLock()
	if globalConfig != nil {
		configLock.RUnlock()
		return globalConfig
	}
	configLock.RUnlock()

	// Slow path: write lock for initialization
	configLock.Lock()
	defer configLock.Unlock()

	// Double-check: another goroutine might have initialized while we were waiting
	if globalConfig != nil {
		return globalConfig
	}

	globalConfig = LoadConfig()
	return globalConfig
}

// UseConfigFile replaces the global configuration with one loaded from path.
func UseConfigFile(path string) error {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return err
	}
	configLock.Lock()
	globalConfig = cfg
	configLock.Unlock()
	return nil
}

// ResetConfig resets global configuration for testing purposes.
//
// NOTE: This function is designed for test scenarios only. It is not safe
// for concurrent use with GetConfig() outside of controlled test environments.
func ResetConfig() {
	configLock.Lock()
	defer configLock.Unlock()

	globalConfig = nil
	resetResultCache()

	formatLimiterLock.Lock()
	if formatLimiter != nil {
		formatLimiter.Stop()
		formatLimiter = nil
	}
	formatLimiterLock.Unlock()
}

// ============ Format Request Limiting (FIFO Queue) ============

// FIFOLimiter implements a fair, first-in-first-out rate limiter using channels.
// Requests are processed in the order they arrive, with bounded concurrency.
type FIFOLimiter struct {
	queue chan chan func() // queue of response channels, preserves FIFO order
	done  chan struct{}    // signals shutdown
}

// NewFIFOLimiter creates a new FIFO rate limiter with the given concurrency limit.
func NewFIFOLimiter(maxConcurrent int) *FIFOLimiter {
	l := &FIFOLimiter{
		queue: make(chan chan func(), 1024),
		done:  make(chan struct{}),
	}
	go l.dispatcher(maxConcurrent)
	return l
}

// dispatcher processes queued requests in FIFO order, respecting concurrency limits.
func (l *FIFOLimiter) dispatcher(maxConcurrent int) {
	sem := make(chan struct{}, maxConcurrent)

	for {
		select {
		case respChan := <-l.queue:
			// Acquire a slot (blocks if all slots are in use)
			sem <- struct{}{}
			// respChan is buffered, so this never blocks even if the waiter left
			respChan <- func() { <-sem }
		case <-l.done:
			return
		}
	}
}

// Acquire waits for a slot in FIFO order.
// Returns a release function that MUST be called when done, or an error if context was cancelled.
func (l *FIFOLimiter) Acquire(ctx context.Context) (func(), error) {
	respChan := make(chan func(), 1)

	select {
	case l.queue <- respChan:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case release := <-respChan:
		return release, nil
	case <-ctx.Done():
		// The entry stays queued; hand its slot straight back once granted.
		go func() {
			select {
			case release := <-respChan:
				release()
			case <-l.done:
			}
		}()
		return nil, ctx.Err()
	}
}

// Stop shuts down the dispatcher goroutine.
func (l *FIFOLimiter) Stop() {
	close(l.done)
}

var (
	formatLimiter     *FIFOLimiter
	formatLimiterLock sync.Mutex
)

// getFormatLimiter returns the global limiter, initializing it if needed.
// Returns nil if limiting is disabled (MaxConcurrentFormats == 0).
func getFormatLimiter() *FIFOLimiter {
	formatLimiterLock.Lock()
	defer formatLimiterLock.Unlock()

	if formatLimiter != nil {
		return formatLimiter
	}

	cfg := GetConfig()
	if cfg.MaxConcurrentFormats <= 0 {
		return nil
	}

	formatLimiter = NewFIFOLimiter(cfg.MaxConcurrentFormats)
	log.Printf("[RATE-LIMIT] FIFO limiter initialized with capacity %d", cfg.MaxConcurrentFormats)
	return formatLimiter
}

// AcquireFormatSlot blocks until a format call may run or ctx is done.
// The returned release function MUST be called when the call finishes.
func AcquireFormatSlot(ctx context.Context) (release func(), err error) {
	limiter := getFormatLimiter()
	if limiter == nil {
		return func() {}, nil
	}
	return limiter.Acquire(ctx)
}
