// Package settings holds the flat runtime configuration of the schema
// synthesis layer: pagination defaults, response cleaning, result caching,
// and the per-descriptor resolver override hooks.
//
// Settings are rebuilt from defaults plus overrides on every change
// notification, so a reload never leaves stale values behind.
package settings

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/graphql-go/graphql"
	"gopkg.in/yaml.v3"
)

// Pagination class names accepted by DefaultPaginationClass.
const (
	PaginationLimitOffset = "LimitOffset"
	PaginationPageNumber  = "PageNumber"
)

// Settings is the effective configuration. Scalar options load from YAML;
// resolver hooks are set programmatically.
type Settings struct {
	// DefaultPaginationClass names the pagination strategy applied when a
	// list type declares none. Empty disables default pagination.
	DefaultPaginationClass string `yaml:"default_pagination_class"`

	// DefaultPageSize is the window size applied when the client omits a
	// limit or page size. Zero means no default window.
	DefaultPageSize int `yaml:"default_page_size"`

	// MaxPageSize caps client-requested window sizes. Zero means no cap.
	MaxPageSize int `yaml:"max_page_size"`

	// CleanResponse strips null/empty members from responses when the
	// deployment applies modelgraph.CleanResponse to execution results.
	CleanResponse bool `yaml:"clean_response"`

	// CacheActive enables caching of list-resolver results.
	CacheActive bool `yaml:"cache_active"`

	// CacheTimeout is the TTL of cached resolver results.
	CacheTimeout time.Duration `yaml:"cache_timeout"`

	// Resolver override hooks, one per field-descriptor kind. When set,
	// the field binds the hook instead of its built-in resolver.
	ObjectFieldResolver             graphql.FieldResolveFn `yaml:"-"`
	ListFieldResolver               graphql.FieldResolveFn `yaml:"-"`
	FilterListFieldResolver         graphql.FieldResolveFn `yaml:"-"`
	FilterPaginateListFieldResolver graphql.FieldResolveFn `yaml:"-"`
	ListObjectFieldResolver         graphql.FieldResolveFn `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	return Settings{
		CacheTimeout: 5 * time.Minute,
	}
}

var (
	mu      sync.RWMutex
	current = Defaults()
	subs    []func(Settings)
)

// Current returns the effective global settings.
func Current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Replace swaps the effective global settings and notifies subscribers.
func Replace(s Settings) {
	mu.Lock()
	current = s
	notify := append([]func(Settings){}, subs...)
	mu.Unlock()
	for _, fn := range notify {
		fn(s)
	}
}

// Reset restores the built-in defaults. Intended for test isolation.
func Reset() {
	Replace(Defaults())
}

// Subscribe registers a callback invoked after every settings change.
func Subscribe(fn func(Settings)) {
	mu.Lock()
	subs = append(subs, fn)
	mu.Unlock()
}

// fileOverrides mirrors Settings for YAML decoding, keeping absent keys
// distinguishable from zero values.
type fileOverrides struct {
	DefaultPaginationClass *string `yaml:"default_pagination_class"`
	DefaultPageSize        *int    `yaml:"default_page_size"`
	MaxPageSize            *int    `yaml:"max_page_size"`
	CleanResponse          *bool   `yaml:"clean_response"`
	CacheActive            *bool   `yaml:"cache_active"`
	CacheTimeoutSeconds    *int    `yaml:"cache_timeout_seconds"`
}

// Load builds a Settings from defaults plus the overrides in a YAML file.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Settings from defaults plus YAML overrides.
func Parse(data []byte) (Settings, error) {
	var ov fileOverrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return Settings{}, fmt.Errorf("settings: parse: %w", err)
	}
	s := Defaults()
	if ov.DefaultPaginationClass != nil {
		s.DefaultPaginationClass = *ov.DefaultPaginationClass
	}
	if ov.DefaultPageSize != nil {
		s.DefaultPageSize = *ov.DefaultPageSize
	}
	if ov.MaxPageSize != nil {
		s.MaxPageSize = *ov.MaxPageSize
	}
	if ov.CleanResponse != nil {
		s.CleanResponse = *ov.CleanResponse
	}
	if ov.CacheActive != nil {
		s.CacheActive = *ov.CacheActive
	}
	if ov.CacheTimeoutSeconds != nil {
		s.CacheTimeout = time.Duration(*ov.CacheTimeoutSeconds) * time.Second
	}
	return s, nil
}

// Watch loads the settings file, replaces the globals, and keeps them in
// sync with file changes until the returned stop function is called.
// Hook fields survive reloads: they carry over from the settings in effect
// when the change fires.
func Watch(path string) (stop func() error, err error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	carryHooks(&s)
	Replace(s)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("settings: watch: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("settings: watch %q: %w", path, err)
	}
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := reload(path)
				if err != nil {
					continue // keep the last good settings
				}
				carryHooks(&reloaded)
				Replace(reloaded)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher.Close, nil
}

// reload re-reads the settings file for a watch event. Editors and the
// os.WriteFile path save by truncate-then-write, so the first Write event
// can observe an empty file; that is a save in progress, not a request to
// drop every override.
func reload(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: reload %q: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Settings{}, fmt.Errorf("settings: reload %q: file is empty", path)
	}
	return Parse(data)
}

func carryHooks(s *Settings) {
	prev := Current()
	s.ObjectFieldResolver = prev.ObjectFieldResolver
	s.ListFieldResolver = prev.ListFieldResolver
	s.FilterListFieldResolver = prev.FilterListFieldResolver
	s.FilterPaginateListFieldResolver = prev.FilterPaginateListFieldResolver
	s.ListObjectFieldResolver = prev.ListObjectFieldResolver
}
