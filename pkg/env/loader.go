// Package env loads .env files holding test data such as
// credentials, so that tables can reference them as ${VAR}
// without committing them.
package env

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Loader defines the interface for environment variable management.
type Loader interface {
	// Load reads environment variables from a .env file.
	Load(path string) error
	// Get retrieves an environment variable value.
	Get(key string) string
	// GetRequired retrieves a required environment variable or returns error.
	GetRequired(key string) (string, error)
	// GetWithDefault retrieves an environment variable with a default fallback.
	GetWithDefault(key, defaultValue string) string
	// Apply exports loaded values into the process environment.
	Apply() error
	// Secrets returns the loaded values whose keys look secret.
	Secrets() []string
	// All returns all loaded environment variables.
	All() map[string]string
}

// DefaultSecretMarkers are the key substrings that mark a value
// as secret.
var DefaultSecretMarkers = []string{
	"PASSWORD", "PASSWD", "SECRET", "TOKEN", "API_KEY",
}

// DefaultLoader implements Loader with .env file support.
type DefaultLoader struct {
	mu      sync.RWMutex
	vars    map[string]string
	loaded  bool
	markers []string
}

// NewLoader creates a DefaultLoader using DefaultSecretMarkers.
func NewLoader() *DefaultLoader {
	return NewLoaderWithMarkers(DefaultSecretMarkers...)
}

// NewLoaderWithMarkers creates a loader that treats keys
// containing any of markers, ignoring case, as secret.
func NewLoaderWithMarkers(markers ...string) *DefaultLoader {
	upper := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			upper = append(upper, m)
		}
	}
	return &DefaultLoader{
		vars:    make(map[string]string),
		markers: upper,
	}
}

// Load parses KEY=VALUE lines. Blank lines, comments and lines
// without "=" are skipped; an "export " prefix and surrounding
// quotes are removed.
func (l *DefaultLoader) Load(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open env file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		l.vars[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	l.loaded = true
	return nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// Loaded reports whether a file was loaded successfully.
func (l *DefaultLoader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Get returns the process value of key, falling back to the
// loaded file.
func (l *DefaultLoader) Get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.vars[key]
}

func (l *DefaultLoader) GetRequired(key string) (string, error) {
	v := l.Get(key)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return v, nil
}

func (l *DefaultLoader) GetWithDefault(key, defaultValue string) string {
	if v := l.Get(key); v != "" {
		return v
	}
	return defaultValue
}

// Apply sets every loaded variable that is not already present
// in the process environment.
func (l *DefaultLoader) Apply() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for k, v := range l.vars {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

// Secrets returns the non-empty values of keys that contain a
// secret marker, sorted longest first so that overlapping
// secrets are masked whole.
func (l *DefaultLoader) Secrets() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []string
	for k := range l.vars {
		if !l.isSecret(k) {
			continue
		}
		if v := l.vars[k]; v != "" {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func (l *DefaultLoader) isSecret(key string) bool {
	key = strings.ToUpper(key)
	for _, m := range l.markers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

func (l *DefaultLoader) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make(map[string]string, len(l.vars))
	for k, v := range l.vars {
		result[k] = v
	}
	return result
}
