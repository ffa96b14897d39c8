package driven

import "time"

// ConfigStore holds application settings addressed by dot keys such as
// "output.dir". Typed getters return the zero value when a key is unset
// or holds an incompatible value.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// GetDuration reads an integer number of seconds.
	GetDuration(key string) time.Duration

	// Set stores a value and persists it.
	Set(key string, value any) error

	// Save writes every value to storage.
	Save() error

	// Load replaces the held values with those in storage.
	Load() error

	// Path returns where the settings are stored.
	Path() string
}
