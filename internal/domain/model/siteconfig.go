package model

import (
	"maps"
	"strconv"
	"time"
)

// Site configuration keys consulted by the application.
const (
	SettingSyntaxHighlighting   = "diffviewer_syntax_highlighting"
	SettingSearchEnable         = "search_enable"
	SettingSearchOnTheFly       = "search_on_the_fly_indexing"
	SettingSearchResultsPerPage = "search_results_per_page"
)

var defaultSiteSettings = map[string]any{
	SettingSyntaxHighlighting:   true,
	SettingSearchEnable:         false,
	SettingSearchOnTheFly:       true,
	SettingSearchResultsPerPage: 20,
}

// SiteConfig is the site-wide key/value configuration record. Keys that were
// never stored fall back to built-in defaults.
type SiteConfig struct {
	ID        int64
	Settings  map[string]any
	UpdatedAt time.Time
}

// NewSiteConfig returns an empty configuration that reports defaults for every key.
func NewSiteConfig() SiteConfig {
	return SiteConfig{Settings: map[string]any{}}
}

// DefaultSiteSettings returns a copy of the built-in defaults.
func DefaultSiteSettings() map[string]any {
	return maps.Clone(defaultSiteSettings)
}

// Get returns the stored value for key, falling back to the default.
func (c SiteConfig) Get(key string) (any, bool) {
	if v, ok := c.Settings[key]; ok {
		return v, true
	}
	v, ok := defaultSiteSettings[key]
	return v, ok
}

// Set stores a value for key.
func (c *SiteConfig) Set(key string, value any) {
	if c.Settings == nil {
		c.Settings = map[string]any{}
	}
	c.Settings[key] = value
}

// GetBool returns the value for key as a boolean. Unknown or non-boolean
// values are false.
func (c SiteConfig) GetBool(key string) bool {
	v, _ := c.Get(key)
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

// GetInt returns the value for key as an int. JSON-decoded numbers arrive as
// float64 and are truncated. Unknown or non-numeric values are 0.
func (c SiteConfig) GetInt(key string) int {
	v, _ := c.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
