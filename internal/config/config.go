package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// MaxThoughtsPerSequence bounds how many thoughts a sequence may hold.
	// Transcript rendering is recomputed on every append, so this also bounds
	// rendering cost. 0 means use the default.
	MaxThoughtsPerSequence int `json:"max_thoughts_per_sequence,omitempty"`

	// DefaultConfidence is the confidence stamped onto non-concluding
	// thoughts when the caller does not provide one.
	DefaultConfidence float64 `json:"default_confidence,omitempty"`

	// ConclusionConfidence is the confidence stamped onto concluding thoughts.
	ConclusionConfidence float64 `json:"conclusion_confidence,omitempty"`

	// DisableConclusionPhrases turns off substring-based conclusion detection.
	// When true, only an explicit conclusion thought type terminates a
	// sequence; content phrasing is ignored.
	DisableConclusionPhrases bool `json:"disable_conclusion_phrases,omitempty"`

	// ConclusionPhrases overrides the built-in conclusion phrase list.
	// Matched case-insensitively as substrings.
	ConclusionPhrases []string `json:"conclusion_phrases,omitempty"`

	// InsightPollSeconds is the insight worker's poll interval.
	// 0 means use the default.
	InsightPollSeconds int `json:"insight_poll_seconds,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// All tools belonging to disabled types are excluded from registration.
	// Known types: "think", "memory". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// Defaults.
const (
	DefaultMaxThoughts          = 100
	DefaultThoughtConfidence    = 0.7
	DefaultConclusionConfidence = 0.9
	DefaultInsightPollSeconds   = 5
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxThoughtsPerSequence: DefaultMaxThoughts,
		DefaultConfidence:      DefaultThoughtConfidence,
		ConclusionConfidence:   DefaultConclusionConfidence,
		InsightPollSeconds:     DefaultInsightPollSeconds,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.strand.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.strand) and repo
// (.strand) directories. Repo config is found by walking upward from startDir
// to find the nearest .strand/config.json. Repo config takes precedence for
// scalar values; arrays are merged (deduplicated). Either or both configs may
// be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest
// .strand/config.json. Returns the path if found, or empty string if not.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".strand", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.MaxThoughtsPerSequence = overlay.MaxThoughtsPerSequence
	if result.MaxThoughtsPerSequence == 0 {
		result.MaxThoughtsPerSequence = base.MaxThoughtsPerSequence
	}

	result.DefaultConfidence = overlay.DefaultConfidence
	if result.DefaultConfidence == 0 {
		result.DefaultConfidence = base.DefaultConfidence
	}

	result.ConclusionConfidence = overlay.ConclusionConfidence
	if result.ConclusionConfidence == 0 {
		result.ConclusionConfidence = base.ConclusionConfidence
	}

	result.InsightPollSeconds = overlay.InsightPollSeconds
	if result.InsightPollSeconds == 0 {
		result.InsightPollSeconds = base.InsightPollSeconds
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.DisableConclusionPhrases = base.DisableConclusionPhrases || overlay.DisableConclusionPhrases

	// Arrays: merge and deduplicate; ConclusionPhrases is a replacement,
	// not a merge, so a repo config can narrow the phrase list
	result.ConclusionPhrases = overlay.ConclusionPhrases
	if len(result.ConclusionPhrases) == 0 {
		result.ConclusionPhrases = base.ConclusionPhrases
	}
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
