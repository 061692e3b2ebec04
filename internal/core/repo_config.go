package core

// RepoConfig represents the structure of an optional `.code-warden.yml` file
// committed to a scanned repository. config.LoadRepoConfig parses it, but no
// scan, index or answer path reads the result, so its fields have no effect
// on analysis or answers.
type RepoConfig struct {
	// AnalyzersDisable lists rule IDs or categories to suppress entirely.
	AnalyzersDisable []string `yaml:"analyzers_disable"`

	// ExcludeDirs augments the built-in vendor/build exclusion list.
	// Example: ["generated", "testdata"]
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// ExcludeExts excludes files by extension. The leading dot is optional.
	ExcludeExts []string `yaml:"exclude_exts"`

	// CustomInstructions holds free-text instructions for the answer engine,
	// e.g. a project-specific convention the analyzers can't see.
	CustomInstructions []string `yaml:"custom_instructions"`
}

// DefaultRepoConfig returns a config with empty, non-nil slices so callers
// can range over it without a nil check.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		AnalyzersDisable:   []string{},
		ExcludeDirs:        []string{},
		ExcludeExts:        []string{},
		CustomInstructions: []string{},
	}
}
