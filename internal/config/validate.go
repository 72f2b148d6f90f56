package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Validate checks loaded values and fills derived paths.
// Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Speech.Rates) == 0 {
		return fmt.Errorf("speech.rates must not be empty")
	}
	for _, r := range c.Speech.Rates {
		if r <= 0 {
			return fmt.Errorf("speech.rates must be > 0 (got %v)", r)
		}
	}
	if c.Shadowing.MaxDuration <= 0 {
		return fmt.Errorf("shadowing.max_duration must be > 0 (got %s)", c.Shadowing.MaxDuration)
	}
	if c.Dictation.AdvanceDelay < 0 {
		return fmt.Errorf("dictation.advance_delay must be >= 0 (got %s)", c.Dictation.AdvanceDelay)
	}
	if c.Dictation.SessionTTL < 0 {
		return fmt.Errorf("dictation.session_ttl must be >= 0 (got %s)", c.Dictation.SessionTTL)
	}

	if c.DB.Path == "" {
		c.DB.Path = filepath.Join(homeDir(), ".ace", "ace.db")
	}
	if c.Shadowing.Dir == "" {
		c.Shadowing.Dir = filepath.Join(os.TempDir(), "ace-shadowing")
	}

	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
