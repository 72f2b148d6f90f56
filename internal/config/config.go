package config

import "time"

// Config is the root application configuration.
type Config struct {
	DB         DBConfig         `yaml:"db"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Server     ServerConfig     `yaml:"server"`
	Speech     SpeechConfig     `yaml:"speech"`
	Shadowing  ShadowingConfig  `yaml:"shadowing"`
	Dictation  DictationConfig  `yaml:"dictation"`
	Translator TranslatorConfig `yaml:"translator"`
	Log        LogConfig        `yaml:"log"`
}

// DBConfig holds the local SQLite location. An empty path means ~/.ace/ace.db.
type DBConfig struct {
	Path string `yaml:"path" env:"ACE_DB_PATH"`
}

// CatalogConfig points at a YAML catalog. Empty uses the embedded starter catalog.
type CatalogConfig struct {
	Path string `yaml:"path" env:"ACE_CATALOG_PATH"`
}

// ServerConfig holds settings for `ace serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"ACE_SERVER_ADDR"             env-default:"127.0.0.1:8080"`
	AllowedOrigins  []string      `yaml:"allowed_origins"  env:"ACE_SERVER_ALLOWED_ORIGINS"  env-default:"*"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ACE_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// SpeechConfig configures text-to-speech.
type SpeechConfig struct {
	Command string    `yaml:"command" env:"ACE_SPEECH_COMMAND" env-default:"espeak-ng"`
	Lang    string    `yaml:"lang"    env:"ACE_SPEECH_LANG"    env-default:"en-US"`
	Rates   []float64 `yaml:"rates"   env:"ACE_SPEECH_RATES"   env-default:"0.9,0.6,0.9"`
}

// ShadowingConfig configures voice capture.
type ShadowingConfig struct {
	Command     string        `yaml:"command"      env:"ACE_SHADOWING_COMMAND"      env-default:"arecord"`
	Player      string        `yaml:"player"       env:"ACE_SHADOWING_PLAYER"       env-default:"aplay"`
	MaxDuration time.Duration `yaml:"max_duration" env:"ACE_SHADOWING_MAX_DURATION" env-default:"8s"`
	Dir         string        `yaml:"dir"          env:"ACE_SHADOWING_DIR"`
}

// DictationConfig holds drill timing.
type DictationConfig struct {
	AdvanceDelay time.Duration `yaml:"advance_delay" env:"ACE_DICTATION_ADVANCE_DELAY" env-default:"1500ms"`
	SessionTTL   time.Duration `yaml:"session_ttl"   env:"ACE_DICTATION_SESSION_TTL"   env-default:"30m"`
}

// TranslatorConfig configures article translation on import.
type TranslatorConfig struct {
	Model  string `yaml:"model"   env:"ACE_TRANSLATOR_MODEL" env-default:"claude-sonnet-4-20250514"`
	APIKey string `yaml:"api_key" env:"ANTHROPIC_API_KEY"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"ACE_LOG_LEVEL"  env-default:"warn"`
	Format string `yaml:"format" env:"ACE_LOG_FORMAT" env-default:"text"`
}
