// Package config loads application settings from signspeak.cfg.json and SIGNSPEAK_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "signspeak.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. SIGNSPEAK_HTTP_ADDR.
const EnvPrefix = "SIGNSPEAK"

// Config is the full application configuration.
type Config struct {
	LogLevel  string `mapstructure:"logLevel"`
	LogPretty bool   `mapstructure:"logPretty"`
	LogFile   string `mapstructure:"logFile"`
	DataDir   string `mapstructure:"dataDir"`

	HTTP       HTTPConfig       `mapstructure:"http"`
	Camera     CameraConfig     `mapstructure:"camera"`
	Session    SessionConfig    `mapstructure:"session"`
	Model      ModelConfig      `mapstructure:"model"`
	Stabilizer StabilizerConfig `mapstructure:"stabilizer"`
	Plugins    PluginsConfig    `mapstructure:"plugins"`
	Tray       TrayConfig       `mapstructure:"tray"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"staticDir"`
}

// CameraConfig configures local capture. A negative ID disables the camera.
type CameraConfig struct {
	ID              int     `mapstructure:"id"`
	Width           int     `mapstructure:"width"`
	Height          int     `mapstructure:"height"`
	MotionThreshold float64 `mapstructure:"motionThreshold"` // percent of changed pixels
	IdleFPS         int     `mapstructure:"idleFPS"`
	ActiveFPS       int     `mapstructure:"activeFPS"`
}

// SessionConfig configures the tracking session.
type SessionConfig struct {
	Mode                 string        `mapstructure:"mode"`
	WindowSize           int           `mapstructure:"windowSize"`
	MinInferenceInterval time.Duration `mapstructure:"minInferenceInterval"`
}

// ModelConfig selects the sequence model. Path takes precedence over RemoteURL.
type ModelConfig struct {
	Path      string        `mapstructure:"path"`
	RemoteURL string        `mapstructure:"remoteURL"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Version   string        `mapstructure:"version"`
	Labels    []string      `mapstructure:"labels"`
	Display   []string      `mapstructure:"display"`
	Nothing   string        `mapstructure:"nothing"`
}

// Enabled reports whether any sequence model is configured.
func (m ModelConfig) Enabled() bool {
	return m.Path != "" || m.RemoteURL != ""
}

// StabilizerConfig holds the debounce settings per classifier family.
type StabilizerConfig struct {
	Rules    DebounceConfig `mapstructure:"rules"`
	Sequence DebounceConfig `mapstructure:"sequence"`
}

// DebounceConfig is one threshold/cooldown pair.
type DebounceConfig struct {
	Threshold float64       `mapstructure:"threshold"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

// PluginsConfig configures action plugins.
type PluginsConfig struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TrayConfig configures the system tray.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".signspeak")

	v.SetDefault("logLevel", "info")
	v.SetDefault("logPretty", true)
	v.SetDefault("logFile", "")
	v.SetDefault("dataDir", dataDir)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.staticDir", "web/static")

	v.SetDefault("camera.id", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.motionThreshold", 1.0)
	v.SetDefault("camera.idleFPS", 5)
	v.SetDefault("camera.activeFPS", 15)

	v.SetDefault("session.mode", "gestures")
	v.SetDefault("session.windowSize", 40)
	v.SetDefault("session.minInferenceInterval", "100ms")

	v.SetDefault("model.path", "")
	v.SetDefault("model.remoteURL", "")
	v.SetDefault("model.timeout", "5s")
	v.SetDefault("model.version", "lstm-v1")
	v.SetDefault("model.labels", []string{"Hello", "I_Love_You", "Nothing", "Thank_You", "YES", "NO", "SORRY", "HELP", "PEACE"})
	v.SetDefault("model.display", []string{"Hello", "I Love You", "Nothing", "Thank You", "Yes", "No", "Sorry", "Help", "Peace"})
	v.SetDefault("model.nothing", "Nothing")

	v.SetDefault("stabilizer.rules.threshold", 0.6)
	v.SetDefault("stabilizer.rules.cooldown", "800ms")
	v.SetDefault("stabilizer.sequence.threshold", 0.9)
	v.SetDefault("stabilizer.sequence.cooldown", "1500ms")

	v.SetDefault("plugins.dir", filepath.Join(dataDir, "plugins"))
	v.SetDefault("plugins.timeout", "5s")

	v.SetDefault("tray.enabled", true)
}

// Load reads configDir/signspeak.cfg.json on top of the defaults. A missing file is not
// an error; a malformed one is. An empty configDir only applies defaults and environment.
func Load(configDir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configDir != "" {
		v.SetConfigName(FileName)
		v.SetConfigType("json")
		v.AddConfigPath(configDir)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if len(c.Model.Display) != 0 && len(c.Model.Display) != len(c.Model.Labels) {
		return fmt.Errorf("model.display has %d entries, model.labels has %d", len(c.Model.Display), len(c.Model.Labels))
	}
	if c.Session.Mode == "sequence" && !c.Model.Enabled() {
		return errors.New("session.mode is sequence but no model.path or model.remoteURL is set")
	}
	if c.Stabilizer.Rules.Threshold < 0 || c.Stabilizer.Rules.Threshold > 1 ||
		c.Stabilizer.Sequence.Threshold < 0 || c.Stabilizer.Sequence.Threshold > 1 {
		return errors.New("stabilizer thresholds must be within [0, 1]")
	}
	return nil
}

// DBPath returns the sqlite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "signspeak.db")
}
