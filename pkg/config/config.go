// Package config loads application-level settings. Precedence, lowest
// to highest: embedded defaults, the user config file under the XDG
// config directory, then FUZZGEN_* environment variables.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// Config is the application configuration.
type Config struct {
	Validation ValidationConfig `koanf:"validation"`
	Watch      WatchConfig      `koanf:"watch"`
}

// ValidationConfig tunes the matrix runner.
type ValidationConfig struct {
	// Workers bounds concurrent cells. 0 means one per CPU.
	Workers int `koanf:"workers"`

	// StepTimeout bounds each validation step.
	StepTimeout time.Duration `koanf:"step_timeout"`

	// OutputLimit caps the captured bytes per cell.
	OutputLimit int `koanf:"output_limit"`
}

// WatchConfig tunes the filesystem watch loop.
type WatchConfig struct {
	// Debounce is the quiet period after the last event before a rerun.
	Debounce time.Duration `koanf:"debounce"`
}

// rawBytesProvider implements the koanf provider interface for the
// embedded defaults.
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrInternal, "not implemented")
}

// UserConfigPath returns the location of the optional user config file.
func UserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "fuzzgen", "config.toml")
}

// Load builds the effective configuration.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load built-in defaults")
	}

	userPath := UserConfigPath()
	if _, err := os.Stat(userPath); err == nil {
		if err := k.Load(file.Provider(userPath), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad,
				"failed to load config from %s", userPath)
		}
	}

	// Double underscore separates sections so keys containing single
	// underscores survive, e.g. FUZZGEN_VALIDATION__STEP_TIMEOUT.
	err := k.Load(env.Provider("FUZZGEN_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "FUZZGEN_")), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}
	return &cfg, nil
}
