package nes

import (
	"encoding/json"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Settings are the resolved emulator options.
type Settings struct {
	TraceCPU             bool
	DisassembleFunctions bool
	Mousepick            bool
	JIT                  bool
	ResetToVector        bool
}

// DefaultSettings leaves debugging off; the JIT is on and falls back to
// the interpreter on hosts without a recompiler. The reset PC follows
// the nestest $C000 concession unless the config asks for the vector.
func DefaultSettings() Settings {
	return Settings{JIT: true}
}

// configFile mirrors config/default.{toml,json}.
type configFile struct {
	Debug struct {
		TraceCPU             bool `toml:"trace_cpu" json:"trace_cpu"`
		DisassembleFunctions bool `toml:"disassemble_functions" json:"disassemble_functions"`
		Mousepick            bool `toml:"mousepick" json:"mousepick"`
	} `toml:"debug" json:"debug"`

	JIT struct {
		Enable *bool `toml:"enable" json:"enable"`
	} `toml:"jit" json:"jit"`

	CPU struct {
		ResetToVector bool `toml:"reset_to_vector" json:"reset_to_vector"`
	} `toml:"cpu" json:"cpu"`
}

// LoadSettings reads config/default.toml or config/default.json when
// present; a missing file yields the defaults.
func LoadSettings() (Settings, error) {
	settings := DefaultSettings()

	var cfg configFile
	switch {
	case fileExists("config/default.toml"):
		if _, err := toml.DecodeFile("config/default.toml", &cfg); err != nil {
			return settings, errors.Wrap(err, "failed to read config file")
		}
	case fileExists("config/default.json"):
		data, err := os.ReadFile("config/default.json")
		if err != nil {
			return settings, errors.Wrap(err, "failed to read config file")
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return settings, errors.Wrap(err, "failed to parse config file")
		}
	default:
		return settings, nil
	}

	settings.TraceCPU = cfg.Debug.TraceCPU
	settings.DisassembleFunctions = cfg.Debug.DisassembleFunctions
	settings.Mousepick = cfg.Debug.Mousepick
	if cfg.JIT.Enable != nil {
		settings.JIT = *cfg.JIT.Enable
	}
	settings.ResetToVector = cfg.CPU.ResetToVector

	return settings, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
