package layout

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Target describes the ABI target and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

// X8664LinuxGNU is the default target.
func X8664LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

// targetFile mirrors the [target] section of a target description file.
type targetFile struct {
	Target struct {
		Triple   string `toml:"triple"`
		PtrSize  int    `toml:"ptr-size"`
		PtrAlign int    `toml:"ptr-align"`
	} `toml:"target"`
}

// LoadTarget reads a target description from a TOML file. An empty path
// and missing fields fall back to the default target.
func LoadTarget(path string) (Target, error) {
	if path == "" {
		return X8664LinuxGNU(), nil
	}
	var cfg targetFile
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Target{}, fmt.Errorf("layout: load target %s: %w", path, err)
	}
	out := X8664LinuxGNU()
	if cfg.Target.Triple != "" {
		out.Triple = cfg.Target.Triple
	}
	if cfg.Target.PtrSize > 0 {
		out.PtrSize = cfg.Target.PtrSize
	}
	if cfg.Target.PtrAlign > 0 {
		out.PtrAlign = cfg.Target.PtrAlign
	}
	if out.PtrSize != 4 && out.PtrSize != 8 {
		return Target{}, fmt.Errorf("layout: unsupported pointer size %d", out.PtrSize)
	}
	return out, nil
}
