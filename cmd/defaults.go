package cmd

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var defaultsFilePath string // Optional YAML file of per-experiment build defaults

// BuildDefaults are the per-experiment default build parameters.
type BuildDefaults struct {
	LDRes int `yaml:"ld_res"`
	HDRes int `yaml:"hd_res"`
	NSims int `yaml:"nsims"`
}

// Defaults represents the full defaults file structure. All top-level
// sections must be listed to satisfy KnownFields(true) strict parsing.
type Defaults struct {
	Version     string                   `yaml:"version"`
	Experiments map[string]BuildDefaults `yaml:"experiments"`
}

// loadDefaults parses the defaults file with strict field checking, so a
// typo in a key is an error rather than a silently ignored setting.
func loadDefaults(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Defaults
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// applyDefaults overrides the build flags the user did not set explicitly
// with the defaults registered for the experiment.
func applyDefaults(changed func(name string) bool) {
	if defaultsFilePath == "" {
		return
	}
	d, err := loadDefaults(defaultsFilePath)
	if err != nil {
		logrus.Fatalf("Failed to read defaults file: %v", err)
	}
	bd, ok := d.Experiments[experiment]
	if !ok {
		return
	}
	if bd.LDRes != 0 && !changed("ld-res") {
		lowRes = bd.LDRes
	}
	if bd.HDRes != 0 && !changed("hd-res") {
		highRes = bd.HDRes
	}
	if bd.NSims != 0 && !changed("nsims") {
		simCount = bd.NSims
	}
}
