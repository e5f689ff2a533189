// Package config resolves the linker placement script for the rasm
// driver, from a file or the viper-bound ~/.rasm.yaml setting. The
// output path and logging/color options are handled in cmd/rasm.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/SapphireAmoeba5/rasm/pkg/linker"
	"github.com/SapphireAmoeba5/rasm/pkg/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyScript   = errors.New("placement script is empty")
	ErrInvalidScript = errors.New("placement script has the wrong shape")
)

// BuildConfig holds every CLI/config-file-resolved setting the driver
// needs, independent of the core assembler/linker engine.
type BuildConfig struct {
	Output    string
	Script    []linker.Step
	LogFile   string
	Verbose   bool
	Color     bool
	Browse    bool
	Listing   bool
	ShowMap   bool
}

// LoadScript resolves the placement script per §4.8: an explicit
// --script file wins, then the rasm config file's "linker.script" key,
// then linker.DefaultScript().
func LoadScript(scriptFlag string) ([]linker.Step, error) {
	if scriptFlag != "" {
		return loadScriptFile(scriptFlag)
	}

	if raw := viper.Get("linker.script"); raw != nil {
		names, err := toStringSlice(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: config key linker.script: %v", ErrInvalidScript, err)
		}
		return stepsFromNames(names)
	}

	return linker.DefaultScript(), nil
}

func loadScriptFile(path string) ([]linker.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading placement script %q: %w", path, err)
	}

	var names []string
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, utils.MakeError(ErrInvalidScript, "%q: %v", path, err)
	}
	return stepsFromNames(names)
}

func stepsFromNames(names []string) ([]linker.Step, error) {
	if len(names) == 0 {
		return nil, ErrEmptyScript
	}
	steps := make([]linker.Step, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: empty section name at index %d", ErrInvalidScript, i)
		}
		steps[i] = linker.Step{Name: name}
	}
	return steps, nil
}

func toStringSlice(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings, got %T", raw)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("element %d is not a string", i)
		}
		out[i] = s
	}
	return out, nil
}
