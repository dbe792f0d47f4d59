package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// profileFile is ~/.navgraph/config.yaml. Flat keys apply to every profile;
// the selected profile overrides them.
type profileFile struct {
	profileSettings `yaml:",inline"`
	Profiles        map[string]profileSettings `yaml:"profiles"`
	ActiveProfile   string                     `yaml:"active_profile"`
}

type profileSettings struct {
	ParcelStore string `yaml:"parcel_store"`
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	LogLevel    string `yaml:"log_level"`
}

func defaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".navgraph", "config.yaml")
}

// applyProfile exports profile values as environment defaults. Variables
// already set in the environment win. A missing file is not an error; a
// named profile that does not exist is.
func applyProfile(path, name string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if name != "" {
			return fmt.Errorf("profile %q requested but %s does not exist", name, path)
		}

		return nil
	}
	if err != nil {
		return fmt.Errorf("reading profile file: %w", err)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	settings := pf.profileSettings

	if name == "" {
		name = pf.ActiveProfile
	}
	if name != "" {
		p, ok := pf.Profiles[name]
		if !ok {
			return fmt.Errorf("profile %q not found in %s", name, path)
		}
		settings = settings.merge(p)
	}

	for key, val := range map[string]string{
		"PARCEL_STORE": settings.ParcelStore,
		"DATA_DIR":     settings.DataDir,
		"DATABASE_URL": settings.DatabaseURL,
		"REDIS_URL":    settings.RedisURL,
		"LOG_LEVEL":    settings.LogLevel,
	} {
		if val == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}

	return nil
}

func (s profileSettings) merge(o profileSettings) profileSettings {
	if o.ParcelStore != "" {
		s.ParcelStore = o.ParcelStore
	}
	if o.DataDir != "" {
		s.DataDir = o.DataDir
	}
	if o.DatabaseURL != "" {
		s.DatabaseURL = o.DatabaseURL
	}
	if o.RedisURL != "" {
		s.RedisURL = o.RedisURL
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}

	return s
}
