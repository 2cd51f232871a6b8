// Package scaffold creates a starter caprock.yml in the working directory.
package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/caprock-sim/caprock/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ConfigFileName is the conventional per-project configuration file.
const ConfigFileName = "caprock.yml"

// CheckExisting returns an error if caprock.yml already exists, so that
// initialization never silently overwrites a configured run.
func CheckExisting() error {
	if _, err := os.Stat(ConfigFileName); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'caprock init --force' to reinitialize (this will overwrite the existing configuration)", ConfigFileName)
	}
	return nil
}

// Initialize writes the starter caprock.yml. If force is true, an existing
// file is removed first.
func Initialize(force bool) error {
	if force {
		if _, err := os.Stat(ConfigFileName); err == nil {
			fmt.Printf("Removing existing %s...\n", ConfigFileName)
			if err := os.Remove(ConfigFileName); err != nil {
				return fmt.Errorf("failed to remove %s: %w", ConfigFileName, err)
			}
		}
	}

	content, err := templatesFS.ReadFile("templates/caprock.yml.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read caprock.yml template: %w", err)
	}

	if err := os.WriteFile(ConfigFileName, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ConfigFileName, err)
	}

	// The template must itself pass the loader's validation.
	if _, err := config.Load(ConfigFileName); err != nil {
		return fmt.Errorf("created %s does not validate: %w", ConfigFileName, err)
	}

	return nil
}
