// Package user persists the releaser identity recorded with each run.
package user

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bimcvcovid19i/relman/internal/config"
)

// Profile holds persisted releaser metadata.
type Profile struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// Validate rejects an empty profile and malformed email addresses.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.Email) == "" {
		return errors.New("profile needs a name or an email")
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return fmt.Errorf("invalid email %q: %w", p.Email, err)
		}
	}
	return nil
}

func profilePath() (string, error) {
	d, err := config.EnsureDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "releaser.yaml"), nil
}

// SetProfile saves the releaser profile to disk.
func SetProfile(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	pfile, err := profilePath()
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(pfile, b, 0o600)
}

// GetProfile reads the releaser profile. Returns (Profile, true, nil) if found.
func GetProfile() (Profile, bool, error) {
	pfile, err := profilePath()
	if err != nil {
		return Profile{}, false, err
	}
	b, err := os.ReadFile(pfile)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, false, nil
		}
		return Profile{}, false, err
	}
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, false, fmt.Errorf("parse %s: %w", pfile, err)
	}
	return p, true, nil
}

// ClearProfile removes the persisted profile.
func ClearProfile() error {
	pfile, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(pfile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
