package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/de-tools/concession-forecast/pkg/models/store"
	"gopkg.in/ini.v1"
)

const profilesFile = ".concessionscfg"

// Registry reads warehouse connection profiles from an INI file with one
// section per profile, e.g.
//
//	[nhs-bq]
//	type = bigquery
//	project = ebmdatalab
type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, name string) (store.Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

// DefaultProfilesPath is ~/.concessionscfg.
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return profilesFile
	}
	return filepath.Join(home, profilesFile)
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load profiles %s: %w", path, err)
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, name string) (store.Profile, error) {
	section, err := cr.cfg.GetSection(name)
	if err != nil || len(section.Keys()) == 0 {
		return store.Profile{}, fmt.Errorf("profile %s not found", name)
	}

	kind := strings.ToLower(section.Key("type").String())
	if kind == "" {
		return store.Profile{}, fmt.Errorf("profile %s has no type", name)
	}

	values := make(map[string]string, len(section.Keys()))
	for _, key := range section.Keys() {
		values[key.Name()] = key.String()
	}
	return store.Profile{Name: name, Type: kind, Values: values}, nil
}
