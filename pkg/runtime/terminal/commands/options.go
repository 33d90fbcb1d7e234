package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/de-tools/concession-forecast/pkg/services/config"
	"github.com/de-tools/concession-forecast/pkg/services/pipeline"
	"github.com/de-tools/concession-forecast/pkg/store/warehouse"
)

// GlobalOptions are bound to the root command's persistent flags and
// override the loaded settings when set.
type GlobalOptions struct {
	ConfigPath   string
	Profile      string
	ProfilesPath string
	CachePolicy  string
}

func (o *GlobalOptions) Bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to the analysis settings file (YAML)")
	flags.StringVar(&o.Profile, "profile", "", "Warehouse profile name")
	flags.StringVar(&o.ProfilesPath, "profiles", "", "Path to the warehouse profiles file (default is $HOME/.concessionscfg)")
	flags.StringVar(&o.CachePolicy, "cache-policy", "", "Query cache policy: reuse or refresh")
}

func (o *GlobalOptions) Settings() (*config.Settings, error) {
	s, err := config.LoadSettings(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Profile != "" {
		s.Profile = o.Profile
	}
	if o.ProfilesPath != "" {
		s.ProfilesPath = o.ProfilesPath
	}
	if o.CachePolicy != "" {
		s.Cache.Policy = o.CachePolicy
	}
	return s, nil
}

// Dependencies are the external services commands are wired with.
type Dependencies struct {
	Warehouses warehouse.Registry
	Holidays   pipeline.HolidayLoader
}

func openSession(ctx context.Context, s *config.Settings, deps Dependencies) (*pipeline.Session, error) {
	profiles, err := config.NewRegistry(s.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load warehouse profiles: %w", err)
	}
	return pipeline.OpenSession(ctx, s, profiles, deps.Warehouses)
}
