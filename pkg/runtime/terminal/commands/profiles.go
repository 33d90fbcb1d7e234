package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/de-tools/concession-forecast/pkg/services/config"
)

type ProfilesCmd struct {
	global *GlobalOptions
	deps   Dependencies
}

func NewProfilesCmd(global *GlobalOptions, deps Dependencies) *cobra.Command {
	pc := &ProfilesCmd{global: global, deps: deps}
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured warehouse profiles",
		RunE:  pc.run,
	}
}

func (pc *ProfilesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := pc.global.Settings()
	if err != nil {
		return err
	}
	registry, err := config.NewRegistry(s.ProfilesPath)
	if err != nil {
		return err
	}

	names, err := registry.GetProfiles(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No profiles found in %s\n", s.ProfilesPath)
		return nil
	}

	supported := make(map[string]bool)
	for _, t := range pc.deps.Warehouses.Types() {
		supported[t] = true
	}
	for _, name := range names {
		p, err := registry.GetProfile(ctx, name)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tinvalid: %v\n", name, err)
			continue
		}
		status := ""
		if !supported[p.Type] {
			status = "\tunsupported type"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\n", name, p.Type, status)
	}
	return nil
}
