package main

import (
	"github.com/torosent/tokenfill/internal/config"
	"github.com/torosent/tokenfill/internal/profile"
	"github.com/torosent/tokenfill/internal/render"
	"github.com/torosent/tokenfill/internal/valuesfile"
	"github.com/torosent/tokenfill/internal/variables"
)

// bindValues builds the substitution list for a profile. Positional values,
// when present, bind exclusively and must match the profile length. Otherwise
// named values bind by name: --set and config values win over the values file.
// With no values at all, positional binding reports the count error.
func bindValues(p profile.Profile, cfg *config.Config) ([]render.Substitution, error) {
	if len(cfg.Args) > 0 {
		return p.Bind(cfg.Args)
	}

	named := variables.FromMap(cfg.Values)

	var fileValues valuesfile.Values
	if cfg.ValuesFile != "" {
		loaded, err := valuesfile.Load(cfg.ValuesFile, cfg.ValuesPath)
		if err != nil {
			return nil, err
		}
		fileValues = loaded
	}

	if named.Len() == 0 && len(fileValues) == 0 {
		return p.Bind(cfg.Args)
	}
	return p.BindNamed(variables.FromMap(named.Merge(fileValues)))
}
