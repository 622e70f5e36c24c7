package app

import (
	"context"
	"fmt"

	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// loadSeed reads a provisioning document of clients and users.
func loadSeed(path string) (service.Seed, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return service.Seed{}, fmt.Errorf("seed: load %s: %w", path, err)
	}

	var seed service.Seed
	if err := k.Unmarshal("", &seed); err != nil {
		return service.Seed{}, fmt.Errorf("seed: unmarshal: %w", err)
	}
	return seed, nil
}

// applySeed provisions the seed file, if one is configured.
func (app *Application) applySeed(ctx context.Context) error {
	if app.cfg.SeedFile == "" {
		return nil
	}

	seed, err := loadSeed(app.cfg.SeedFile)
	if err != nil {
		return err
	}

	prov := &service.ProvisionService{Store: app.db, Hasher: app.hasher}
	if err := prov.Apply(ctx, seed); err != nil {
		return fmt.Errorf("seed: apply %s: %w", app.cfg.SeedFile, err)
	}
	return nil
}
