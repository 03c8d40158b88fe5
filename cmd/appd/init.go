package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/blockberries/appcore/config"
)

func newInitCmd() *cobra.Command {
	var (
		chainID string
		backend string
		force   bool
	)
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Create the home directory with a default config and genesis.",
		Example: "appd init --chain-id appcore-1 --backend pebble",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, err := homeDir(cmd)
			if err != nil {
				return err
			}
			return initHome(home, chainID, backend, force)
		},
	}
	cmd.Flags().StringVar(&chainID, "chain-id", "appcore-local", "chain id written to the genesis and config")
	cmd.Flags().StringVar(&backend, "backend", config.Default.Store.DB.Backend, "state database backend: leveldb, bolt, pebble or memdb")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config and genesis")
	return cmd
}

func initHome(home, chainID, backend string, force bool) error {
	cfgPath := filepath.Join(home, config.ConfigDir, config.ConfigFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return errors.Errorf("%s already exists, use --force to overwrite", cfgPath)
	}

	cfg := config.Default
	cfg.Store.DB.Backend = backend
	cfg.App.ChainID = chainID
	for _, validate := range config.Validates {
		if err := validate(cfg); err != nil {
			return err
		}
	}
	if err := config.Write(cfgPath, cfg); err != nil {
		return err
	}

	g := newGenesisDoc(chainID, time.Now())
	if err := g.validate(); err != nil {
		return err
	}
	if err := writeGenesis(genesisPath(home), g); err != nil {
		return err
	}
	return errors.Wrap(os.MkdirAll(filepath.Join(home, config.DataDir), 0o755), "failed to create data directory")
}
