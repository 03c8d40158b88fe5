package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/blockberries/appcore/app"
	"github.com/blockberries/appcore/config"
	"github.com/blockberries/appcore/types"
)

// genesisDoc is the genesis file handed to the consensus engine, which
// turns it into the InitChain request.
type genesisDoc struct {
	ChainID         string                     `json:"chain_id"`
	GenesisTime     time.Time                  `json:"genesis_time"`
	InitialHeight   uint64                     `json:"initial_height"`
	ConsensusParams types.ConsensusParams      `json:"consensus_params"`
	AppState        map[string]json.RawMessage `json:"app_state"`
}

func newGenesisDoc(chainID string, now time.Time) genesisDoc {
	return genesisDoc{
		ChainID:       chainID,
		GenesisTime:   now.UTC().Truncate(time.Second),
		InitialHeight: 1,
		ConsensusParams: types.ConsensusParams{
			MaxBlockBytes: 21 << 20,
			MaxTxBytes:    1 << 20,
		},
		AppState: app.DefaultGenesis(),
	}
}

func (g genesisDoc) validate() error {
	if g.ChainID == "" {
		return errors.New("genesis has no chain id")
	}
	if g.InitialHeight == 0 {
		return errors.New("genesis initial height must be at least 1")
	}
	if p := g.ConsensusParams; p.MaxTxBytes > 0 && p.MaxBlockBytes > 0 && p.MaxTxBytes > p.MaxBlockBytes {
		return errors.Errorf("max tx bytes %d exceed max block bytes %d", p.MaxTxBytes, p.MaxBlockBytes)
	}
	return errors.Wrap(app.ValidateGenesis(g.AppState), "invalid app state")
}

// initChainRequest builds the request an engine sends for this genesis.
func (g genesisDoc) initChainRequest() (types.InitChainRequest, error) {
	appState, err := json.Marshal(g.AppState)
	if err != nil {
		return types.InitChainRequest{}, errors.Wrap(err, "failed to encode app state")
	}
	return types.InitChainRequest{
		ChainID:         g.ChainID,
		GenesisTime:     types.TimeToTimestamp(g.GenesisTime),
		InitialHeight:   g.InitialHeight,
		ConsensusParams: g.ConsensusParams,
		AppState:        appState,
	}, nil
}

func readGenesis(path string) (genesisDoc, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return genesisDoc{}, errors.Wrapf(err, "failed to read %s", path)
	}
	var g genesisDoc
	if err := json.Unmarshal(bz, &g); err != nil {
		return genesisDoc{}, errors.Wrapf(err, "failed to parse %s", path)
	}
	return g, nil
}

func writeGenesis(path string, g genesisDoc) error {
	bz, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode genesis")
	}
	return errors.Wrapf(renameio.WriteFile(path, bz, 0o644), "failed to write %s", path)
}

func newValidateGenesisCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate-genesis [file]",
		Short:   "Check a genesis file against the shipped modules.",
		Example: "appd validate-genesis ~/.appcore/config/genesis.json",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := homeDir(cmd)
			if err != nil {
				return err
			}
			path := genesisPath(home)
			if len(args) == 1 {
				path = args[0]
			}
			g, err := readGenesis(path)
			if err != nil {
				return err
			}
			if err := g.validate(); err != nil {
				return err
			}
			cmd.Printf("%s is a valid genesis for chain %s\n", path, g.ChainID)
			return nil
		},
	}
}

func genesisPath(home string) string {
	return filepath.Join(home, config.ConfigDir, config.GenesisFile)
}
