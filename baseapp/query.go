package baseapp

import (
	"context"
	"strings"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store/rootmulti"
	"github.com/blockberries/appcore/types"
)

// Reserved query routes.
const (
	// QueryRouteStore reads raw keys: /store/<name>/key with the key in
	// Data. Prove adds a Merkle proof against the version's app hash.
	QueryRouteStore = "store"
	// QueryRouteApp serves /app/simulate (Data = tx bytes) and
	// /app/version.
	QueryRouteApp = "app"
)

// Query implements appcore.Application. It reads the last committed
// version, or a retained earlier one when Height is set.
func (app *BaseApp) Query(ctx context.Context, req types.StateQuery) (res types.StateQueryResult, err error) {
	snap, err := app.querySnapshot(req)
	if err != nil {
		return queryResultFromError(err), nil
	}
	defer func() {
		if r := recover(); r != nil {
			res = queryResultFromError(panicToError(r))
			res.Height = snap.Version()
			err = nil
		}
	}()

	path := splitPath(string(req.Path))
	if len(path) == 0 {
		return queryResultFromError(appcore.ErrUnknownRequest.Wrap("empty query path")), nil
	}
	switch path[0] {
	case QueryRouteStore:
		res, err = app.queryStore(snap, path[1:], req)
	case QueryRouteApp:
		res, err = app.queryApp(ctx, snap, path[1:], req)
	default:
		res, err = app.queryModule(ctx, snap, path, req)
	}
	if err != nil {
		res = queryResultFromError(err)
	}
	res.Height = snap.Version()
	return res, nil
}

func (app *BaseApp) querySnapshot(req types.StateQuery) (*rootmulti.Snapshot, error) {
	if req.Height == nil || *req.Height == 0 {
		return app.cms.Snapshot(), nil
	}
	snap, err := app.cms.SnapshotAt(*req.Height)
	if err != nil {
		return nil, errors.Wrap(appcore.ErrInvalidHeight, err.Error())
	}
	return snap, nil
}

func splitPath(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (app *BaseApp) queryStore(snap *rootmulti.Snapshot, path []string, req types.StateQuery) (types.StateQueryResult, error) {
	if len(path) != 2 || path[1] != "key" {
		return types.StateQueryResult{}, appcore.ErrUnknownRequest.Wrap("expected /store/<name>/key")
	}
	if len(req.Data) == 0 {
		return types.StateQueryResult{}, appcore.ErrInvalidRequest.Wrap("empty key")
	}
	key, ok := snap.StoreKey(path[0])
	if !ok {
		return types.StateQueryResult{}, appcore.ErrUnknownRequest.Wrapf("unknown store %q", path[0])
	}
	res := types.StateQueryResult{Key: req.Data}
	if !req.Prove {
		res.Value = snap.GetKVStore(key).Get(req.Data)
		return res, nil
	}
	value, proof, err := snap.Prove(path[0], req.Data)
	switch {
	case errors.Is(err, rootmulti.ErrKeyNotFound):
		return types.StateQueryResult{}, appcore.ErrNotFound.Wrapf("key %X not found in %s; absence proofs are not supported", req.Data, path[0])
	case err != nil:
		return types.StateQueryResult{}, err
	}
	res.Value = value
	res.Proof = proof
	return res, nil
}

func (app *BaseApp) queryApp(ctx context.Context, snap *rootmulti.Snapshot, path []string, req types.StateQuery) (types.StateQueryResult, error) {
	if len(path) != 1 {
		return types.StateQueryResult{}, appcore.ErrUnknownRequest.Wrap("expected /app/<query>")
	}
	switch path[0] {
	case "simulate":
		outcome, err := app.Simulate(ctx, req.Data)
		if err != nil {
			return types.StateQueryResult{}, err
		}
		bz, err := cramberry.Marshal(&outcome)
		if err != nil {
			return types.StateQueryResult{}, errors.Wrap(err, "failed to encode outcome")
		}
		return types.StateQueryResult{Value: bz}, nil
	case "version":
		return types.StateQueryResult{Value: []byte(app.appVersion)}, nil
	default:
		return types.StateQueryResult{}, appcore.ErrUnknownRequest.Wrapf("unknown app query %q", path[0])
	}
}

func (app *BaseApp) queryModule(ctx context.Context, snap *rootmulti.Snapshot, path []string, req types.StateQuery) (types.StateQueryResult, error) {
	querier, ok := app.registry.QueryRoute(path[0])
	if !ok {
		return types.StateQueryResult{}, appcore.ErrUnknownRequest.Wrapf("unknown query route %q", path[0])
	}
	cs := app.chain.Load()
	header := sdk.Header{ChainID: cs.chainID, Height: snap.Version()}
	qctx := sdk.NewContext(snap.CacheMultiStore(), header, sdk.ExecModeQuery, app.logger).
		WithContext(ctx).
		WithConsensusParams(cs.params)
	value, err := querier(qctx, path[1:], req)
	if err != nil {
		return types.StateQueryResult{}, err
	}
	return types.StateQueryResult{Value: value}, nil
}

func queryResultFromError(err error) types.StateQueryResult {
	codespace, code, log := appcore.ResultInfo(err)
	return types.StateQueryResult{Code: code, Codespace: codespace, Info: log}
}
