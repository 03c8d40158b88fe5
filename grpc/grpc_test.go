package appgrpc_test

import (
	"context"
	"encoding/binary"
	"net"
	"testing"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/app"
	appgrpc "github.com/blockberries/appcore/grpc"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/server"
	"github.com/blockberries/appcore/store/db"
	apptest "github.com/blockberries/appcore/testing"
	"github.com/blockberries/appcore/types"
	"github.com/blockberries/appcore/x/bank"
	"github.com/blockberries/appcore/x/counter"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startServer starts a gRPC server on a random port and returns the
// listener address. The server stops when the test ends.
func startServer(t *testing.T, application appcore.Application, opts ...server.Option) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	gs := appgrpc.NewGRPCServer(application, opts...).NewServer()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = gs.Serve(lis)
	}()
	t.Cleanup(func() {
		gs.GracefulStop()
		<-done
	})
	return lis.Addr().String()
}

func dial(t *testing.T, addr string) *appgrpc.Client {
	t.Helper()
	client, err := appgrpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(db.NewMemDB(), app.Options{})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func runBlock(t *testing.T, c *appgrpc.Client, height uint64, txs ...types.Tx) ([]types.TxOutcome, types.CommitResult) {
	t.Helper()
	ctx := context.Background()
	if _, err := c.BeginBlock(ctx, types.BeginBlockRequest{Height: height, ChainID: apptest.DefaultChainID}); err != nil {
		t.Fatalf("BeginBlock: %v", err)
	}
	var outcomes []types.TxOutcome
	for _, tx := range txs {
		out, err := c.DeliverTx(ctx, tx)
		if err != nil {
			t.Fatalf("DeliverTx: %v", err)
		}
		outcomes = append(outcomes, out)
	}
	if _, err := c.EndBlock(ctx, types.EndBlockRequest{Height: height}); err != nil {
		t.Fatalf("EndBlock: %v", err)
	}
	res, err := c.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return outcomes, res
}

func TestGRPC_Lifecycle(t *testing.T) {
	client := dial(t, startServer(t, newApp(t)))
	ctx := context.Background()

	alice, bob := apptest.NewAccount("alice"), apptest.NewAccount("bob")
	appState := apptest.NewGenesis().
		WithAccount(alice, sdk.NewCoin64(apptest.Denom, 100)).
		WithAccount(bob).
		AppState(t)

	info, err := client.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.LastVersion != 0 {
		t.Fatalf("expected empty app, got version %d", info.LastVersion)
	}
	resp, err := client.InitChain(ctx, apptest.DefaultInitChain(appState))
	if err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	if resp.AppHash.IsZero() {
		t.Fatal("expected non-zero genesis AppHash")
	}

	send := alice.NextTx(t, apptest.DefaultChainID, alice.Send(bob.Address, sdk.NewCoin64(apptest.Denom, 30)))
	incr := alice.NextTx(t, apptest.DefaultChainID, &counter.MsgIncrement{Sender: alice.Address, By: 5})
	outcomes, res := runBlock(t, client, 1, send, incr)
	for i, out := range outcomes {
		if !out.OK() {
			t.Fatalf("tx %d failed: %s", i, out.Log)
		}
	}
	if res.Version != 1 || res.AppHash.IsZero() {
		t.Fatalf("unexpected commit result %+v", res)
	}

	qr, err := client.Query(ctx, types.StateQuery{Path: types.QueryPath("/bank/balance/" + bob.Address.String() + "/" + apptest.Denom)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if qr.Code != 0 || qr.Height != 1 {
		t.Fatalf("unexpected query result %+v", qr)
	}

	qr, err = client.Query(ctx, types.StateQuery{Path: "/counter/count"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := binary.BigEndian.Uint64(qr.Value); got != 5 {
		t.Fatalf("expected count 5, got %d", got)
	}
}

func TestGRPC_CheckTxAndSimulate(t *testing.T) {
	client := dial(t, startServer(t, newApp(t)))
	ctx := context.Background()

	alice, bob := apptest.NewAccount("alice"), apptest.NewAccount("bob")
	appState := apptest.NewGenesis().WithAccount(alice, sdk.NewCoin64(apptest.Denom, 100)).AppState(t)
	if _, err := client.Info(ctx); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if _, err := client.InitChain(ctx, apptest.DefaultInitChain(appState)); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	runBlock(t, client, 1)

	good := alice.Tx(t, apptest.DefaultChainID, apptest.DefaultTxOptions(), alice.Send(bob.Address, sdk.NewCoin64(apptest.Denom, 1)))
	v, err := client.CheckTx(ctx, good, types.MempoolFirstSeen)
	if err != nil {
		t.Fatalf("CheckTx: %v", err)
	}
	if !v.Accepted() {
		t.Fatalf("expected accepted, got code %d: %s", v.Code, v.Info)
	}
	if v.Sender != alice.Address.String() {
		t.Errorf("sender = %q, want %q", v.Sender, alice.Address)
	}

	v, err = client.CheckTx(ctx, types.Tx{0x01}, types.MempoolFirstSeen)
	if err != nil {
		t.Fatalf("CheckTx: %v", err)
	}
	if v.Accepted() {
		t.Fatal("expected garbage tx rejected")
	}
	if v.Code != appcore.ErrTxDecode.Code() {
		t.Errorf("code = %d, want %d", v.Code, appcore.ErrTxDecode.Code())
	}

	tooMuch := alice.Tx(t, apptest.DefaultChainID, apptest.DefaultTxOptions(), alice.Send(bob.Address, sdk.NewCoin64(apptest.Denom, 1000)))
	out, err := client.AsSimulator().Simulate(ctx, tooMuch)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if out.Code != appcore.ErrInsufficientFunds.Code() {
		t.Errorf("simulate code = %d, want insufficient funds", out.Code)
	}
	if out.GasUsed == 0 {
		t.Error("expected simulate to report gas used")
	}

	// Simulation keeps nothing.
	qr, err := client.Query(ctx, types.StateQuery{Path: types.QueryPath("/bank/balances/" + alice.Address.String())})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if qr.Code != 0 || qr.Height != 1 {
		t.Fatalf("unexpected query result %+v", qr)
	}
	var balances bank.BalancesResponse
	if err := cramberry.Unmarshal(qr.Value, &balances); err != nil {
		t.Fatalf("decode balances: %v", err)
	}
	if got := balances.Balances.AmountOf(apptest.Denom).Uint64(); got != 100 {
		t.Errorf("alice balance = %d, want 100", got)
	}
}

func TestGRPC_RemoteHalt(t *testing.T) {
	mock := &apptest.MockApp{
		DeliverTxFn: func(context.Context, types.Tx) (types.TxOutcome, error) {
			return types.TxOutcome{}, appcore.NewHaltError(1, "state diverged")
		},
	}
	halted := make(chan *appcore.HaltError, 1)
	client := dial(t, startServer(t, mock, server.WithHaltHandler(func(err *appcore.HaltError) { halted <- err })))
	ctx := context.Background()

	if _, err := client.Info(ctx); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if _, err := client.InitChain(ctx, apptest.DefaultInitChain(nil)); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	if _, err := client.BeginBlock(ctx, types.BeginBlockRequest{Height: 1}); err != nil {
		t.Fatalf("BeginBlock: %v", err)
	}
	_, err := client.DeliverTx(ctx, types.Tx{0x01})
	h, ok := appcore.IsHalt(err)
	if !ok {
		t.Fatalf("expected HaltError, got %v", err)
	}
	if h.Height != 1 || h.Reason != "state diverged" {
		t.Errorf("unexpected halt %+v", h)
	}
	if got := <-halted; got.Reason != "state diverged" {
		t.Errorf("server halt handler got %v", got)
	}
}

func TestGRPC_MockCompliance(t *testing.T) {
	ctx := context.Background()
	client := dial(t, startServer(t, &apptest.MockApp{}))
	if _, err := client.Info(ctx); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if _, err := client.InitChain(ctx, apptest.DefaultInitChain(nil)); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	for h := uint64(1); h <= 3; h++ {
		_, res := runBlock(t, client, h, types.Tx{byte(h)})
		if res.Version != h {
			t.Fatalf("version = %d, want %d", res.Version, h)
		}
	}
}
