package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/app"
	"github.com/blockberries/appcore/config"
	appgrpc "github.com/blockberries/appcore/grpc"
	"github.com/blockberries/appcore/log"
	"github.com/blockberries/appcore/server"
	"github.com/blockberries/appcore/store/db"
)

const _shutdownTimeout = 10 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Short:   "Serve the application to a consensus engine over gRPC.",
		Example: "appd run --home ~/.appcore",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, err := homeDir(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if err := log.InitLoggers(cfg.Log); err != nil {
		return err
	}
	logger := log.Logger("appd")

	kv, err := db.New(cfg.Store.DB)
	if err != nil {
		return err
	}
	application, err := app.New(kv, app.Options{
		MinGasPrice: cfg.App.MinGasPrice,
		KeepRecent:  cfg.Store.KeepRecent,
		Logger:      log.Logger("app"),
	})
	if err != nil {
		kv.Close()
		return err
	}
	info, err := application.Info(ctx)
	if err != nil {
		application.Close()
		return err
	}
	if cfg.App.ChainID != "" && info.ChainID != "" && info.ChainID != cfg.App.ChainID {
		application.Close()
		return errors.Errorf("state belongs to chain %q, config expects %q", info.ChainID, cfg.App.ChainID)
	}
	logger.Info("Loaded application state.",
		zap.Uint64("version", info.LastVersion),
		zap.Stringer("appHash", info.LastAppHash),
		zap.String("chainID", info.ChainID))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	halted := make(chan *appcore.HaltError, 1)
	gs := appgrpc.NewGRPCServer(application,
		server.WithLogger(log.Logger("server")),
		server.WithHaltHandler(func(h *appcore.HaltError) {
			logger.Error("Application halted.", zap.Uint64("height", h.Height), zap.String("reason", h.Reason), zap.Error(h.Err))
			select {
			case halted <- h:
			default:
			}
			cancel()
		}),
	)
	defer func() {
		if err := gs.Server().Close(); err != nil {
			logger.Error("Failed to close application.", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", cfg.RPC.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.RPC.ListenAddr)
	}
	grpcServer := gs.NewServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Serving application.", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return errors.Wrap(err, "grpc server failed")
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("Serving metrics.", zap.String("addr", cfg.Metrics.ListenAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server failed")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down.")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(_shutdownTimeout):
			grpcServer.Stop()
		}
		if metricsServer != nil {
			sctx, scancel := context.WithTimeout(context.Background(), _shutdownTimeout)
			defer scancel()
			return metricsServer.Shutdown(sctx)
		}
		return nil
	})

	err = g.Wait()
	select {
	case h := <-halted:
		return h
	default:
	}
	return err
}
