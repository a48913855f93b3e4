package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arya-analytics/beacon"
	"github.com/arya-analytics/beacon/internal/address"
	"github.com/arya-analytics/beacon/internal/telemetry"
	beacongrpc "github.com/arya-analytics/beacon/transport/grpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	selfAddr         string
	peerAddrs        []string
	gossipPeriod     time.Duration
	gossipBatchSize  int
	attributesPeriod time.Duration
	rpcTimeout       time.Duration
	minLease         time.Duration
	maxLease         time.Duration
	metricsAddr      string
	debug            bool
)

var rootCmd = &cobra.Command{
	Use:   "beacond",
	Short: "beacond runs a beacon discovery server",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&selfAddr, "self", "localhost:8500", "this server's address among the peers")
	rootCmd.Flags().StringSliceVar(&peerAddrs, "peers", nil, "full fixed peer set, including --self")
	rootCmd.Flags().DurationVar(&gossipPeriod, "gossip-period", time.Second, "interval between gossip ticks")
	rootCmd.Flags().IntVar(&gossipBatchSize, "gossip-batch-size", 1000, "inbound gossip sub-batch size")
	rootCmd.Flags().DurationVar(&attributesPeriod, "attributes-update-period", time.Minute, "minimum interval between attribute pushes per member")
	rootCmd.Flags().DurationVar(&rpcTimeout, "rpc-timeout", 0, "per-dispatch gossip timeout (0 = gossip period)")
	rootCmd.Flags().DurationVar(&minLease, "min-lease", time.Second, "minimum client lease duration")
	rootCmd.Flags().DurationVar(&maxLease, "max-lease", 5*time.Minute, "maximum client lease duration")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "localhost:8501", "metrics and introspection listen address")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func run(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	peers := make([]address.Address, 0, len(peerAddrs))
	for _, addr := range peerAddrs {
		peers = append(peers, address.Address(addr))
	}

	srv, err := beacon.New(beacon.Config{
		Self:                   address.Address(selfAddr),
		Peers:                  peers,
		Transport:              beacongrpc.New(),
		GossipPeriod:           gossipPeriod,
		GossipBatchSize:        gossipBatchSize,
		AttributesUpdatePeriod: attributesPeriod,
		RPCTimeout:             rpcTimeout,
		MinLease:               minLease,
		MaxLease:               maxLease,
		Logger:                 logger,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.MetricsHandler())
	mux.HandleFunc("/introspect", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(srv.Introspection())
	})
	httpSrv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	return srv.Close()
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
