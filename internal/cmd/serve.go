package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shroudlabs/shroud/internal/audit"
	"github.com/shroudlabs/shroud/internal/cache"
	"github.com/shroudlabs/shroud/internal/cloak"
	"github.com/shroudlabs/shroud/internal/config"
	"github.com/shroudlabs/shroud/internal/logging"
	"github.com/shroudlabs/shroud/internal/probe"
	"github.com/shroudlabs/shroud/internal/web"
)

var (
	serveListen    string
	redisAddr      string
	redisPassword  string
	redisDB        int
	mongoURI       string
	mongoDB        string
	probeURL       string
	probeKey       string
	probeTimeout   time.Duration
	connectTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the classification server",
	Long: `Start the HTTP server that classifies visitors and serves the
configured page variants.

The configuration file is watched for changes and reloaded without a
restart. Redis backs the verdict cache and MongoDB stores the audit
trail; both are optional and the server degrades to in-memory stores
when they are not configured.

Example:
  shroud serve --config config.json --listen :8080
  shroud serve --redis-addr localhost:6379 --mongo-uri mongodb://localhost:27017
  shroud serve --probe-url https://vpnapi.io/api --probe-key $VPNAPI_KEY`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", ":8080", "Address to listen on")
	serveCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the verdict cache (empty uses an in-memory cache)")
	serveCmd.Flags().StringVar(&redisPassword, "redis-password", "", "Redis password")
	serveCmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database number")
	serveCmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI for audit logs (empty uses an in-memory store)")
	serveCmd.Flags().StringVar(&mongoDB, "mongo-db", "shroud", "MongoDB database name")
	serveCmd.Flags().StringVar(&probeURL, "probe-url", "", "IP reputation API base URL (empty disables the reputation check)")
	serveCmd.Flags().StringVar(&probeKey, "probe-key", "", "IP reputation API key")
	serveCmd.Flags().DurationVar(&probeTimeout, "probe-timeout", probe.DefaultTimeout, "Per-call timeout for the reputation probe")
	serveCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 10*time.Second, "Timeout for connecting to backing stores at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.Get()

	provider, err := config.NewProvider(configPath, logging.Settings())
	if err != nil {
		return err
	}

	watcher, err := config.NewWatcher(provider, logging.Settings())
	if err != nil {
		return fmt.Errorf("failed to watch configuration: %w", err)
	}
	watcher.Start()
	defer watcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	// Verdict cache: Redis when configured, in-memory otherwise.
	var (
		store       cache.Store
		redisPinger web.Pinger
	)
	if redisAddr != "" {
		rs := cache.NewRedisStore(redisAddr, redisPassword, redisDB)
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("redis unreachable at %s: %w", redisAddr, err)
		}
		defer rs.Close()
		store = rs
		redisPinger = rs
		logger.Info("verdict cache backed by redis", "addr", redisAddr)
	} else {
		store = cache.NewMemoryStore()
		logger.Info("verdict cache is in-memory; verdicts are lost on restart")
	}
	verdicts := cache.NewVerdictCache(store, logging.Cloak())

	// Audit trail: MongoDB when configured, in-memory otherwise.
	var (
		sink        audit.Sink
		mongoPinger web.Pinger
	)
	if mongoURI != "" {
		ms, err := audit.NewMongoSink(ctx, mongoURI, mongoDB)
		if err != nil {
			return fmt.Errorf("mongodb unreachable: %w", err)
		}
		defer ms.Close(context.Background())
		sink = ms
		mongoPinger = ms
		logger.Info("audit trail backed by mongodb", "database", mongoDB)
	} else {
		sink = audit.NewMemorySink(10000)
		logger.Info("audit trail is in-memory; records are lost on restart")
	}
	auditLogger := audit.NewLogger(sink, logging.Audit())

	var prober cloak.Prober
	if probeURL != "" {
		prober = probe.NewClient(probeURL, probeKey, logging.Probe(), probe.WithTimeout(probeTimeout))
	} else {
		logger.Warn("no probe URL configured; the reputation check is disabled")
	}

	engine := cloak.NewEngine(verdicts, prober, logging.Cloak())

	server := web.NewServer(web.Options{
		Config: provider,
		Engine: engine,
		Audit:  auditLogger,
		Logger: logging.Web(),
		Redis:  redisPinger,
		Mongo:  mongoPinger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(serveListen)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	return server.Shutdown(context.Background())
}
