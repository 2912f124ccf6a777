package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/otelconnect"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/config"
	"github.com/mpapenbr/f1-race-predictor/pkg/server/api"
	"github.com/mpapenbr/f1-race-predictor/pkg/utils"
)

var appConfig config.Config // holds processed config values

//nolint:funlen // by design
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the race predictor server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"addr",
		"a",
		"localhost:8080",
		"http server listen address")
	cmd.Flags().StringVar(&config.TLSServerAddr,
		"tls-addr",
		"",
		"https server listen address (requires certificates)")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"file containing the server certificate")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"file containing the server key")
	cmd.Flags().StringVar(&config.TLSCAFile,
		"tls-ca",
		"",
		"file containing the root CA for client certificates")
	cmd.Flags().StringVar(&config.TraefikCerts,
		"traefik-certs",
		"",
		"traefik acme.json to take the certificate from")
	cmd.Flags().StringVar(&config.TraefikCertDomain,
		"traefik-domain",
		"",
		"domain to look up in the traefik certs")

	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"debug",
		"controls the log level for sql methods")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format (json, text)")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"file with logger filter rules")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().BoolVar(&config.TelemetryStdout,
		"telemetry-stdout",
		false,
		"write telemetry data to stdout")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")

	cmd.Flags().StringVar(&config.PredictorURL,
		"predictor-url",
		"http://localhost:8000",
		"base URL of the prediction server")
	cmd.Flags().StringVar(&config.PredictorTimeout,
		"predictor-timeout",
		"30s",
		"timeout for requests to the prediction server")
	cmd.Flags().StringVar(&config.LookupCacheExpiration,
		"lookup-cache-expiration",
		"5m",
		"how long teams and circuits are cached")

	cmd.Flags().StringVar(&config.SessionStore,
		"session-store",
		"memory",
		"where sessions are kept (memory, nats, postgres)")
	cmd.Flags().StringVar(&config.SessionTimeout,
		"session-timeout",
		"30m",
		"sessions are removed after this idle duration")
	cmd.Flags().StringVar(&config.SessionCookieName,
		"session-cookie",
		"frp_sessionid",
		"name of the session cookie")
	cmd.Flags().BoolVar(&appConfig.SecureCookie,
		"secure-cookie",
		false,
		"flag the session cookie as secure")
	cmd.Flags().StringSliceVar(&appConfig.AllowedOrigins,
		"allowed-origins",
		[]string{"http://localhost:5173"},
		"origins of the web frontend allowed for cross-origin requests (comma separated)")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"nats://localhost:4222",
		"NATS server (session store nats)")
	cmd.Flags().BoolVar(&config.PredictionLog,
		"prediction-log",
		false,
		"write a summary of every prediction to the database")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func parseDuration(value string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn("Invalid duration value. Using default",
			log.String("value", value),
			log.Duration("default", defaultVal))
		return defaultVal
	}
	return d
}

func setupLogger() (logger, sqlLogger *log.Logger) {
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.New(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))

	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))

		sqlLogger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if config.LogConfig != "" {
		cfg, err := log.LoadConfig(config.LogConfig)
		if err != nil {
			logger.Warn("Could not load log config", log.ErrorField(err))
			return logger, sqlLogger
		}
		if filtered, err := cfg.Apply(logger); err == nil {
			logger = filtered
		} else {
			logger.Warn("Invalid log filter rules", log.ErrorField(err))
		}
	}
	return logger, sqlLogger
}

//nolint:funlen,cyclop // by design
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, sqlLogger := setupLogger()
	log.ResetDefault(logger)
	ctx = log.AddToContext(ctx, logger)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debug("Config:",
		log.String("addr", config.ServerAddr),
		log.String("predictorUrl", config.PredictorURL),
		log.String("sessionStore", config.SessionStore),
		log.Bool("predictionLog", config.PredictionLog),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	var telemetry *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	deps, err := setupDependencies(ctx, sqlLogger, telemetry != nil)
	if err != nil {
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}
	defer deps.close()

	handlerOpts := []connect.HandlerOption{}
	if myOtel, oErr := otelconnect.NewInterceptor(); oErr != nil {
		log.Warn("Could not create otel interceptor", log.ErrorField(oErr))
	} else {
		handlerOpts = append(handlerOpts, connect.WithInterceptors(myOtel))
	}
	apiServer := api.NewServer(deps.service,
		api.WithSessionConfig(deps.sessionCfg),
		api.WithHandlerOptions(handlerOpts...))
	handler := h2c.NewHandler(newCORS(appConfig.AllowedOrigins).Handler(apiServer.Handler()), &http2.Server{})

	servers := []*http.Server{}
	errChan := make(chan error, 2)
	startServer := func(srv *http.Server, tls bool) {
		servers = append(servers, srv)
		go func() {
			var err error
			if tls {
				log.Info("Starting https server", log.String("addr", srv.Addr))
				err = srv.ListenAndServeTLS("", "")
			} else {
				log.Info("Starting http server", log.String("addr", srv.Addr))
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}
	//nolint:gosec // by design
	startServer(&http.Server{Addr: config.ServerAddr, Handler: handler}, false)
	if config.TLSServerAddr != "" {
		if tlsConfig := NewTLSConfigProvider(ctx); tlsConfig != nil {
			//nolint:gosec // by design
			startServer(&http.Server{
				Addr:      config.TLSServerAddr,
				Handler:   handler,
				TLSConfig: tlsConfig,
			}, true)
		} else {
			log.Warn("No certificate available, https server not started")
		}
	}
	log.Info("Server started")
	setupGoRoutinesDump()

	select {
	case <-ctx.Done():
		log.Debug("Got signal", log.ErrorField(context.Cause(ctx)))
	case err = <-errChan:
		log.Error("server stopped unexpectedly", log.ErrorField(err))
	}

	apiServer.Health().SetStatus(api.HealthServiceName, grpchealth.StatusNotServing)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	wg := sync.WaitGroup{}
	for _, srv := range servers {
		wg.Go(func() {
			if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
				log.Warn("shutdown failed", log.String("addr", srv.Addr), log.ErrorField(sErr))
			}
		})
	}
	wg.Wait()
	if telemetry != nil {
		telemetry.Shutdown()
	}

	log.Info("Server terminated")
	return err
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

// waitForRequiredServices blocks until the database and NATS are reachable
// if they are needed. The prediction server is optional.
func waitForRequiredServices() {
	timeout := parseDuration(config.WaitForServices, 60*time.Second)

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		defer wg.Done()
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}

	if needsDatabase() {
		if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
			wg.Add(1)
			go checkTCP(postgresAddr)
		}
	}
	if config.SessionStore == "nats" {
		if natsAddr := utils.ExtractFromServiceURL(config.NatsURL); natsAddr != "" {
			wg.Add(1)
			go checkTCP(natsAddr)
		}
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := utils.WaitForHTTPResponse(config.PredictorURL, timeout); err != nil {
			log.Warn("prediction server not reachable, lookups will be empty",
				log.ErrorField(err))
		}
	}()
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}

func needsDatabase() bool {
	return config.SessionStore == "postgres" || config.PredictionLog
}

// newCORS allows credentialed requests from the configured origins only.
// Origins are compared exactly, same-origin requests are not affected.
func newCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			return lo.Contains(allowedOrigins, origin)
		},
		AllowCredentials: true,
		AllowedHeaders:   []string{"*"},
		ExposedHeaders: []string{
			// Content-Type is in the default safelist.
			"Accept",
			"Accept-Encoding",
			"Accept-Post",
			"Connect-Accept-Encoding",
			"Connect-Content-Encoding",
			"Content-Encoding",
			"Grpc-Accept-Encoding",
			"Grpc-Encoding",
			"Grpc-Message",
			"Grpc-Status",
			"Grpc-Status-Details-Bin",
		},
		MaxAge: int(2 * time.Hour / time.Second),
	})
}
