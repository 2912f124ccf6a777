package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                    string // connection string for the database
	WaitForServices       string // duration to wait for other services to be ready
	LogLevel              string // sets the log level (zap log level values)
	SQLLogLevel           string // sets the log level for sql subsystem
	LogFormat             string // text vs json
	LogConfig             string // path to log config file
	EnableTelemetry       bool   // enable telemetry
	TelemetryEndpoint     string // endpoint for telemetry
	TelemetryStdout       bool   // write telemetry data to stdout instead of the endpoint
	ProfilingPort         int    // port for profiling
	ServerAddr            string // listen addr for http server (insecure)
	TLSServerAddr         string // listen addr for http server (tls)
	TLSCertFile           string // path to TLS certificate
	TLSKeyFile            string // path to TLS key
	TLSCAFile             string // path to TLS CA
	TraefikCerts          string // path to traefik certs file
	TraefikCertDomain     string // the domain to lookup within the traefik certs
	PredictorURL          string // base URL of the prediction server
	PredictorTimeout      string // timeout for requests to the prediction server
	LookupCacheExpiration string // how long teams and circuits are cached
	SessionStore          string // session store type (memory, nats, postgres)
	SessionTimeout        string // idle duration after which a session is dropped
	SessionCookieName     string // name of the cookie carrying the session id
	NatsURL               string // URL of the NATS server (session store nats)
	PredictionLog         bool   // if true, predictions are written to the prediction_log table
)

// Config holds the configuration values which are used by the application
type Config struct {
	SecureCookie   bool     // if true, the session cookie is flagged Secure
	AllowedOrigins []string // origins allowed to send credentialed cross-origin requests
}
