package api

import (
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/service"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
)

// HealthServiceName is reported by the gRPC health endpoint
const HealthServiceName = "frp.v1.PredictorService"

type Option func(*Server)

func WithSessionConfig(cfg *session.Config) Option {
	return func(s *Server) {
		s.sessionCfg = cfg
	}
}

func WithHandlerOptions(opts ...connect.HandlerOption) Option {
	return func(s *Server) {
		s.connectOpts = append(s.connectOpts, opts...)
	}
}

// WithHealthChecker replaces the default static checker
func WithHealthChecker(c *grpchealth.StaticChecker) Option {
	return func(s *Server) {
		s.health = c
	}
}

type Server struct {
	svc         *service.PredictorService
	sessionCfg  *session.Config
	connectOpts []connect.HandlerOption
	health      *grpchealth.StaticChecker
	log         *log.Logger
}

func NewServer(svc *service.PredictorService, opts ...Option) *Server {
	ret := &Server{
		svc: svc,
		log: log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.sessionCfg == nil {
		ret.sessionCfg = session.NewConfig()
	}
	if ret.health == nil {
		ret.health = grpchealth.NewStaticChecker(HealthServiceName)
	}
	return ret
}

// Health gives access to the checker, e.g. to report NOT_SERVING on shutdown
func (s *Server) Health() *grpchealth.StaticChecker {
	return s.health
}

// Handler returns the complete http handler of the api
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	withSession := s.sessionMiddleware
	mux.Handle("GET /api/session", withSession(s.getSession))
	mux.HandleFunc("DELETE /api/session", s.deleteSession)

	mux.Handle("POST /api/grid/assign", withSession(s.assign))
	mux.Handle("POST /api/grid/pit-lane", withSession(s.moveToPitLane))
	mux.Handle("POST /api/grid/not-racing", withSession(s.moveToNotRacing))
	mux.Handle("POST /api/grid/to-grid", withSession(s.moveToGrid))
	mux.Handle("POST /api/grid/transfer", withSession(s.transfer))
	mux.Handle("POST /api/grid/remove", withSession(s.remove))
	mux.Handle("POST /api/grid/clear", withSession(s.clearAll))
	mux.Handle("GET /api/grid/available/{slot}", withSession(s.available))
	mux.Handle("PUT /api/selection", withSession(s.selection))
	mux.Handle("POST /api/predict", withSession(s.predict))
	mux.Handle("GET /api/prediction", withSession(s.lastPrediction))

	mux.HandleFunc("GET /api/teams", s.teams)
	mux.HandleFunc("GET /api/circuits", s.circuits)
	mux.HandleFunc("GET /api/driver-stats", s.driverStats)
	mux.HandleFunc("GET /api/constructor-standings", s.constructorStandings)

	mux.Handle(grpchealth.NewHandler(s.health, s.connectOpts...))
	reflector := grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName)
	mux.Handle(grpcreflect.NewHandlerV1(reflector, s.connectOpts...))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector, s.connectOpts...))

	return otelhttp.NewHandler(mux, "frp.api")
}
