package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/grid"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	"github.com/mpapenbr/f1-race-predictor/pkg/predict"
	"github.com/mpapenbr/f1-race-predictor/pkg/repository"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
)

var (
	ErrNoCircuit     = errors.New("no circuit selected")
	ErrNoPredictions = errors.New("no predictions")
	ErrUnknownDriver = errors.New("unknown driver")
)

var (
	tracer = otel.Tracer("frp")
	meter  = otel.Meter("frp")
)

// Collaborator is the external prediction server
type Collaborator interface {
	Teams(ctx context.Context) (model.Teams, error)
	Circuits(ctx context.Context) ([]model.Circuit, error)
	DriverStats(ctx context.Context) (map[string]model.DriverStats, error)
	ConstructorStandings(ctx context.Context) ([]model.ConstructorStanding, error)
	Predict(ctx context.Context, req *model.PredictionRequest) (*model.PredictionResult, error)
}

type (
	Option func(*PredictorService)
	// View is what a client sees of its session
	View struct {
		ID        string           `json:"id"`
		Grid      []model.GridSlot `json:"grid"`
		PitLane   []model.Entry    `json:"pitLane"`
		NotRacing []model.Entry    `json:"notRacing"`
		Circuit   string           `json:"circuit"`
		Weather   model.Weather    `json:"weather"`
		Loading   bool             `json:"loading"`
	}
	// Selection carries optional changes of circuit and weather
	Selection struct {
		Circuit *string        `json:"circuit,omitempty"`
		Weather *model.Weather `json:"weather,omitempty"`
	}
	// sessionEntry holds the in-memory part of a session.
	// ops serializes state changes, mu guards loading and result.
	// users and lastUsed are guarded by PredictorService.mu.
	sessionEntry struct {
		ops      sync.Mutex
		mu       sync.Mutex
		loading  int
		result   *model.PredictionResult
		users    int
		lastUsed time.Time
	}
)

func WithPredictionLog(db repository.Querier) Option {
	return func(s *PredictorService) {
		s.db = db
	}
}

// WithClock replaces time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *PredictorService) {
		s.now = now
	}
}

// WithCleanup removes idle session entries every interval until ctx is done
func WithCleanup(ctx context.Context, interval time.Duration) Option {
	return func(s *PredictorService) {
		s.cleanupCtx = ctx
		s.cleanupInterval = interval
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *PredictorService) {
		s.log = l
	}
}

type PredictorService struct {
	store   session.Store
	collab  Collaborator
	db      repository.Querier
	log     *log.Logger
	mu      sync.Mutex
	entries map[string]*sessionEntry
	counter metric.Int64Counter
	now     func() time.Time

	cleanupCtx      context.Context
	cleanupInterval time.Duration
}

func NewPredictorService(
	store session.Store,
	collab Collaborator,
	opts ...Option,
) *PredictorService {
	ret := &PredictorService{
		store:   store,
		collab:  collab,
		log:     log.Default().Named("service"),
		entries: map[string]*sessionEntry{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.cleanupCtx != nil && ret.cleanupInterval > 0 {
		go ret.cleanupLoop()
	}
	var err error
	ret.counter, err = meter.Int64Counter("frp.predictions",
		metric.WithDescription("number of successful predictions"))
	if err != nil {
		ret.log.Warn("could not create prediction counter", log.ErrorField(err))
	}
	return ret
}

// Session returns the session for id. A new session is created if id is
// unknown or expired. The returned data carries the id to use from now on.
func (s *PredictorService) Session(ctx context.Context, id string) (*session.Data, error) {
	if id != "" {
		d, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			if err := s.store.Save(ctx, d); err != nil {
				return nil, err
			}
			return d, nil
		case errors.Is(err, session.ErrSessionNotFound),
			errors.Is(err, session.ErrSessionExpired):
			s.forget(id)
		default:
			return nil, err
		}
	}
	d := session.NewData()
	if circuits, err := s.collab.Circuits(ctx); err == nil && len(circuits) > 0 {
		d.Circuit = circuits[0].Name
	}
	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}
	s.log.Debug("new session", log.String("id", d.ID))
	return d, nil
}

func (s *PredictorService) View(ctx context.Context, id string) (*View, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(d), nil
}

func (s *PredictorService) DeleteSession(ctx context.Context, id string) error {
	s.forget(id)
	return s.store.Delete(ctx, id)
}

// Assign puts driver into slot. If constructor is empty it is looked up
// from the current teams.
//
//nolint:whitespace // editor/linter issue
func (s *PredictorService) Assign(
	ctx context.Context, id string, slot int, driver, constructor string,
) (*View, error) {
	if driver != "" && constructor == "" {
		roster := s.roster(ctx)
		c, ok := roster.ConstructorOf(driver)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
		}
		constructor = c
	}
	return s.withGrid(ctx, id, func(g *grid.Store) error {
		return g.Assign(ctx, slot, driver, constructor)
	})
}

func (s *PredictorService) MoveToPitLane(ctx context.Context, id string, slot int) (*View, error) {
	return s.withGrid(ctx, id, func(g *grid.Store) error {
		return g.MoveToPitLane(ctx, slot)
	})
}

func (s *PredictorService) MoveToNotRacing(ctx context.Context, id string, slot int) (*View, error) {
	return s.withGrid(ctx, id, func(g *grid.Store) error {
		return g.MoveToNotRacing(ctx, slot)
	})
}

//nolint:whitespace // editor/linter issue
func (s *PredictorService) MoveToGrid(
	ctx context.Context, id string, from model.Collection, index int,
) (*View, error) {
	return s.withGrid(ctx, id, func(g *grid.Store) error {
		return g.MoveToGrid(ctx, from, index)
	})
}

//nolint:whitespace // editor/linter issue
func (s *PredictorService) Transfer(
	ctx context.Context, id string, from, to model.Collection, index int,
) (*View, error) {
	return s.withGrid(ctx, id, func(g *grid.Store) error {
		return g.MoveBetween(ctx, from, to, index)
	})
}

//nolint:whitespace // editor/linter issue
func (s *PredictorService) Remove(
	ctx context.Context, id string, from model.Collection, index int,
) (*View, error) {
	return s.withGrid(ctx, id, func(g *grid.Store) error {
		return g.Remove(ctx, from, index)
	})
}

// ClearAll empties the grid, resets the weather to dry, selects the first
// circuit and drops the last prediction.
func (s *PredictorService) ClearAll(ctx context.Context, id string) (*View, error) {
	first := ""
	if circuits, err := s.collab.Circuits(ctx); err == nil && len(circuits) > 0 {
		first = circuits[0].Name
	}
	e := s.acquire(id)
	defer s.release(e)
	e.ops.Lock()
	defer e.ops.Unlock()

	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	g := grid.NewStore(grid.WithState(d.Grid))
	if err := g.ClearAll(ctx); err != nil {
		return nil, err
	}
	d.Grid = g.Snapshot()
	d.Weather = model.WeatherDry
	d.Circuit = first
	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.result = nil
	e.mu.Unlock()
	return s.view(d), nil
}

// AvailableFor lists the drivers selectable for slot. Without teams the
// list is empty.
//
//nolint:whitespace // editor/linter issue
func (s *PredictorService) AvailableFor(
	ctx context.Context, id string, slot int,
) ([]model.Entry, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return grid.NewStore(grid.WithState(d.Grid)).AvailableFor(s.roster(ctx), slot)
}

func (s *PredictorService) Select(ctx context.Context, id string, sel Selection) (*View, error) {
	e := s.acquire(id)
	defer s.release(e)
	e.ops.Lock()
	defer e.ops.Unlock()

	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sel.Circuit != nil {
		d.Circuit = *sel.Circuit
	}
	if sel.Weather != nil {
		w, err := model.ParseWeather(string(*sel.Weather))
		if err != nil {
			return nil, err
		}
		d.Weather = w
	}
	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}
	return s.view(d), nil
}

// Predict sends the current grid to the prediction server and replaces the
// returned win probabilities with local scores. On failure the previous
// result is kept and ErrNoPredictions is returned.
//
//nolint:funlen // ok
func (s *PredictorService) Predict(
	ctx context.Context, id string,
) (*model.PredictionResult, error) {
	reqID := uuid.New().String()
	ctx, span := tracer.Start(ctx, "predict",
		trace.WithAttributes(attribute.String("request.id", reqID)))
	defer span.End()

	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Circuit == "" {
		return nil, ErrNoCircuit
	}
	req := &model.PredictionRequest{
		Circuit: d.Circuit,
		Weather: d.Weather,
		Entries: d.Grid.RaceEntries(),
	}
	span.SetAttributes(
		attribute.String("circuit", req.Circuit),
		attribute.String("weather", string(req.Weather)),
		attribute.Int("entries", len(req.Entries)))

	e := s.acquire(id)
	defer s.release(e)
	s.setLoading(e, 1)
	defer s.setLoading(e, -1)

	res, err := s.collab.Predict(ctx, req)
	if err != nil {
		s.log.Warn("prediction failed",
			log.String("requestId", reqID),
			log.String("circuit", req.Circuit),
			log.ErrorField(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrNoPredictions, err)
	}
	ret := predict.NormalizeResult(res, d.Weather)

	e.mu.Lock()
	e.result = ret
	e.mu.Unlock()

	if s.counter != nil {
		s.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("circuit", req.Circuit),
			attribute.String("weather", string(req.Weather))))
	}
	s.logPrediction(ctx, d, ret)
	s.log.Debug("prediction done",
		log.String("requestId", reqID),
		log.Int("entries", len(ret.Predictions)))
	return ret, nil
}

// LastPrediction returns the last successful result of the session or nil
func (s *PredictorService) LastPrediction(id string) *model.PredictionResult {
	e := s.acquire(id)
	defer s.release(e)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

//nolint:whitespace // editor/linter issue
func (s *PredictorService) withGrid(
	ctx context.Context, id string, op func(g *grid.Store) error,
) (*View, error) {
	e := s.acquire(id)
	defer s.release(e)
	e.ops.Lock()
	defer e.ops.Unlock()

	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	g := grid.NewStore(
		grid.WithState(d.Grid),
		grid.WithPersister(session.GridPersistence(s.store, id)),
	)
	if err := op(g); err != nil {
		return nil, err
	}
	d.Grid = g.Snapshot()
	return s.view(d), nil
}

// load reads the session. Sessions that vanished in the meantime are
// recreated empty under the same id.
func (s *PredictorService) load(ctx context.Context, id string) (*session.Data, error) {
	d, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionExpired):
		d = session.NewData()
		d.ID = id
		return d, nil
	default:
		return nil, err
	}
}

func (s *PredictorService) view(d *session.Data) *View {
	st := d.Grid.Clone()
	e := s.acquire(d.ID)
	e.mu.Lock()
	loading := e.loading > 0
	e.mu.Unlock()
	s.release(e)
	return &View{
		ID:        d.ID,
		Grid:      st.GridSlots(),
		PitLane:   st.PitLane,
		NotRacing: st.NotRacing,
		Circuit:   d.Circuit,
		Weather:   d.Weather,
		Loading:   loading,
	}
}

func (s *PredictorService) roster(ctx context.Context) model.Roster {
	teams, err := s.collab.Teams(ctx)
	if err != nil {
		s.log.Warn("could not load teams", log.ErrorField(err))
		return model.Roster{}
	}
	return teams.Roster()
}

// acquire returns the entry of id and marks it as in use.
// Every acquire must be paired with a release.
func (s *PredictorService) acquire(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &sessionEntry{}
		s.entries[id] = e
	}
	e.users++
	e.lastUsed = s.now()
	return e
}

func (s *PredictorService) release(e *sessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.users--
	e.lastUsed = s.now()
}

// forget drops the entry of id. An entry still in use by another request
// is kept so serialization and the loading counter stay intact, only its
// result is cleared.
func (s *PredictorService) forget(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if e.users == 0 {
		delete(s.entries, id)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	e.mu.Lock()
	e.result = nil
	e.mu.Unlock()
}

// RemoveIdleEntries drops in-memory entries of sessions not used for longer
// than the session timeout. Entries in use or with a running prediction stay.
// Returns the number of removed entries.
func (s *PredictorService) RemoveIdleEntries() int {
	timeout := s.store.Timeout()
	if timeout <= 0 {
		return 0
	}
	limit := s.now().Add(-timeout)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if e.users > 0 || !e.lastUsed.Before(limit) {
			continue
		}
		e.mu.Lock()
		loading := e.loading
		e.mu.Unlock()
		if loading > 0 {
			continue
		}
		delete(s.entries, id)
		removed++
	}
	return removed
}

func (s *PredictorService) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.cleanupCtx.Done():
			return
		case <-ticker.C:
			if n := s.RemoveIdleEntries(); n > 0 {
				s.log.Debug("removed idle session entries", log.Int("count", n))
			}
		}
	}
}

func (s *PredictorService) setLoading(e *sessionEntry, delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading += delta
}
