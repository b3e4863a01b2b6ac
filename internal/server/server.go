package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/config"
	apperrors "github.com/iForgotThePlusC/Wind-Turbines/internal/errors"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/logging"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization/layout"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server hosts layout sessions over HTTP and JSON-RPC. Each session wraps one
// optimizer; the server serializes access to it and can drive it in the
// background at a fixed tick.
type Server struct {
	cfg     *config.Config
	logger  Logger
	zap     *zap.Logger
	metrics *metrics

	sessions   map[string]*Session
	sessionsMu sync.RWMutex // Protects the sessions map
}

// Option customizes a Server.
type Option func(*serverOptions)

type serverOptions struct {
	registerer prometheus.Registerer
}

// WithRegisterer registers the server's metrics with reg instead of a private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *serverOptions) {
		o.registerer = reg
	}
}

// NewServer creates a server instance with the given config and logger.
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	o := serverOptions{registerer: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		zap:      logging.NewZapLogger(logger.WithFields(map[string]interface{}{"component": "layout"})),
		metrics:  newMetrics(o.registerer),
		sessions: make(map[string]*Session),
	}
}

// CreateRequest starts a session. Unset fields take the configured defaults.
// When Positions is set the session starts from that layout and Turbines is
// ignored.
type CreateRequest struct {
	Turbines     *int               `json:"turbines,omitempty"`
	Delta        *float64           `json:"delta,omitempty"`
	LearningRate *float64           `json:"learning_rate,omitempty"`
	Seed         *int64             `json:"seed,omitempty"`
	Positions    []geometry.Vector2 `json:"positions,omitempty"`
}

// ConfigureRequest changes a session. A new turbine count rebuilds the
// optimizer from a fresh random layout.
type ConfigureRequest struct {
	Turbines     *int     `json:"turbines,omitempty"`
	Delta        *float64 `json:"delta,omitempty"`
	LearningRate *float64 `json:"learning_rate,omitempty"`
}

// CreateLayout creates, randomizes and registers a new session.
func (s *Server) CreateLayout(req CreateRequest) (*LayoutState, error) {
	const op = "CreateLayout"

	n := s.cfg.Layout.Turbines
	if req.Turbines != nil {
		n = s.cfg.ClampTurbines(*req.Turbines)
	}
	if req.Positions != nil {
		n = len(req.Positions)
		if n < s.cfg.Layout.MinTurbines || n > s.cfg.Layout.MaxTurbines {
			return nil, apperrors.Invalidf("%d positions outside [%d, %d]", n, s.cfg.Layout.MinTurbines, s.cfg.Layout.MaxTurbines).WithOperation(op)
		}
	}

	id := uuid.NewString()
	delta, rate := s.cfg.Layout.Delta, s.cfg.Layout.LearningRate
	if req.Delta != nil {
		delta = *req.Delta
	}
	if req.LearningRate != nil {
		rate = *req.LearningRate
	}

	opts := []layout.Option{
		layout.WithLogger(s.zap.With(zap.String("session", id))),
		layout.WithDelta(delta),
		layout.WithLearningRate(rate),
	}
	if req.Seed != nil {
		opts = append(opts, layout.WithSeed(*req.Seed))
	}

	optimizer, err := layout.New(s.cfg.LayoutConfig(n), opts...)
	if err != nil {
		return nil, invalid(err, op)
	}
	if req.Positions != nil {
		if err := optimizer.SetPositions(req.Positions); err != nil {
			return nil, invalid(err, op)
		}
	} else {
		optimizer.Randomize()
	}

	now := time.Now()
	sess := &Session{
		ID:        id,
		CreatedAt: now,
		optimizer: optimizer,
		status:    StatusIdle,
		updatedAt: now,
	}

	s.sessionsMu.Lock()
	if len(s.sessions) >= s.cfg.Simulation.MaxSessions {
		s.sessionsMu.Unlock()
		return nil, apperrors.Conflictf("session limit %d reached", s.cfg.Simulation.MaxSessions).WithOperation(op)
	}
	s.sessions[id] = sess
	s.sessionsMu.Unlock()
	s.metrics.sessions.Inc()

	s.logger.Info("Layout session created", map[string]interface{}{
		"session_id": id,
		"turbines":   n,
		"delta":      delta,
		"rate":       rate,
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// ListLayouts returns the ids of all sessions in ascending order.
func (s *Server) ListLayouts() []string {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LayoutStatus returns the current state of a session.
func (s *Server) LayoutStatus(id string) (*LayoutState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// StepLayout runs count synchronous steps, 1 when count is zero.
func (s *Server) StepLayout(id string, count int) (*LayoutState, error) {
	const op = "StepLayout"

	if count == 0 {
		count = 1
	}
	if count < 0 || count > s.cfg.Simulation.MaxStepsPerRequest {
		return nil, apperrors.Invalidf("count %d outside [1, %d]", count, s.cfg.Simulation.MaxStepsPerRequest).WithOperation(op)
	}

	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.stepLocked(count, s.metrics)
	return sess.snapshotLocked(), nil
}

// ConfigureLayout applies req to a session. A rejected request leaves the
// session untouched.
func (s *Server) ConfigureLayout(id string, req ConfigureRequest) (*LayoutState, error) {
	const op = "ConfigureLayout"

	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	current := sess.optimizer
	delta, rate := current.Delta(), current.LearningRate()
	if req.Delta != nil {
		delta = *req.Delta
	}
	if req.LearningRate != nil {
		rate = *req.LearningRate
	}

	n := current.Turbines()
	if req.Turbines != nil {
		n = s.cfg.ClampTurbines(*req.Turbines)
	}

	if n != current.Turbines() {
		// A new count replaces the optimizer wholesale
		next, err := layout.New(s.cfg.LayoutConfig(n),
			layout.WithLogger(s.zap.With(zap.String("session", id))),
			layout.WithDelta(delta),
			layout.WithLearningRate(rate),
		)
		if err != nil {
			return nil, invalid(err, op)
		}
		next.Randomize()
		sess.optimizer = next
		s.metrics.power.DeleteLabelValues(id)
	} else {
		previous := current.Delta()
		if err := current.SetDelta(delta); err != nil {
			return nil, invalid(err, op)
		}
		if err := current.SetLearningRate(rate); err != nil {
			_ = current.SetDelta(previous)
			return nil, invalid(err, op)
		}
	}
	sess.updatedAt = time.Now()

	s.logger.Info("Layout session configured", map[string]interface{}{
		"session_id": id,
		"turbines":   n,
		"delta":      delta,
		"rate":       rate,
	})
	return sess.snapshotLocked(), nil
}

// RandomizeLayout scatters the session's turbines afresh.
func (s *Server) RandomizeLayout(id string) (*LayoutState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.optimizer.Randomize()
	sess.updatedAt = time.Now()
	return sess.snapshotLocked(), nil
}

// StartLayout starts stepping a session in the background once per tick.
func (s *Server) StartLayout(id string) (*LayoutState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.status == StatusRunning {
		return nil, apperrors.Conflictf("layout %s is already running", id).WithOperation("StartLayout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sess.cancel, sess.done = cancel, done
	sess.status = StatusRunning
	sess.updatedAt = time.Now()
	go sess.drive(ctx, s.cfg.Simulation.TickInterval, s.metrics, done)

	s.logger.Info("Layout session started", map[string]interface{}{
		"session_id": id,
		"tick":       s.cfg.Simulation.TickInterval.String(),
	})
	return sess.snapshotLocked(), nil
}

// StopLayout stops a session's background driver.
func (s *Server) StopLayout(id string) (*LayoutState, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	if !sess.stop() {
		return nil, apperrors.Conflictf("layout %s is not running", id).WithOperation("StopLayout")
	}
	s.logger.Info("Layout session stopped", map[string]interface{}{"session_id": id})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// DeleteLayout stops and removes a session.
func (s *Server) DeleteLayout(id string) error {
	s.sessionsMu.Lock()
	sess, exists := s.sessions[id]
	if exists {
		delete(s.sessions, id)
	}
	s.sessionsMu.Unlock()

	if !exists {
		return apperrors.NotFoundf("layout %s not found", id).WithOperation("DeleteLayout")
	}

	sess.stop()
	s.metrics.sessions.Dec()
	s.metrics.power.DeleteLabelValues(id)
	s.logger.Info("Layout session deleted", map[string]interface{}{"session_id": id})
	return nil
}

// Profile describes how one wind direction sees a session's layout.
type Profile struct {
	Angle       int               `json:"angle"`
	Power       float64           `json:"power"`
	Intervals   []layout.Interval `json:"intervals"`
	Directional []float64         `json:"directional_powers"`
	MeanPower   float64           `json:"mean_power"`
}

// LayoutProfile evaluates the current layout of a session for one direction
// and returns every direction's power alongside.
func (s *Server) LayoutProfile(id string, angle int) (*Profile, error) {
	if angle < 0 || angle >= layout.AngleCount {
		return nil, apperrors.Invalidf("angle %d outside [0, %d)", angle, layout.AngleCount).WithOperation("LayoutProfile")
	}

	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	o := sess.optimizer
	positions := o.Positions()
	powers := o.DirectionalPowers(positions)
	return &Profile{
		Angle:       angle,
		Power:       powers[angle],
		Intervals:   o.Profile(positions, angle),
		Directional: powers,
		MeanPower:   o.MeanPower(positions),
	}, nil
}

// Close stops every background driver.
func (s *Server) Close() error {
	s.sessionsMu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessionsMu.RUnlock()

	for _, sess := range sessions {
		sess.stop()
	}
	return nil
}

func (s *Server) session(id string) (*Session, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, apperrors.NotFoundf("layout %s not found", id)
	}
	return sess, nil
}

// invalid converts optimizer validation errors into InvalidArgument errors.
func invalid(err error, op string) error {
	if optErr, ok := optimization.IsOptimizationError(err); ok && optErr.Param != "" {
		return apperrors.Wrapf(err, "invalid %s", optErr.Param).WithKind(apperrors.InvalidArgument).WithOperation(op)
	}
	return apperrors.Wrap(err, "layout setup failed").WithOperation(op)
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1/layouts", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Patch("/", s.handleConfigure)
			r.Delete("/", s.handleDelete)
			r.Post("/step", s.handleStep)
			r.Post("/randomize", s.handleRandomize)
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Get("/profile", s.handleProfile)
		})
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}
