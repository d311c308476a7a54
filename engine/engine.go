package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/backoff"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/coordinator"
	"github.com/xraph/conductor/ext"
	mw "github.com/xraph/conductor/middleware"
	"github.com/xraph/conductor/observability"
	"github.com/xraph/conductor/queue"
	"github.com/xraph/conductor/schedule"
	"github.com/xraph/conductor/store"
	"github.com/xraph/conductor/taskqueue"
)

const instrumentationName = "github.com/xraph/conductor"

// Engine is the fully-wired conductor: a coordinator admitting calls
// against the store's resource ledger, the in-process task queue running
// them and the scheduler firing recurring calls.
type Engine struct {
	config     conductor.Config
	store      store.Store
	logger     *slog.Logger
	extensions *ext.Registry
	registry   *call.Registry

	queue       *taskqueue.Queue
	coordinator *coordinator.Coordinator
	scheduler   *schedule.Scheduler

	exts         []ext.Extension
	mws          []mw.Middleware
	bo           backoff.Strategy
	coordOpts    []coordinator.Option
	tickInterval time.Duration

	queueConfigs []queue.Config
	queueManager *queue.Manager

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg conductor.Config) Option {
	return func(eng *Engine) { eng.config = cfg }
}

// WithLogger sets the logger shared by every subsystem.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers a lifecycle extension.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware adds middleware to the call execution chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithBackoff sets the task queue retry strategy. Defaults to
// backoff.Default().
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithQueueConfig registers lane-level rate limits and concurrency.
// Lanes not listed have no limits.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) { eng.queueConfigs = append(eng.queueConfigs, configs...) }
}

// WithCoordinatorOptions passes extra options to the coordinator, such as
// coordinator.WithTaskHooks.
func WithCoordinatorOptions(opts ...coordinator.Option) Option {
	return func(eng *Engine) { eng.coordOpts = append(eng.coordOpts, opts...) }
}

// WithScheduleTick sets how often the scheduler looks for due entries.
func WithScheduleTick(d time.Duration) Option {
	return func(eng *Engine) { eng.tickInterval = d }
}

// WithTracerProvider sets the OTel TracerProvider used by the tracing
// middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets the OTel MeterProvider used by the metrics
// middleware. If not set, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// New wires an Engine on top of s.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, conductor.ErrNoStore
	}

	eng := &Engine{
		config:       conductor.DefaultConfig(),
		store:        s,
		logger:       slog.Default(),
		registry:     call.NewRegistry(),
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if err := eng.config.Validate(); err != nil {
		return nil, err
	}

	eng.extensions = ext.NewRegistry(eng.logger)
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	if eng.bo == nil {
		eng.bo = backoff.Default()
	}

	eng.extensions.Register(observability.NewMetricsExtension())

	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// The task queue wraps these between its own Recover and Timeout.
	chain := make([]mw.Middleware, 0, 3+len(eng.mws))
	chain = append(chain, tracingMw, metricsMw, mw.Logging(eng.logger))
	chain = append(chain, eng.mws...)

	cfg := eng.config
	queueOpts := []taskqueue.Option{
		taskqueue.WithConcurrency(cfg.Concurrency),
		taskqueue.WithQueues(cfg.Queues...),
		taskqueue.WithPollInterval(cfg.PollInterval),
		taskqueue.WithRetention(cfg.Retention),
		taskqueue.WithReapInterval(cfg.ReapInterval),
		taskqueue.WithLogger(eng.logger),
		taskqueue.WithExtensions(eng.extensions),
		taskqueue.WithMiddleware(chain...),
		taskqueue.WithBackoff(eng.bo),
	}
	if len(eng.queueConfigs) > 0 {
		eng.queueManager = queue.NewManager(eng.queueConfigs...)
		queueOpts = append(queueOpts, taskqueue.WithLimits(eng.queueManager))
	}
	eng.queue = taskqueue.New(eng.registry, queueOpts...)

	coordOpts := append([]coordinator.Option{
		coordinator.WithLogger(eng.logger),
		coordinator.WithExtensions(eng.extensions),
		coordinator.WithConfig(cfg),
	}, eng.coordOpts...)
	eng.coordinator = coordinator.New(eng.queue, s, coordOpts...)

	eng.scheduler = schedule.NewScheduler(s, eng.coordinator.Submit,
		schedule.WithEmitter(eng.extensions),
		schedule.WithLogger(eng.logger),
		schedule.WithTickInterval(eng.tickInterval),
	)

	return eng, nil
}

// Register registers a typed callable with the engine.
func Register[T any](eng *Engine, def *call.Definition[T]) {
	call.RegisterDefinition(eng.registry, def)
}

// Handle registers an untyped handler under name.
func (eng *Engine) Handle(name string, h call.HandlerFunc) {
	eng.registry.Register(name, h)
}

// RegisterSchedule persists a recurring call firing req's callable on
// spec. Registering a name that already exists is not an error, so it is
// safe to call on every boot.
func RegisterSchedule(ctx context.Context, eng *Engine, name, spec string, req *call.Request) error {
	if _, ok := eng.registry.Get(req.Name); !ok {
		return fmt.Errorf("schedule %q: %w: %s", name, conductor.ErrNoHandler, req.Name)
	}
	err := eng.scheduler.Register(ctx, schedule.NewEntry(name, spec, req))
	if errors.Is(err, conductor.ErrDuplicateSchedule) {
		return nil
	}
	return err
}

// Start recovers persisted calls, starts the task queue and then the
// scheduler.
func (eng *Engine) Start(ctx context.Context) error {
	if err := eng.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}
	if err := eng.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

// Stop stops the scheduler first so no new calls fire, then drains the
// coordinator and its queue.
func (eng *Engine) Stop(ctx context.Context) error {
	if err := eng.scheduler.Stop(ctx); err != nil {
		eng.logger.Warn("scheduler stop failed", slog.String("error", err.Error()))
	}
	return eng.coordinator.Stop(ctx)
}

// Coordinator returns the call coordinator.
func (eng *Engine) Coordinator() *coordinator.Coordinator { return eng.coordinator }

// Queue returns the in-process task queue.
func (eng *Engine) Queue() *taskqueue.Queue { return eng.queue }

// Scheduler returns the recurring-call scheduler.
func (eng *Engine) Scheduler() *schedule.Scheduler { return eng.scheduler }

// Registry returns the callable registry.
func (eng *Engine) Registry() *call.Registry { return eng.registry }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Store returns the backing store.
func (eng *Engine) Store() store.Store { return eng.store }

// Config returns the effective configuration.
func (eng *Engine) Config() conductor.Config { return eng.config }

// QueueManager returns the lane limiter, or nil if no lane was configured.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }
