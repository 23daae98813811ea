package elodin

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/saxena-dev/elodin/component"
	"github.com/saxena-dev/elodin/history"
	"github.com/saxena-dev/elodin/log"
	"github.com/saxena-dev/elodin/statsd"
	"github.com/saxena-dev/elodin/storage"
	"github.com/saxena-dev/elodin/system"
	"github.com/saxena-dev/elodin/types"
)

// World is the builder form of a simulation: entities, components, and
// assets accumulate here until Compile freezes the schema and hands back an
// executable. A world compiles exactly once.
type World struct {
	registry *component.Manager
	store    *storage.Store
	logger   zerolog.Logger
	cfg      WorldConfig

	systemNames []string
	compiled    bool
	created     time.Time
}

type WorldOption func(*World)

// WithLogger replaces the world's logger.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(w *World) { w.logger = logger }
}

// WithConfig replaces the environment-derived config.
func WithConfig(cfg WorldConfig) WorldOption {
	return func(w *World) { w.cfg = cfg }
}

func NewWorld(opts ...WorldOption) (*World, error) {
	cfg, err := LoadWorldConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load world config")
	}
	registry := component.NewManager()
	w := &World{
		registry: registry,
		store:    storage.NewStore(registry),
		logger:   zlog.Logger,
		cfg:      cfg,
		created:  time.Now(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if level, err := zerolog.ParseLevel(w.cfg.LogLevel); err == nil {
		w.logger = w.logger.Level(level)
	}
	if w.cfg.StatsdAddress != "" {
		if err := statsd.Init(w.cfg.StatsdAddress, nil); err != nil {
			return nil, eris.Wrap(err, "failed to init statsd")
		}
	}
	return w, nil
}

type spawnConfig struct {
	name string
}

type SpawnOption func(*spawnConfig)

// WithName attaches a unique human-readable name to the spawned entity.
func WithName(name string) SpawnOption {
	return func(c *spawnConfig) { c.name = name }
}

// Spawn creates a new entity holding the bundle's components. Entity ids
// are issued in ascending order and never reused.
func (w *World) Spawn(b Bundle, opts ...SpawnOption) (types.EntityID, error) {
	if w.compiled {
		return 0, eris.Wrap(ErrWorldCompiled, "cannot spawn")
	}
	var cfg spawnConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	id, err := w.store.AllocEntity()
	if err != nil {
		return 0, err
	}
	if cfg.name != "" {
		if err := w.store.NameEntity(id, cfg.name); err != nil {
			return 0, err
		}
	}
	if err := w.applyBundle(id, b); err != nil {
		return 0, eris.Wrapf(err, "failed to spawn entity %d", id)
	}
	return id, nil
}

// Insert attaches the bundle's components to an existing entity. A value
// for a component the entity already holds overwrites it.
func (w *World) Insert(id types.EntityID, b Bundle) error {
	if w.compiled {
		return eris.Wrap(ErrWorldCompiled, "cannot insert")
	}
	if !w.store.EntityExists(id) {
		return eris.Wrapf(storage.ErrUnknownEntity, "id %d", id)
	}
	return w.applyBundle(id, b)
}

// InsertAsset stores an opaque blob and returns its handle. Re-inserting
// identical content under the same name returns the same handle.
func (w *World) InsertAsset(asset storage.Asset) (storage.Handle, error) {
	if w.compiled {
		return 0, eris.Wrap(ErrWorldCompiled, "cannot insert asset")
	}
	return w.store.Assets().Insert(asset)
}

// RegisterComponent registers a component name and type ahead of any value,
// so pipelines can reference components no spawned entity holds yet.
func (w *World) RegisterComponent(
	name string, typ types.ComponentType, metadata types.Metadata,
) error {
	if w.compiled {
		return eris.Wrap(ErrWorldCompiled, "cannot register component")
	}
	meta, err := w.registry.Register(name, typ, false, metadata)
	if err != nil {
		return err
	}
	_, err = w.store.EnsureColumn(meta)
	return err
}

// EntityByName resolves a name given at spawn time.
func (w *World) EntityByName(name string) (types.EntityID, bool) {
	return w.store.EntityByName(name)
}

func (w *World) applyBundle(id types.EntityID, b Bundle) error {
	comps, err := b.Components()
	if err != nil {
		return err
	}
	for _, cv := range comps {
		meta, err := w.registry.Register(cv.Name, cv.Value.Type(), cv.Asset, cv.Metadata)
		if err != nil {
			return err
		}
		if cv.Schema != nil {
			if err := w.registry.AttachSchema(cv.Name, cv.Schema); err != nil {
				return err
			}
			meta.Schema = cv.Schema
		}
		if err := w.store.SetValue(id, meta, cv.Value); err != nil {
			return eris.Wrapf(err, "component %q", cv.Name)
		}
	}
	return nil
}

type compileConfig struct {
	timeStep float64
	client   *Client
	archive  *history.SnapshotArchive
}

type CompileOption func(*compileConfig)

// WithTimeStep overrides the configured simulation time step in seconds.
func WithTimeStep(dt float64) CompileOption {
	return func(c *compileConfig) { c.timeStep = dt }
}

// WithClient selects the compute target the executable runs on.
func WithClient(client *Client) CompileOption {
	return func(c *compileConfig) { c.client = client }
}

// WithSnapshotArchive mirrors every committed tick into an external
// snapshot store as it commits.
func WithSnapshotArchive(archive *history.SnapshotArchive) CompileOption {
	return func(c *compileConfig) { c.archive = archive }
}

// Compile runs the pipeline's declare pass, validates every component
// reference, freezes the schema, and returns the executable. All
// unresolved references are collected before failing, so one compile
// reports every missing component at once. The world cannot be reused
// after Compile.
func (w *World) Compile(pipeline system.System, opts ...CompileOption) (*Exec, error) {
	if w.compiled {
		return nil, eris.Wrap(ErrWorldCompiled, "cannot compile twice")
	}
	w.compiled = true
	buildElapsed := time.Since(w.created)
	compileStart := time.Now()

	cfg := compileConfig{timeStep: w.cfg.TimeStep, client: CPU()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timeStep <= 0 {
		return nil, eris.Errorf("time step must be positive, got %v", cfg.timeStep)
	}
	if cfg.archive == nil && w.cfg.SnapshotRedis != "" {
		client := redis.NewClient(&redis.Options{Addr: w.cfg.SnapshotRedis})
		cfg.archive = history.NewSnapshotArchive(history.NewRedisStorage(client, "ELODIN"))
	}

	full := system.Compose(system.AdvanceTime(cfg.timeStep), pipeline)
	w.systemNames = system.Names(full)

	ctx := system.NewContext(w.store, cfg.timeStep, cfg.client,
		log.CreateSystemLogger(&w.logger, full.Name()))
	ctx.BeginDeclare()
	initErr := full.Init(ctx)
	ctx.EndDeclare()
	if missing := ctx.Unresolved(); len(missing) > 0 {
		return nil, &PipelineValidationError{Missing: missing}
	}
	if initErr != nil {
		return nil, eris.Wrap(initErr, "pipeline init failed")
	}

	w.store.Freeze()
	log.World(&w.logger, w, zerolog.InfoLevel)

	exec := &Exec{
		store:    w.store,
		registry: w.registry,
		pipeline: full,
		ctx:      ctx,
		recorder: history.NewRecorder(),
		archive:  cfg.archive,
		logger:   w.logger,
		dt:       cfg.timeStep,
		profile:  map[string]float64{},
	}
	exec.systemNames = w.systemNames
	// Tick 0 is the pre-run state.
	exec.recorder.Record(0, w.store.Columns())
	exec.profile["build"] = buildElapsed.Seconds()
	exec.profile["compile"] = time.Since(compileStart).Seconds()
	return exec, nil
}

// GetRegisteredComponents returns the metadata of every registered
// component.
func (w *World) GetRegisteredComponents() []types.ComponentMetadata {
	return w.registry.Components()
}

// GetRegisteredSystems returns the names of the compiled pipeline's
// systems in execution order.
func (w *World) GetRegisteredSystems() []string {
	return w.systemNames
}
