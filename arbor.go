package arbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/telemetry"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/container"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/events"
	"github.com/aretw0/arbor/pkg/palette"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrUpdateRejected is returned when an element's owner refuses an update.
var ErrUpdateRejected = errors.New("update rejected by owner")

const lockTTL = 10 * time.Second

// Engine is the high-level entry point for the Arbor library.
// It owns the tree, its event bus and the containers that submit to it, and
// serializes every operation so it can be shared by concurrent adapters.
type Engine struct {
	mu         sync.Mutex
	bus        *events.Bus
	store      *tree.Store
	drag       *container.DragState
	trash      *container.Trash
	canvas     *container.Container
	containers map[string]*container.Container

	palette       *palette.Registry
	snapshots     ports.SnapshotStore
	locker        ports.DistributedLocker
	loader        ports.LayoutLoader
	containerOpts []container.Option
	tracer        trace.Tracer
	logger        *slog.Logger
	Name          string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSnapshotStore sets where snapshots are saved (default: in memory).
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(e *Engine) {
		e.snapshots = store
	}
}

// WithLocker serializes snapshot writes across replicas sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLayoutLoader sets the source Bootstrap reads the canvas from.
func WithLayoutLoader(loader ports.LayoutLoader) Option {
	return func(e *Engine) {
		e.loader = loader
	}
}

// WithPalette sets the template registry.
func WithPalette(r *palette.Registry) Option {
	return func(e *Engine) {
		e.palette = r
	}
}

// WithContainerOptions applies opts to every container the engine creates, the canvas included.
func WithContainerOptions(opts ...container.Option) Option {
	return func(e *Engine) {
		e.containerOpts = append(e.containerOpts, opts...)
	}
}

// WithTracerProvider sets the OpenTelemetry provider (default: the global one).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp.Tracer("github.com/aretw0/arbor")
	}
}

// WithName labels the engine, e.g. after the layout it serves.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes a new Arbor Engine with an empty canvas.
func New(opts ...Option) *Engine {
	e := &Engine{
		containers: make(map[string]*container.Container),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.Name != "" {
		e.logger = e.logger.With("layout", e.Name)
	}
	if e.snapshots == nil {
		e.snapshots = memory.NewStore()
	}
	if e.palette == nil {
		e.palette = palette.NewRegistry()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/aretw0/arbor")
	}

	e.bus = events.New(events.WithLogger(e.logger))
	e.store = tree.New(e.bus, tree.WithLogger(e.logger))
	e.drag = container.NewDragState()
	e.trash = container.NewTrash(e.drag)
	e.canvas = e.container(domain.RootID, domain.RootID)
	return e
}

// Bus returns the event bus. Listeners run while the engine lock is held and
// must not call back into the Engine.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Palette returns the template registry.
func (e *Engine) Palette() *palette.Registry { return e.palette }

// Templates lists the palette templates in registration order.
func (e *Engine) Templates() []palette.Template { return e.palette.Templates() }

// Do runs fn with the engine lock held, for direct work on containers or the store.
func (e *Engine) Do(fn func(canvas *container.Container, store *tree.Store)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.canvas, e.store)
}

// Tree returns a copy of the full tree.
func (e *Engine) Tree() domain.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Tree()
}

// Snapshot returns the serialization-safe tree and the revision it reflects.
func (e *Engine) Snapshot() (domain.SnapshotNode, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Snapshot(), e.store.Revision()
}

// Revision returns the number of mutations applied so far.
func (e *Engine) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Revision()
}

// Element returns the sanitized element with the given id.
func (e *Engine) Element(id string) (*domain.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.element(id)
}

func (e *Engine) element(id string) (*domain.Element, error) {
	cid, pid, ok := e.store.Locate(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrElementNotFound)
	}
	el := e.store.GetElement(id, cid, pid)
	if el == nil {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrElementNotFound)
	}
	return el, nil
}

// Bootstrap replaces the canvas with the elements of the layout loader, if one is set.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if e.loader == nil {
		return nil
	}
	ctx, span := e.tracer.Start(ctx, "arbor.Bootstrap")
	defer span.End()

	elements, err := e.loader.Load(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to load layout: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.hydrate(elements); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	e.logger.Info("layout loaded", "elements", len(elements), "revision", e.store.Revision())
	return nil
}

// Reconcile submits the full child list of containerID under parentNodeID.
func (e *Engine) Reconcile(ctx context.Context, containerID, parentNodeID string, children []domain.Node) error {
	_, span := e.tracer.Start(ctx, "arbor.Reconcile", trace.WithAttributes(
		attribute.String("container.id", containerID),
		attribute.String("parent.id", parentNodeID),
		attribute.Int("children", len(children)),
	))
	defer span.End()

	err := e.reconcile(containerID, parentNodeID, children)
	telemetry.RecordError(span, err)
	return err
}

func (e *Engine) reconcile(containerID, parentNodeID string, children []domain.Node) error {
	if containerID == "" {
		return fmt.Errorf("container id is required: %w", domain.ErrInvalidID)
	}
	if err := domain.ValidateBatch(children); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.store.Node(parentNodeID); !ok {
		return fmt.Errorf("%s: %w", parentNodeID, domain.ErrNodeNotFound)
	}
	if err := e.container(containerID, parentNodeID).SetElements(children, nil); err != nil {
		return err
	}
	e.adopt()
	return nil
}

// Remove deletes an element through its owning container.
func (e *Engine) Remove(ctx context.Context, id string) error {
	_, span := e.tracer.Start(ctx, "arbor.Remove", trace.WithAttributes(attribute.String("element.id", id)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	cid, pid, ok := e.store.Locate(id)
	if !ok || !e.store.RemoveElement(id, cid, pid, nil) {
		err := fmt.Errorf("%s: %w", id, domain.ErrElementNotFound)
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// Trash removes an element as if it was dropped on the trash, which reports it as trashed.
func (e *Engine) Trash(ctx context.Context, id string) error {
	_, span := e.tracer.Start(ctx, "arbor.Trash", trace.WithAttributes(attribute.String("element.id", id)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	cid, pid, ok := e.store.Locate(id)
	if !ok {
		err := fmt.Errorf("%s: %w", id, domain.ErrElementNotFound)
		telemetry.RecordError(span, err)
		return err
	}
	if c, owned := e.containers[cid]; owned && c.ParentID() == pid && e.trash.Discard(id, c) {
		return nil
	}
	// Unowned elements are detached by the store.
	e.store.RemoveElement(id, cid, pid, nil)
	return nil
}

// Update patches name, type or payload of an element and returns the result.
func (e *Engine) Update(ctx context.Context, id string, patch map[string]any) (*domain.Element, error) {
	_, span := e.tracer.Start(ctx, "arbor.Update", trace.WithAttributes(attribute.String("element.id", id)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	cid, pid, ok := e.store.Locate(id)
	if !ok {
		err := fmt.Errorf("%s: %w", id, domain.ErrElementNotFound)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !e.store.UpdateElement(id, cid, pid, patch, nil) {
		err := fmt.Errorf("%s: %w", id, ErrUpdateRejected)
		telemetry.RecordError(span, err)
		return nil, err
	}
	return e.element(id)
}

// Move moves an element to index in containerID under parentNodeID, subtree included.
func (e *Engine) Move(ctx context.Context, id, containerID, parentNodeID string, index int) error {
	_, span := e.tracer.Start(ctx, "arbor.Move", trace.WithAttributes(
		attribute.String("element.id", id),
		attribute.String("container.id", containerID),
		attribute.Int("index", index),
	))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.move(id, containerID, parentNodeID, index)
	telemetry.RecordError(span, err)
	return err
}

func (e *Engine) move(id, containerID, parentNodeID string, index int) error {
	cid, pid, ok := e.store.Locate(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrElementNotFound)
	}
	if _, ok := e.store.Node(parentNodeID); !ok {
		return fmt.Errorf("%s: %w", parentNodeID, domain.ErrNodeNotFound)
	}
	subtree, _ := e.store.Node(id)
	if _, inside := subtree.Find(parentNodeID); inside {
		return fmt.Errorf("cannot move %s into its own subtree: %w", id, domain.ErrInvalidID)
	}
	from := e.container(cid, pid)
	to := e.container(containerID, parentNodeID)
	if err := container.Move(e.drag, id, from, to, index); err != nil {
		return err
	}
	e.adopt()
	return nil
}

// Spawn creates an element from a palette template and drops it at index.
func (e *Engine) Spawn(ctx context.Context, elementType, containerID, parentNodeID string, index int) (domain.Node, error) {
	_, span := e.tracer.Start(ctx, "arbor.Spawn", trace.WithAttributes(
		attribute.String("element.type", elementType),
		attribute.String("container.id", containerID),
	))
	defer span.End()

	el, err := e.palette.Spawn(elementType)
	if err != nil {
		telemetry.RecordError(span, err)
		return domain.Node{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.store.Node(parentNodeID); !ok {
		err := fmt.Errorf("%s: %w", parentNodeID, domain.ErrNodeNotFound)
		telemetry.RecordError(span, err)
		return domain.Node{}, err
	}
	if err := e.container(containerID, parentNodeID).Drop(el, index); err != nil {
		telemetry.RecordError(span, err)
		return domain.Node{}, err
	}
	e.adopt()
	n, _ := e.store.Node(el.ID)
	return n, nil
}

// FlushAll clears the whole tree.
func (e *Engine) FlushAll(ctx context.Context) error {
	_, span := e.tracer.Start(ctx, "arbor.FlushAll")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.FlushAll(nil)
	e.adopt()
	return nil
}

// SaveSnapshot persists the current tree under name.
func (e *Engine) SaveSnapshot(ctx context.Context, name string) error {
	ctx, span := e.tracer.Start(ctx, "arbor.SaveSnapshot", trace.WithAttributes(attribute.String("snapshot.name", name)))
	defer span.End()

	unlock, err := e.lock(ctx, name)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	defer unlock()

	snap, rev := e.Snapshot()
	if err := e.snapshots.Save(ctx, name, snap); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}
	e.logger.Info("snapshot saved", "name", name, "revision", rev)
	return nil
}

// LoadSnapshot replaces the tree with the snapshot saved under name.
func (e *Engine) LoadSnapshot(ctx context.Context, name string) error {
	ctx, span := e.tracer.Start(ctx, "arbor.LoadSnapshot", trace.WithAttributes(attribute.String("snapshot.name", name)))
	defer span.End()

	snap, err := e.snapshots.Load(ctx, name)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to load snapshot %s: %w", name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.hydrate(snap.Node().Fields); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	e.logger.Info("snapshot loaded", "name", name, "revision", e.store.Revision())
	return nil
}

// ListSnapshots returns the saved snapshot names.
func (e *Engine) ListSnapshots(ctx context.Context) ([]string, error) {
	return e.snapshots.List(ctx)
}

// DeleteSnapshot removes the snapshot saved under name.
func (e *Engine) DeleteSnapshot(ctx context.Context, name string) error {
	unlock, err := e.lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()
	return e.snapshots.Delete(ctx, name)
}

// Watch streams every bus event until ctx is done, then closes the channel.
// A consumer that falls behind loses events rather than blocking the engine.
func (e *Engine) Watch(ctx context.Context) <-chan domain.Event {
	out := make(chan domain.Event, 64)
	send := func(ev domain.Event) {
		select {
		case out <- ev:
		default:
			e.logger.Warn("watcher is falling behind, event dropped", "channel", ev.Channel)
		}
	}

	type sub struct {
		ch domain.Channel
		h  events.Handle
	}
	e.mu.Lock()
	subs := make([]sub, 0, len(domain.Channels))
	for _, ch := range domain.Channels {
		if h, ok := e.bus.Subscribe(ch, send); ok {
			subs = append(subs, sub{ch, h})
		}
	}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		// Publishing only happens under the lock, so nothing sends after this.
		e.mu.Lock()
		defer e.mu.Unlock()
		for _, s := range subs {
			e.bus.Unsubscribe(s.ch, s.h)
		}
		close(out)
	}()
	return out
}

// hydrate replaces the canvas, and through its nested fields the whole tree.
func (e *Engine) hydrate(elements []domain.Node) error {
	if err := domain.ValidateTree(domain.Node{ID: domain.RootID, Fields: elements}); err != nil {
		return err
	}
	// Explicit empty fields, so reused ids do not keep a stale subtree.
	marked := make([]domain.Node, len(elements))
	for i, el := range elements {
		marked[i] = el.Clone()
		markFields(&marked[i])
	}
	if err := e.canvas.SetElements(marked, nil); err != nil {
		return err
	}
	e.adopt()
	return nil
}

func markFields(n *domain.Node) {
	if n.Fields == nil {
		n.Fields = []domain.Node{}
		return
	}
	for i := range n.Fields {
		markFields(&n.Fields[i])
	}
}

// container returns the container id hosted by parentID, creating and watching it on first use.
func (e *Engine) container(id, parentID string) *container.Container {
	if c, ok := e.containers[id]; ok {
		if c.ParentID() == parentID {
			return c
		}
		c.Close()
	}
	opts := append([]container.Option{
		container.WithDragState(e.drag),
		container.WithLogger(e.logger),
	}, e.containerOpts...)
	c := container.New(e.store, id, parentID, opts...)
	c.Refresh()
	c.Watch()
	e.containers[id] = c
	return c
}

// adopt creates containers for every container id found in the tree, so elements
// submitted with nested fields get an owner, and drops containers whose node is gone.
func (e *Engine) adopt() {
	seen := map[string]bool{domain.RootID: true}
	var walk func(n domain.Node)
	walk = func(n domain.Node) {
		for _, child := range n.Fields {
			if child.ContainerID != "" && !seen[child.ContainerID] {
				seen[child.ContainerID] = true
				if c, ok := e.containers[child.ContainerID]; !ok || c.ParentID() != n.ID {
					e.container(child.ContainerID, n.ID)
				}
			}
			walk(child)
		}
	}
	walk(e.store.Tree())

	for id, c := range e.containers {
		if id == domain.RootID {
			continue
		}
		if _, ok := e.store.Node(c.ParentID()); !ok {
			c.Close()
			delete(e.containers, id)
		}
	}
}

func (e *Engine) lock(ctx context.Context, name string) (func(), error) {
	if e.locker == nil {
		return func() {}, nil
	}
	unlock, err := e.locker.Lock(ctx, "snapshot:"+name, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock snapshot %s: %w", name, err)
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("failed to release snapshot lock", "name", name, "err", err)
		}
	}, nil
}

var _ ports.TreeEngine = (*Engine)(nil)
