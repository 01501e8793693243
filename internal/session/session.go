// Package session coordinates optimistic edits of a project's assemblies
// against the remote API.
//
// Every edit is applied to local state first, then submitted. A successful
// response commits the value the server echoed; a failure or timeout
// reverts to the value held before the edit and produces exactly one
// notification. Local state is guarded by one mutex that is never held
// across a network call.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/logger"
	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/notify"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 15 * time.Second

var (
	// ErrRemote wraps every failure reported by the remote API, including
	// timeouts. The local state has been reconciled when it is returned.
	ErrRemote = errors.New("remote operation failed")
	// ErrConfirmationRequired is returned by DeleteAssembly without an
	// explicit confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrInvalidResponse marks a successful response whose content breaks
	// an invariant, such as a zero width or an unknown status. It is
	// handled like any other remote failure.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// Remote is the persistence API the coordinator reconciles with.
type Remote interface {
	ListAssemblies(ctx context.Context, projectID string) ([]models.Assembly, error)
	GetAssembly(ctx context.Context, id string) (*models.Assembly, error)
	CreateAssembly(ctx context.Context, projectID string, req models.AssemblyCreate) (*models.Assembly, error)
	UpdateAssembly(ctx context.Context, id string, patch models.AssemblyPatch) (*models.Assembly, error)
	DeleteAssembly(ctx context.Context, id string) error
	FlipAssembly(ctx context.Context, id string, mode models.FlipMode) (*models.Assembly, error)
	CreateLayer(ctx context.Context, assemblyID string, req models.LayerCreate) (*models.Layer, error)
	UpdateLayer(ctx context.Context, id string, patch models.LayerPatch) (*models.Layer, error)
	DeleteLayer(ctx context.Context, id string) error
	CreateSegment(ctx context.Context, layerID string, req models.SegmentCreate) (*models.Segment, error)
	UpdateSegment(ctx context.Context, id string, patch models.SegmentPatch) (*models.Segment, error)
	DeleteSegment(ctx context.Context, id string) error
	Attachments(ctx context.Context, segmentID string) (*models.Attachments, error)
}

// Options holds parameters for New.
type Options struct {
	ProjectID string
	Remote    Remote
	Notifier  notify.Notifier // defaults to a discarding recorder
	Logger    *logger.Logger  // defaults to a no-op logger
	Timeout   time.Duration   // defaults to DefaultTimeout
	NewID     func() string   // temporary ids for optimistic inserts
}

type fieldKey struct {
	kind string
	id   string
	name string
}

// Coordinator owns the local copy of one project's assemblies.
type Coordinator struct {
	projectID string
	remote    Remote
	notifier  notify.Notifier
	log       *logger.Logger
	timeout   time.Duration
	newID     func() string

	mu         sync.Mutex
	assemblies []*models.Assembly
	fields     map[fieldKey]*Field[any]
	closed     bool
}

// New creates a Coordinator. Call Load to populate it.
func New(opts Options) (*Coordinator, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("session: project id is required")
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("session: remote is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = &notify.Recorder{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "tmp-" + uuid.NewString() }
	}
	return &Coordinator{
		projectID: opts.ProjectID,
		remote:    opts.Remote,
		notifier:  opts.Notifier,
		log:       opts.Logger.With("component", "session", "project", opts.ProjectID),
		timeout:   opts.Timeout,
		newID:     opts.NewID,
		fields:    make(map[fieldKey]*Field[any]),
	}, nil
}

// Close drops the local state. Responses still in flight are discarded.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.assemblies = nil
	c.fields = make(map[fieldKey]*Field[any])
	return nil
}

// Load replaces the local state with the project's assemblies.
func (c *Coordinator) Load(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	rctx, cancel := c.requestContext(ctx)
	list, err := c.remote.ListAssemblies(rctx, c.projectID)
	cancel()
	if err != nil {
		return c.fail("Loading assemblies", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assemblies = make([]*models.Assembly, 0, len(list))
	for i := range list {
		a := list[i]
		c.assemblies = append(c.assemblies, &a)
	}
	c.log.Debug("assemblies loaded", "count", len(list))
	return nil
}

// Assemblies returns a deep copy of the local state.
func (c *Coordinator) Assemblies() []models.Assembly {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Assembly, 0, len(c.assemblies))
	for _, a := range c.assemblies {
		out = append(out, assembly.Clone(*a))
	}
	return out
}

// Assembly returns a deep copy of one assembly.
func (c *Coordinator) Assembly(id string) (models.Assembly, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.findAssembly(id)
	if a == nil {
		return models.Assembly{}, false
	}
	return assembly.Clone(*a), true
}

// Pending reports whether an edit of the named field of id is in flight.
func (c *Coordinator) Pending(id, field string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, f := range c.fields {
		if k.id == id && k.name == field && f.Pending() {
			return true
		}
	}
	return false
}

func (c *Coordinator) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Coordinator) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// fail notifies the user once and wraps err in ErrRemote. It must be
// called without c.mu held.
func (c *Coordinator) fail(op string, err error) error {
	n := notify.Notice{
		Title:    op + " failed",
		Body:     err.Error(),
		Severity: notify.Error,
	}
	if errors.Is(err, context.DeadlineExceeded) {
		n.Title = op + " timed out"
		n.Body = fmt.Sprintf("no response within %s; the change was not saved", c.timeout)
	}
	nctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if nerr := c.notifier.Notify(nctx, n); nerr != nil {
		c.log.Error("failed to deliver notification", "op", op, "error", nerr)
	}
	c.log.Warn("remote operation failed", "op", op, "error", err)
	return fmt.Errorf("session: %s: %w: %w", op, ErrRemote, err)
}

// The find helpers must be called with c.mu held. Returned pointers are
// valid until the next structural change.

func (c *Coordinator) findAssembly(id string) *models.Assembly {
	for _, a := range c.assemblies {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (c *Coordinator) findLayer(id string) (*models.Assembly, *models.Layer) {
	for _, a := range c.assemblies {
		if l := assembly.FindLayer(a, id); l != nil {
			return a, l
		}
	}
	return nil, nil
}

func (c *Coordinator) findSegment(id string) (*models.Assembly, *models.Layer, *models.Segment) {
	for _, a := range c.assemblies {
		if l, s := assembly.FindSegment(a, id); s != nil {
			return a, l, s
		}
	}
	return nil, nil, nil
}

func (c *Coordinator) notFound(kind, id string) {
	c.log.Warn("ignoring edit of unknown "+kind, "id", id)
}
