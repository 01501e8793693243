package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zulandar/stratum/internal/assembly"
	"github.com/zulandar/stratum/internal/models"
	"github.com/zulandar/stratum/internal/status"
)

var errUnavailable = errors.New("503 service unavailable")

// fakeRemote is an in-memory server. errs fails the named operation;
// gates hold it until released; updateHook replaces UpdateSegment
// entirely.
type fakeRemote struct {
	mu         sync.Mutex
	assemblies []models.Assembly
	calls      map[string]int
	errs       map[string]error
	gates      map[string]*gate
	nextID     int
	updateHook func(ctx context.Context, id string, p models.SegmentPatch) (*models.Segment, error)
}

// gate blocks an operation before it touches server state.
type gate struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gate) wait() {
	g.once.Do(func() { close(g.started) })
	<-g.release
}

func newFakeRemote(assemblies ...models.Assembly) *fakeRemote {
	return &fakeRemote{
		assemblies: assemblies,
		calls:      map[string]int{},
		errs:       map[string]error{},
		gates:      map[string]*gate{},
	}
}

// hold makes the next calls of op block until the returned gate's release
// channel is closed.
func (f *fakeRemote) hold(op string) *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &gate{started: make(chan struct{}), release: make(chan struct{})}
	f.gates[op] = g
	return g
}

func (f *fakeRemote) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	err := f.errs[op]
	g := f.gates[op]
	f.mu.Unlock()
	if g != nil {
		g.wait()
	}
	return err
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRemote) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeRemote) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-srv-%d", prefix, f.nextID)
}

func (f *fakeRemote) find(id string) *models.Assembly {
	for i := range f.assemblies {
		if f.assemblies[i].ID == id {
			return &f.assemblies[i]
		}
	}
	return nil
}

func (f *fakeRemote) findSegment(id string) (*models.Layer, *models.Segment) {
	for i := range f.assemblies {
		if l, s := assembly.FindSegment(&f.assemblies[i], id); s != nil {
			return l, s
		}
	}
	return nil, nil
}

func (f *fakeRemote) findLayer(id string) (*models.Assembly, *models.Layer) {
	for i := range f.assemblies {
		if l := assembly.FindLayer(&f.assemblies[i], id); l != nil {
			return &f.assemblies[i], l
		}
	}
	return nil, nil
}

func (f *fakeRemote) ListAssemblies(_ context.Context, _ string) ([]models.Assembly, error) {
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Assembly, len(f.assemblies))
	for i, a := range f.assemblies {
		out[i] = assembly.Clone(a)
	}
	return out, nil
}

func (f *fakeRemote) GetAssembly(_ context.Context, id string) (*models.Assembly, error) {
	if err := f.enter("get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(id)
	if a == nil {
		return nil, errors.New("404")
	}
	cp := assembly.Clone(*a)
	return &cp, nil
}

func (f *fakeRemote) CreateAssembly(_ context.Context, projectID string, req models.AssemblyCreate) (*models.Assembly, error) {
	if err := f.enter("create_assembly"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := models.Assembly{ID: f.id("a"), ProjectID: projectID, Name: req.Name, Type: req.Type, Orientation: models.FirstLayerOutside}
	f.assemblies = append(f.assemblies, a)
	return &a, nil
}

func (f *fakeRemote) UpdateAssembly(_ context.Context, id string, p models.AssemblyPatch) (*models.Assembly, error) {
	if err := f.enter("update_assembly"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(id)
	if a == nil {
		return nil, errors.New("404")
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	cp := assembly.Clone(*a)
	return &cp, nil
}

func (f *fakeRemote) DeleteAssembly(_ context.Context, id string) error {
	if err := f.enter("delete_assembly"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.assemblies {
		if f.assemblies[i].ID == id {
			f.assemblies = append(f.assemblies[:i], f.assemblies[i+1:]...)
			return nil
		}
	}
	return errors.New("404")
}

func (f *fakeRemote) FlipAssembly(_ context.Context, id string, mode models.FlipMode) (*models.Assembly, error) {
	if err := f.enter("flip"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(id)
	if a == nil {
		return nil, errors.New("404")
	}
	if mode == models.FlipOrientationMode {
		assembly.FlipOrientation(a)
	} else {
		assembly.FlipLayers(a)
	}
	cp := assembly.Clone(*a)
	return &cp, nil
}

func (f *fakeRemote) CreateLayer(_ context.Context, assemblyID string, req models.LayerCreate) (*models.Layer, error) {
	if err := f.enter("create_layer"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(assemblyID)
	if a == nil {
		return nil, errors.New("404")
	}
	layer := models.Layer{ID: f.id("l"), ThicknessMM: req.ThicknessMM}
	if req.MaterialID != "" {
		layer.Segments = []models.Segment{{ID: f.id("s"), WidthMM: assembly.DefaultSegmentWidthMM, MaterialID: req.MaterialID, SpecificationStatus: status.Default}}
	}
	l, err := assembly.InsertLayer(a, req.Order, layer)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (f *fakeRemote) UpdateLayer(_ context.Context, id string, p models.LayerPatch) (*models.Layer, error) {
	if err := f.enter("update_layer"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, l := f.findLayer(id)
	if l == nil {
		return nil, errors.New("404")
	}
	if p.ThicknessMM != nil {
		l.ThicknessMM = *p.ThicknessMM
	}
	cp := assembly.CloneLayer(*l)
	return &cp, nil
}

func (f *fakeRemote) DeleteLayer(_ context.Context, id string) error {
	if err := f.enter("delete_layer"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, _ := f.findLayer(id)
	if a == nil {
		return errors.New("404")
	}
	_, err := assembly.DeleteLayer(a, id)
	return err
}

func (f *fakeRemote) CreateSegment(_ context.Context, layerID string, req models.SegmentCreate) (*models.Segment, error) {
	if err := f.enter("create_segment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, l := f.findLayer(layerID)
	if l == nil {
		return nil, errors.New("404")
	}
	seg, err := assembly.InsertSegmentAt(l, req.Order, assembly.SegmentAttrs{
		ID:                     f.id("s"),
		WidthMM:                req.WidthMM,
		MaterialID:             req.MaterialID,
		SteelStudSpacingMM:     req.SteelStudSpacingMM,
		IsContinuousInsulation: req.IsContinuousInsulation,
		SpecificationStatus:    req.SpecificationStatus,
		Notes:                  req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

func (f *fakeRemote) UpdateSegment(ctx context.Context, id string, p models.SegmentPatch) (*models.Segment, error) {
	if err := f.enter("update_segment"); err != nil {
		return nil, err
	}
	if f.updateHook != nil {
		return f.updateHook(ctx, id, p)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, s := f.findSegment(id)
	if s == nil {
		return nil, errors.New("404")
	}
	applyPatch(s, p)
	cp := assembly.CloneSegment(*s)
	return &cp, nil
}

func applyPatch(s *models.Segment, p models.SegmentPatch) {
	if p.WidthMM != nil {
		s.WidthMM = *p.WidthMM
	}
	if p.MaterialID != nil {
		s.MaterialID = *p.MaterialID
	}
	if p.SteelStudSpacingMM.Set {
		s.SteelStudSpacingMM = p.SteelStudSpacingMM.Value
	}
	if p.IsContinuousInsulation != nil {
		s.IsContinuousInsulation = *p.IsContinuousInsulation
	}
	if p.SpecificationStatus != nil {
		s.SpecificationStatus = *p.SpecificationStatus
	}
	if p.Notes != nil {
		if *p.Notes == "" {
			s.Notes = nil
		} else {
			n := *p.Notes
			s.Notes = &n
		}
	}
}

func (f *fakeRemote) DeleteSegment(_ context.Context, id string) error {
	if err := f.enter("delete_segment"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, _ := f.findSegment(id)
	if l == nil {
		return errors.New("404")
	}
	_, err := assembly.DeleteSegment(l, id)
	return err
}

func (f *fakeRemote) Attachments(_ context.Context, segmentID string) (*models.Attachments, error) {
	if err := f.enter("attachments"); err != nil {
		return nil, err
	}
	return &models.Attachments{
		SitePhotos: []models.Attachment{{Reference: segmentID + "-photo", ThumbnailURL: "t.jpg", FullSizeURL: "f.jpg"}},
		Datasheets: []models.Attachment{},
	}, nil
}
