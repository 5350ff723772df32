package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dharsanguruparan/TrackFast/internal/model"
	"github.com/dharsanguruparan/TrackFast/internal/storage"
)

var trackingCode = regexp.MustCompile(`^TRK-[0-9A-F]{8}$`)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ParcelEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev model.ParcelEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) actions() []model.EventAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventAction, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}

type fixedLinker struct{ url string }

func (f fixedLinker) SnapshotURL(_ context.Context, parcelID string) (string, error) {
	return f.url + "/" + parcelID, nil
}

var (
	alice = &model.Identity{AdminID: "alice", Email: "alice@trackfast.com", Role: model.RoleAdmin}
	bob   = &model.Identity{AdminID: "bob", Email: "bob@trackfast.com", Role: model.RoleAdmin}
	root  = &model.Identity{AdminID: "root", Email: "root@trackfast.com", Role: model.RoleSuperadmin}
)

func newParcelService() (*ParcelService, *recordingPublisher) {
	events := &recordingPublisher{}
	svc := NewParcelService(storage.NewParcelStore(), events, nil)
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	var tick int
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return svc, events
}

func sampleDetails() model.ParcelDetails {
	return model.ParcelDetails{
		Sender:      "A",
		Receiver:    "B",
		Origin:      "NY",
		Destination: "LA",
		Status:      model.StatusOrderReceived,
	}
}

func TestParcelLifecycleExample(t *testing.T) {
	svc, events := newParcelService()
	ctx := context.Background()

	p, err := svc.Create(ctx, alice, sampleDetails())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !trackingCode.MatchString(p.ID) {
		t.Fatalf("id %q does not match tracking code format", p.ID)
	}
	if len(p.Timeline) != 1 || p.Timeline[0].Status != model.StatusOrderReceived || p.Timeline[0].Location != "NY" {
		t.Fatalf("unexpected seed timeline: %+v", p.Timeline)
	}
	if p.State != model.StateActive || p.PauseMessage != "" || p.CreatedBy != "alice" {
		t.Fatalf("unexpected initial parcel: %+v", p)
	}

	p, err = svc.AppendStatusUpdate(ctx, alice, p.ID, model.StatusDispatched, "NJ")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(p.Timeline) != 2 || p.Status != model.StatusDispatched {
		t.Fatalf("after append: status=%q timeline=%d", p.Status, len(p.Timeline))
	}

	if _, err := svc.SetState(ctx, alice, p.ID, "paused", "  customs hold  "); err != nil {
		t.Fatalf("pause: %v", err)
	}
	view, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get paused parcel: %v", err)
	}
	if !view.Paused || view.PauseMessage != "customs hold" || view.PauseLocation != "NJ" {
		t.Fatalf("paused view = paused:%v message:%q location:%q", view.Paused, view.PauseMessage, view.PauseLocation)
	}
	if len(view.Timeline) != 2 {
		t.Fatalf("paused view lost history: %+v", view.Timeline)
	}

	want := []model.EventAction{model.ActionCreated, model.ActionStatus, model.ActionState}
	got := events.actions()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestCreateRequiresFields(t *testing.T) {
	svc, _ := newParcelService()
	d := sampleDetails()
	d.Destination = "   "
	_, err := svc.Create(context.Background(), alice, d)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), nil, sampleDetails()); !errors.Is(err, model.ErrAuth) {
		t.Fatalf("expected auth error without identity, got %v", err)
	}
}

func TestAppendStatusUpdateKeepsOrder(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	p, err := svc.Create(ctx, alice, sampleDetails())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stops := []struct{ status, location string }{
		{model.StatusDispatched, "NJ"},
		{model.StatusInTransit, "Chicago"},
		{model.StatusInTransit, "Denver"},
		{model.StatusOutForDelivery, "LA"},
	}
	for i, stop := range stops {
		p, err = svc.AppendStatusUpdate(ctx, alice, p.ID, stop.status, stop.location)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if len(p.Timeline) != i+2 {
			t.Fatalf("after append %d timeline len = %d, want %d", i, len(p.Timeline), i+2)
		}
	}
	for i, stop := range stops {
		entry := p.Timeline[i+1]
		if entry.Status != stop.status || entry.Location != stop.location {
			t.Fatalf("entry %d = %+v, want %s@%s", i+1, entry, stop.status, stop.location)
		}
		if !entry.Time.After(p.Timeline[i].Time) {
			t.Fatalf("entry %d time %v not after %v", i+1, entry.Time, p.Timeline[i].Time)
		}
	}
}

func TestAppendStatusUpdateErrors(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	if _, err := svc.AppendStatusUpdate(ctx, alice, "TRK-00000000", "Dispatched", ""); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err := svc.AppendStatusUpdate(ctx, alice, "TRK-00000000", "Dispatched", "NJ")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "Parcel not found" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestAppendStatusUpdateWhilePaused(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, alice, sampleDetails())
	if _, err := svc.SetState(ctx, alice, p.ID, "paused", "hold"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	p, err := svc.AppendStatusUpdate(ctx, alice, p.ID, model.StatusInTransit, "PA")
	if err != nil {
		t.Fatalf("append while paused: %v", err)
	}
	if p.State != model.StatePaused || p.PauseMessage != "hold" || len(p.Timeline) != 2 {
		t.Fatalf("unexpected parcel after paused update: %+v", p)
	}
}

func TestEditLogsStatusAtLastLocation(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, alice, sampleDetails())
	if _, err := svc.AppendStatusUpdate(ctx, alice, p.ID, model.StatusDispatched, "NJ"); err != nil {
		t.Fatalf("append: %v", err)
	}

	d := sampleDetails()
	d.Receiver = "Carol"
	d.Origin = "Boston"
	d.Status = model.StatusDispatched
	edited, err := svc.Edit(ctx, bob, p.ID, d)
	if err != nil {
		t.Fatalf("edit without status change: %v", err)
	}
	if edited.Receiver != "Carol" || edited.Origin != "Boston" || len(edited.Timeline) != 2 {
		t.Fatalf("unexpected edit result: %+v", edited)
	}

	d.Status = model.StatusInTransit
	edited, err = svc.Edit(ctx, bob, p.ID, d)
	if err != nil {
		t.Fatalf("edit with status change: %v", err)
	}
	if len(edited.Timeline) != 3 {
		t.Fatalf("timeline len = %d, want 3", len(edited.Timeline))
	}
	last := edited.Timeline[2]
	if last.Status != model.StatusInTransit || last.Location != "NJ" || edited.Status != model.StatusInTransit {
		t.Fatalf("last entry = %+v status=%q", last, edited.Status)
	}
}

func TestEditFallsBackToNewOrigin(t *testing.T) {
	store := storage.NewParcelStore()
	svc := NewParcelService(store, nil, nil)
	ctx := context.Background()
	bare := &model.Parcel{ID: "TRK-REGULAR-1", Sender: "Regular User", Status: model.StatusOrderReceived, State: model.StateActive, CreatedBy: "alice"}
	if err := store.Create(ctx, bare); err != nil {
		t.Fatalf("seed: %v", err)
	}
	d := sampleDetails()
	d.Origin = "Houston"
	d.Status = model.StatusDispatched
	p, err := svc.Edit(ctx, alice, bare.ID, d)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(p.Timeline) != 1 || p.Timeline[0].Location != "Houston" {
		t.Fatalf("timeline = %+v, want one entry at Houston", p.Timeline)
	}
}

func TestEditErrors(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	if _, err := svc.Edit(ctx, alice, "TRK-FFFFFFFF", sampleDetails()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	p, _ := svc.Create(ctx, alice, sampleDetails())
	d := sampleDetails()
	d.Sender = ""
	if _, err := svc.Edit(ctx, alice, p.ID, d); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type failingAppendStore struct {
	*storage.ParcelStore
}

func (failingAppendStore) AppendTimeline(context.Context, string, model.TimelineEntry) (*model.Parcel, error) {
	return nil, errors.New("connection reset")
}

type failingEditStore struct {
	*storage.ParcelStore
}

func (failingEditStore) Edit(context.Context, string, model.ParcelDetails, *model.TimelineEntry) (*model.Parcel, error) {
	return nil, errors.New("connection reset")
}

func TestEditWritesDetailsAndStatusTogether(t *testing.T) {
	mem := storage.NewParcelStore()
	ctx := context.Background()
	p, err := NewParcelService(mem, nil, nil).Create(ctx, alice, sampleDetails())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	d := sampleDetails()
	d.Sender = "CHANGED"
	d.Origin = "SF"
	d.Status = model.StatusDispatched
	if _, err := NewParcelService(failingAppendStore{mem}, nil, nil).Edit(ctx, alice, p.ID, d); err != nil {
		t.Fatalf("edit must not depend on AppendTimeline: %v", err)
	}
	stored, _ := mem.Get(ctx, p.ID)
	if stored.Sender != "CHANGED" || stored.Origin != "SF" || stored.Status != model.StatusDispatched {
		t.Fatalf("stored = %+v", stored)
	}
	if len(stored.Timeline) != 2 || stored.Timeline[1].Location != "NY" {
		t.Fatalf("timeline = %+v", stored.Timeline)
	}

	d.Sender = "AGAIN"
	d.Status = model.StatusInTransit
	if _, err := NewParcelService(failingEditStore{mem}, nil, nil).Edit(ctx, alice, p.ID, d); err == nil {
		t.Fatalf("expected the store error")
	}
	stored, _ = mem.Get(ctx, p.ID)
	if stored.Sender != "CHANGED" || stored.Status != model.StatusDispatched || len(stored.Timeline) != 2 {
		t.Fatalf("failed edit was partly applied: %+v", stored)
	}
}

func TestTrackingIDsMatchExactly(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, alice, sampleDetails())
	padded := " " + p.ID

	if _, err := svc.Get(ctx, padded); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("get: expected not found, got %v", err)
	}
	if _, err := svc.AppendStatusUpdate(ctx, alice, padded, "Shipped", "NJ"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("status update: expected not found, got %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); err != nil {
		t.Fatalf("exact id: %v", err)
	}
}

func TestSetState(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, alice, sampleDetails())

	if _, err := svc.SetState(ctx, alice, p.ID, "frozen", ""); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.SetState(ctx, alice, p.ID, "Paused", ""); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("state must match exactly, got %v", err)
	}
	if _, err := svc.SetState(ctx, alice, "TRK-FFFFFFFF", "paused", ""); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	paused, err := svc.SetState(ctx, alice, p.ID, "paused", "")
	if err != nil {
		t.Fatalf("pause without message: %v", err)
	}
	if paused.State != model.StatePaused || paused.PauseMessage != "" {
		t.Fatalf("unexpected paused parcel: %+v", paused)
	}
	paused, _ = svc.SetState(ctx, alice, p.ID, "paused", "weather delay")
	if len(paused.Timeline) != 1 {
		t.Fatalf("pause must not touch the timeline: %+v", paused.Timeline)
	}

	resumed, err := svc.SetState(ctx, alice, p.ID, "active", "ignored")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.State != model.StateActive || resumed.PauseMessage != "" {
		t.Fatalf("resume must clear the message: %+v", resumed)
	}
	view, _ := svc.Get(ctx, p.ID)
	if view.Paused || view.PauseMessage != "" || view.PauseLocation != "" {
		t.Fatalf("active view carries pause fields: %+v", view)
	}
}

func TestGetPausedWithEmptyTimelineUsesOrigin(t *testing.T) {
	store := storage.NewParcelStore()
	svc := NewParcelService(store, nil, nil)
	ctx := context.Background()
	p := &model.Parcel{ID: "TRK-0000ABCD", Origin: "Lagos", Status: "Held", State: model.StatePaused, PauseMessage: "docs"}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("seed: %v", err)
	}
	view, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !view.Paused || view.PauseLocation != "Lagos" || view.PauseMessage != "docs" {
		t.Fatalf("view = %+v", view)
	}
	if _, err := svc.Get(ctx, "TRK-DEADBEEF"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	a1, _ := svc.Create(ctx, alice, sampleDetails())
	b1, _ := svc.Create(ctx, bob, sampleDetails())
	a2, _ := svc.Create(ctx, alice, sampleDetails())

	mine, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != a2.ID || mine[1].ID != a1.ID {
		t.Fatalf("alice sees %v", ids(mine))
	}
	for _, p := range mine {
		if p.CreatedBy != "alice" {
			t.Fatalf("alice sees parcel of %s", p.CreatedBy)
		}
	}

	all, err := svc.List(ctx, root)
	if err != nil {
		t.Fatalf("list as superadmin: %v", err)
	}
	if len(all) != 3 || all[0].ID != a2.ID || all[1].ID != b1.ID || all[2].ID != a1.ID {
		t.Fatalf("superadmin sees %v", ids(all))
	}

	if _, err := svc.List(ctx, nil); !errors.Is(err, model.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, events := newParcelService()
	ctx := context.Background()
	if _, err := svc.Delete(ctx, alice, "TRK-00000000"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	p, _ := svc.Create(ctx, alice, sampleDetails())
	deleted, err := svc.Delete(ctx, bob, p.ID)
	if err != nil {
		t.Fatalf("delete by non-owner: %v", err)
	}
	if deleted.ID != p.ID {
		t.Fatalf("deleted %q, want %q", deleted.ID, p.ID)
	}
	if _, err := svc.Get(ctx, p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("deleted parcel still trackable: %v", err)
	}
	all, _ := svc.List(ctx, root)
	if len(all) != 0 {
		t.Fatalf("deleted parcel still listed: %v", ids(all))
	}
	got := events.actions()
	if got[len(got)-1] != model.ActionDeleted {
		t.Fatalf("last event = %v", got[len(got)-1])
	}
}

func TestCreateSurfacesIDCollision(t *testing.T) {
	svc, _ := newParcelService()
	svc.newID = func() (string, error) { return "TRK-00000001", nil }
	ctx := context.Background()
	if _, err := svc.Create(ctx, alice, sampleDetails()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, alice, sampleDetails())
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
	if errors.Is(err, model.ErrValidation) {
		t.Fatalf("collision must not look like a caller error")
	}
}

func TestArchiveURL(t *testing.T) {
	svc, _ := newParcelService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, alice, sampleDetails())
	if _, err := svc.ArchiveURL(ctx, alice, p.ID); !errors.Is(err, ErrArchiveDisabled) {
		t.Fatalf("expected archive disabled, got %v", err)
	}
	svc.archive = fixedLinker{url: "https://files.example"}
	url, err := svc.ArchiveURL(ctx, alice, p.ID)
	if err != nil {
		t.Fatalf("archive url: %v", err)
	}
	if url != "https://files.example/"+p.ID {
		t.Fatalf("url = %q", url)
	}
	if _, err := svc.ArchiveURL(ctx, alice, "TRK-FFFFFFFF"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewTrackingID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewTrackingID()
		if err != nil {
			t.Fatalf("tracking id: %v", err)
		}
		if !trackingCode.MatchString(id) {
			t.Fatalf("id %q does not match format", id)
		}
		seen[id] = true
	}
	if len(seen) < 99 {
		t.Fatalf("too many collisions: %d unique of 100", len(seen))
	}
}

func ids(parcels []*model.Parcel) []string {
	out := make([]string, 0, len(parcels))
	for _, p := range parcels {
		out = append(out, p.ID)
	}
	return out
}
