package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"crux/internal/modules/routes/domain"
	"crux/internal/modules/routes/service"
	apperrors "crux/internal/platform/errors"
)

type fakeClock struct {
	now time.Time
}

func (f fakeClock) Now() time.Time { return f.now }

type seqID struct {
	n int
}

func (s *seqID) New() string {
	s.n++
	return fmt.Sprintf("r-%d", s.n)
}

type fakeStore struct {
	routes []domain.Route
}

func (s *fakeStore) Save(_ context.Context, route domain.Route) error {
	s.routes = append(s.routes, route)
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (domain.Route, error) {
	for _, r := range s.routes {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Route{}, apperrors.NotFound("Route not found")
}

func (s *fakeStore) List(context.Context) ([]domain.Route, error) {
	return s.routes, nil
}

func (s *fakeStore) Update(_ context.Context, route domain.Route) error {
	for i, r := range s.routes {
		if r.ID == route.ID {
			s.routes[i] = route
			return nil
		}
	}
	return apperrors.NotFound("Route not found")
}

func (s *fakeStore) Delete(_ context.Context, id string) (bool, error) {
	for i, r := range s.routes {
		if r.ID == id {
			s.routes = append(s.routes[:i], s.routes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ImageByID(_ context.Context, id string) ([]byte, string, error) {
	route, err := s.FindByID(context.Background(), id)
	if err != nil {
		return nil, "", err
	}
	return route.Image, route.Attachment.MIME, nil
}

type fakeProbe struct {
	info domain.AttachmentInfo
	err  error
}

func (p fakeProbe) Describe(data []byte, mime string) (domain.AttachmentInfo, error) {
	if p.err != nil {
		return domain.AttachmentInfo{MIME: mime, Size: len(data)}, p.err
	}
	info := p.info
	info.Size = len(data)
	return info, nil
}

func newService(probe fakeProbe) (*service.RouteService, *fakeStore) {
	store := &fakeStore{}
	clk := fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	return service.NewRouteService(clk, &seqID{}, store, probe), store
}

func TestSaveNormalizesColorAndStampsIdentity(t *testing.T) {
	t.Parallel()
	probe := fakeProbe{info: domain.AttachmentInfo{MIME: "image/png", Width: 640, Height: 480}}
	svc, _ := newService(probe)

	route, err := svc.Save(context.Background(), "  Dyno Alley  ", " RED ", " Basalt ", "crux up high", []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if route.ID != "r-1" {
		t.Fatalf("id %q", route.ID)
	}
	if route.Name != "Dyno Alley" || route.Gym != "Basalt" {
		t.Fatalf("fields not trimmed: %+v", route)
	}
	if route.Color != domain.ColorRed {
		t.Fatalf("color not normalized: %q", route.Color)
	}
	if !route.CreatedAt.Equal(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("createdAt %v", route.CreatedAt)
	}
	if route.Attachment.Width != 640 || route.Attachment.Size != 3 {
		t.Fatalf("attachment not probed: %+v", route.Attachment)
	}
}

func TestSaveRejectsBadColorAndMissingImage(t *testing.T) {
	t.Parallel()
	svc, _ := newService(fakeProbe{})

	if _, err := svc.Save(context.Background(), "x", "pink", "", "", []byte("img"), ""); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error for color, got %v", err)
	}
	if _, err := svc.Save(context.Background(), "x", "red", "", "", nil, ""); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error for missing image, got %v", err)
	}
}

func TestSaveFallsBackWhenProbeFails(t *testing.T) {
	t.Parallel()
	probe := fakeProbe{err: errors.New("unreadable")}
	svc, _ := newService(probe)

	route, err := svc.Save(context.Background(), "", "green", "", "", []byte("???"), "image/webp")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if route.Attachment.MIME != "image/webp" || route.Attachment.Size != 3 {
		t.Fatalf("fallback attachment wrong: %+v", route.Attachment)
	}
	if route.Attachment.Width != 0 || route.Attachment.Pages != 0 {
		t.Fatalf("failed probe must not invent details: %+v", route.Attachment)
	}
}

func TestListFiltersByColorAndGym(t *testing.T) {
	t.Parallel()
	svc, _ := newService(fakeProbe{info: domain.AttachmentInfo{MIME: "image/png"}})
	ctx := context.Background()
	seed := []struct{ color, gym string }{
		{"red", "Basalt"},
		{"red", "Granite Works"},
		{"purple", "Basalt"},
	}
	for _, s := range seed {
		if _, err := svc.Save(ctx, "", s.color, s.gym, "", []byte("img"), ""); err != nil {
			t.Fatalf("seed %s/%s: %v", s.color, s.gym, err)
		}
	}

	all, err := svc.List(ctx, "", "")
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: %d err=%v", len(all), err)
	}
	reds, err := svc.List(ctx, "RED", "")
	if err != nil || len(reds) != 2 {
		t.Fatalf("list red: %d err=%v", len(reds), err)
	}
	basalt, err := svc.List(ctx, "", "basalt")
	if err != nil || len(basalt) != 2 {
		t.Fatalf("gym filter is case-insensitive: %d err=%v", len(basalt), err)
	}
	both, err := svc.List(ctx, "red", "basalt")
	if err != nil || len(both) != 1 {
		t.Fatalf("combined filter: %d err=%v", len(both), err)
	}
}

func TestUpdateAppliesPatchAndReprobes(t *testing.T) {
	t.Parallel()
	svc, _ := newService(fakeProbe{info: domain.AttachmentInfo{MIME: "image/png", Width: 100, Height: 100}})
	ctx := context.Background()
	saved, err := svc.Save(ctx, "Dyno Alley", "red", "Basalt", "", []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	color := domain.Color(" PURPLE ")
	updated, err := svc.Update(ctx, saved.ID, domain.Patch{Color: &color, Image: []byte("newimg")}, "image/png")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Color != domain.ColorPurple {
		t.Fatalf("color not normalized on update: %q", updated.Color)
	}
	if updated.Attachment.Size != len("newimg") {
		t.Fatalf("attachment not reprobed: %+v", updated.Attachment)
	}

	if _, err := svc.Update(ctx, "ghost", domain.Patch{}, ""); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	bad := domain.Color("pink")
	if _, err := svc.Update(ctx, saved.ID, domain.Patch{Color: &bad}, ""); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
