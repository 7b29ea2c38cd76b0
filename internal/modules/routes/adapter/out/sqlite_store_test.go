package out_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	routesout "crux/internal/modules/routes/adapter/out"
	"crux/internal/modules/routes/domain"
	apperrors "crux/internal/platform/errors"
)

func openRouteStore(t *testing.T) *routesout.SQLiteRouteStore {
	t.Helper()
	store, err := routesout.NewSQLiteRouteStore(filepath.Join(t.TempDir(), "crux.db"))
	if err != nil {
		t.Fatalf("open route store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRoute(id string, day int) domain.Route {
	return domain.Route{
		ID:    id,
		Name:  "Heel Hook Arete",
		Color: domain.ColorRed,
		Gym:   "Boulder Barn",
		Notes: "start matched on the sloper",
		Image: []byte("fake-image-bytes-" + id),
		Attachment: domain.AttachmentInfo{
			MIME:   "image/png",
			Size:   len("fake-image-bytes-" + id),
			Width:  640,
			Height: 480,
		},
		CreatedAt: time.Date(2026, 3, day, 9, 30, 0, 0, time.UTC),
	}
}

func TestSaveAndFindByIDKeepsMetadata(t *testing.T) {
	t.Parallel()
	store := openRouteStore(t)
	ctx := context.Background()
	want := sampleRoute("r-1", 5)

	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.FindByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != want.Name || got.Color != want.Color || got.Gym != want.Gym || got.Notes != want.Notes {
		t.Fatalf("metadata diverged: %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("createdAt became %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if got.Attachment.MIME != "image/png" || got.Attachment.Width != 640 || got.Attachment.Height != 480 {
		t.Fatalf("attachment info diverged: %+v", got.Attachment)
	}
	// Reads skip the blob; only its size comes back.
	if got.Image != nil {
		t.Fatalf("find must not load the blob")
	}
	if got.Attachment.Size != len(want.Image) {
		t.Fatalf("stored blob size %d, want %d", got.Attachment.Size, len(want.Image))
	}
}

func TestFindByIDMissingIsNotFound(t *testing.T) {
	t.Parallel()
	store := openRouteStore(t)
	if _, err := store.FindByID(context.Background(), "nope"); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	t.Parallel()
	store := openRouteStore(t)
	ctx := context.Background()
	older := sampleRoute("r-old", 5)
	newer := sampleRoute("r-new", 9)
	if err := store.Save(ctx, older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := store.Save(ctx, newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	routes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected two routes, got %d", len(routes))
	}
	if routes[0].ID != "r-new" || routes[1].ID != "r-old" {
		t.Fatalf("wrong order: %s then %s", routes[0].ID, routes[1].ID)
	}
}

func TestUpdateWithoutImageKeepsBlob(t *testing.T) {
	t.Parallel()
	store := openRouteStore(t)
	ctx := context.Background()
	route := sampleRoute("r-1", 5)
	if err := store.Save(ctx, route); err != nil {
		t.Fatalf("save: %v", err)
	}

	route.Name = "Heel Hook Arete Direct"
	route.Image = nil
	if err := store.Update(ctx, route); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.FindByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Heel Hook Arete Direct" {
		t.Fatalf("name not updated: %q", got.Name)
	}
	data, blobMIME, err := store.ImageByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if !bytes.Equal(data, []byte("fake-image-bytes-r-1")) || blobMIME != "image/png" {
		t.Fatalf("blob must survive a metadata update, got %d bytes %q", len(data), blobMIME)
	}
}

func TestUpdateWithImageReplacesBlob(t *testing.T) {
	t.Parallel()
	store := openRouteStore(t)
	ctx := context.Background()
	route := sampleRoute("r-1", 5)
	if err := store.Save(ctx, route); err != nil {
		t.Fatalf("save: %v", err)
	}

	route.Image = []byte("%PDF-pretend")
	route.Attachment = domain.AttachmentInfo{MIME: "application/pdf", Size: len(route.Image), Pages: 2}
	if err := store.Update(ctx, route); err != nil {
		t.Fatalf("update: %v", err)
	}

	data, blobMIME, err := store.ImageByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if !bytes.Equal(data, []byte("%PDF-pretend")) || blobMIME != "application/pdf" {
		t.Fatalf("blob not replaced: %d bytes %q", len(data), blobMIME)
	}
	got, err := store.FindByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Attachment.Pages != 2 || got.Attachment.Width != 0 {
		t.Fatalf("attachment info not replaced: %+v", got.Attachment)
	}
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	t.Parallel()
	store := openRouteStore(t)
	route := sampleRoute("ghost", 5)
	if err := store.Update(context.Background(), route); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	t.Parallel()
	store := openRouteStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, sampleRoute("r-1", 5)); err != nil {
		t.Fatalf("save: %v", err)
	}

	deleted, err := store.Delete(ctx, "r-1")
	if err != nil || !deleted {
		t.Fatalf("first delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "r-1")
	if err != nil || deleted {
		t.Fatalf("second delete must report false, got deleted=%v err=%v", deleted, err)
	}
	if _, _, err := store.ImageByID(ctx, "r-1"); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}
