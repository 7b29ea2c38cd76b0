package usecase_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	routesout "crux/internal/modules/routes/adapter/out"
	routesdto "crux/internal/modules/routes/dto"
	routesservice "crux/internal/modules/routes/service"
	routesusecase "crux/internal/modules/routes/usecase"
	sessionout "crux/internal/modules/session/adapter/out"
	sessiondto "crux/internal/modules/session/dto"
	sessionservice "crux/internal/modules/session/service"
	sessionusecase "crux/internal/modules/session/usecase"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	buf := bytes.Buffer{}
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

// The full loop both stores share one database file: save a route, log
// attempts against it, finish, then delete the route and check the logged
// snapshots survive on their own.
func TestEndToEndLogbookFlow(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	dbPath := filepath.Join(home, "crux.db")
	ctx := context.Background()
	clk := &fakeClock{values: []time.Time{
		time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 7, 10, 5, 0, 0, time.UTC),
		time.Date(2026, 3, 7, 10, 12, 0, 0, time.UTC),
	}}

	routeStore, err := routesout.NewSQLiteRouteStore(dbPath)
	if err != nil {
		t.Fatalf("open route store: %v", err)
	}
	t.Cleanup(func() { routeStore.Close() })
	routes := routesusecase.NewInteractor(
		routesservice.NewRouteService(clk, &seqID{prefix: "route"}, routeStore, routesout.NewStdAttachmentProbe()),
		nil, nil,
	)

	sessionStore, err := sessionout.NewSQLiteSessionStore(dbPath)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { sessionStore.Close() })
	sessions := sessionusecase.NewInteractor(
		sessionservice.NewSessionService(clk, &seqID{prefix: "sess"}, sessionStore, sessionStore),
		routes,
		sessionout.NewMarkdownJournal(filepath.Join(home, "journal")),
		nil,
	)

	saved, err := routes.Save(ctx, routesdto.SaveInput{
		Name:  "Heel Hook Arete",
		Color: "red",
		Gym:   "Boulder Barn",
		Image: testPNG(t),
	})
	if err != nil {
		t.Fatalf("save route: %v", err)
	}
	if saved.Attachment != "image/png, 8x6" {
		t.Fatalf("unexpected attachment description %q", saved.Attachment)
	}

	if _, err := sessions.Start(ctx, sessiondto.StartInput{Date: "2026-03-07", Gym: "Boulder Barn"}); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := sessions.AddAttempt(ctx, sessiondto.AddAttemptInput{
		Route:   &sessiondto.RouteRef{RouteID: saved.ID},
		Success: boolPtr(false),
	}); err != nil {
		t.Fatalf("add first attempt: %v", err)
	}
	if _, err := sessions.AddAttempt(ctx, sessiondto.AddAttemptInput{
		Route:   &sessiondto.RouteRef{RouteID: saved.ID},
		Success: boolPtr(true),
		Notes:   "finally stuck the heel",
	}); err != nil {
		t.Fatalf("add second attempt: %v", err)
	}
	finished, err := sessions.Finish(ctx)
	if err != nil {
		t.Fatalf("finish session: %v", err)
	}

	deleted, err := routes.Delete(ctx, saved.ID)
	if err != nil || !deleted {
		t.Fatalf("delete route: deleted=%v err=%v", deleted, err)
	}
	if deleted, err := routes.Delete(ctx, saved.ID); err != nil || deleted {
		t.Fatalf("second delete must report false, got deleted=%v err=%v", deleted, err)
	}

	got, err := sessions.Get(ctx, finished.ID)
	if err != nil {
		t.Fatalf("get finished session: %v", err)
	}
	if len(got.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got.Attempts))
	}
	for _, attempt := range got.Attempts {
		if attempt.Route == nil || attempt.Route.Name != "Heel Hook Arete" || attempt.Route.Color != "red" {
			t.Fatalf("snapshot must survive route deletion, got %+v", attempt.Route)
		}
	}

	stats, err := sessions.ColorStats(ctx, sessiondto.ColorStatsInput{SessionID: finished.ID})
	if err != nil {
		t.Fatalf("color stats: %v", err)
	}
	if stats.Colors["red"].Total != 2 || stats.Colors["red"].Success != 1 {
		t.Fatalf("unexpected red bucket %+v", stats.Colors["red"])
	}
}
