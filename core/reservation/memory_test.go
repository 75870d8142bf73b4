package reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evroam/roaminghub/core/model"
)

func TestUpsertAppendsVersions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, &model.ChargingReservation{ID: "r-1", State: model.ReservationCreated})
	_ = store.Upsert(ctx, &model.ChargingReservation{ID: "r-1", State: model.ReservationCanceled})

	latest, err := store.GetLatest(ctx, "r-1")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.State != model.ReservationCanceled {
		t.Errorf("latest state = %s, want canceled", latest.State)
	}

	history, err := store.History(ctx, "r-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].State != model.ReservationCreated {
		t.Errorf("oldest version should come first: %s", history[0].State)
	}
}

func TestGetUnknownID(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := store.History(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("history: got %v, want ErrNotFound", err)
	}
}

func TestListReturnsLatestPerID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Upsert(ctx, &model.ChargingReservation{ID: "b", State: model.ReservationCreated})
	_ = store.Upsert(ctx, &model.ChargingReservation{ID: "a", State: model.ReservationCreated})
	_ = store.Upsert(ctx, &model.ChargingReservation{ID: "a", State: model.ReservationExpired})

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("list length = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[0].State != model.ReservationExpired {
		t.Errorf("first entry = %+v, want latest version of a", got[0])
	}
	if got[1].ID != "b" {
		t.Errorf("second entry = %+v, want b", got[1])
	}
}

func TestExpiresAtFallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := model.ChargingReservation{
		CreatedAt: created,
		Duration:  model.DefaultMaxReservationDuration,
	}
	if got := r.ExpiresAt(); !got.Equal(created.Add(model.DefaultMaxReservationDuration)) {
		t.Errorf("expires at %s", got)
	}

	start := created.Add(time.Hour)
	r.StartTime = start
	if got := r.ExpiresAt(); !got.Equal(start.Add(model.DefaultMaxReservationDuration)) {
		t.Errorf("start time should take precedence, got %s", got)
	}
}
