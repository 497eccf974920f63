package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/domain/services"
)

func TestDataRoomService_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	existing, err := h.rooms.GetOrCreate(ctx, models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if existing.ID != h.room.ID {
		t.Errorf("GetOrCreate() returned %s, want existing %s", existing.ID, h.room.ID)
	}

	created, err := h.rooms.GetOrCreate(ctx, models.User{ID: "user-9", Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if created.Name != "Data Room (dana)" {
		t.Errorf("default name = %q", created.Name)
	}
	if created.Count == nil {
		t.Error("counts missing")
	}

	again, _ := h.rooms.GetOrCreate(ctx, models.User{ID: "user-9"})
	if again.ID != created.ID {
		t.Error("second GetOrCreate() created another room")
	}
}

func TestDataRoomService_Upsert(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	if _, err := h.rooms.Upsert(ctx, models.User{ID: "user-1"}, &services.DataRoomRequest{Name: "ab"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("short name error = %v, want ErrValidation", err)
	}
	if _, err := h.rooms.Upsert(ctx, models.User{ID: "user-1"}, &services.DataRoomRequest{Name: strings.Repeat("n", 101)}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("long name error = %v, want ErrValidation", err)
	}

	room, err := h.rooms.Upsert(ctx, models.User{ID: "user-1"}, &services.DataRoomRequest{Name: "  Acme Corp  "})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if room.ID != h.room.ID || room.Name != "Acme Corp" {
		t.Errorf("Upsert() = %+v", room)
	}
}

func TestDataRoomService_GetListing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reports := seedFolder(t, h.db, h.room.ID, "Reports", nil)
	seedFolder(t, h.db, h.room.ID, "2024", &reports.ID)
	seedFile(t, h.db, h.room.ID, "root.pdf", nil, "k")

	listing, err := h.rooms.GetListing(ctx, "user-1", h.room.ID)
	if err != nil {
		t.Fatalf("GetListing() error = %v", err)
	}
	if len(listing.Folders) != 1 || len(listing.Files) != 1 {
		t.Errorf("GetListing() folders=%d files=%d", len(listing.Folders), len(listing.Files))
	}
	if listing.Folders[0].Count == nil || listing.Folders[0].Count.Children != 1 {
		t.Errorf("folder counts = %+v", listing.Folders[0].Count)
	}

	if _, err := h.rooms.GetListing(ctx, "user-2", h.room.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign GetListing() error = %v, want ErrForbidden", err)
	}
}
