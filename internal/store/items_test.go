package store

import (
	"context"
	"strings"
	"testing"

	"github.com/danielvc/panol/internal/db"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "", "Hammer", "", "BrandX", 10, "tool")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Name != "Hammer" || item.Brand != "BrandX" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", item.Quantity)
	}
	if !strings.HasPrefix(item.ID, "HAMM") {
		t.Errorf("expected name-derived id, got %q", item.ID)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got == nil || got.ID != item.ID {
		t.Errorf("expected to fetch created item, got %v", got)
	}
}

func TestCreateItemExplicitIDAndCode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "TOOL0001", "Hammer", "H-01", "BrandX", 0, "")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ID != "TOOL0001" {
		t.Errorf("expected explicit id to be kept, got %q", item.ID)
	}
	if item.Code != "H-01" {
		t.Errorf("expected explicit code to be kept, got %q", item.Code)
	}
}

func TestCreateItemDerivesCode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "TOOL0001", "Hammer", "", "BrandX", 0, "")
	if item.Code != "TOOL-0001" {
		t.Errorf("expected derived code TOOL-0001, got %q", item.Code)
	}
}

func TestCreateItemCollisionDisambiguates(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, _ := CreateItem(ctx, database, "TOOL0001", "Hammer", "", "BrandX", 0, "")
	second, err := CreateItem(ctx, database, "TOOL0001", "Other", "", "BrandY", 0, "")
	if err != nil {
		t.Fatalf("CreateItem with colliding id: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected disambiguated id, got duplicate")
	}
	if !strings.HasPrefix(second.ID, "TOOL0001-") {
		t.Errorf("expected suffixed id, got %q", second.ID)
	}

	items, _ := ListItems(ctx, database)
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

func TestGetItemMissing(t *testing.T) {
	database := db.NewTestDB(t)

	item, err := GetItem(context.Background(), database, "NOPE1234")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item != nil {
		t.Errorf("expected nil for missing item, got %+v", item)
	}
}

func TestItemPhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "", "Photo Item", "", "BrandX", 0, "")
	photoData := []byte("fake photo data")
	if err := SetItemPhoto(ctx, database, item.ID, photoData, "image/jpeg"); err != nil {
		t.Fatalf("SetItemPhoto: %v", err)
	}

	data, mime, err := GetItemPhoto(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemPhoto: %v", err)
	}
	if string(data) != "fake photo data" {
		t.Errorf("expected photo data, got %q", string(data))
	}
	if mime != "image/jpeg" {
		t.Errorf("expected mime 'image/jpeg', got %q", mime)
	}
}
