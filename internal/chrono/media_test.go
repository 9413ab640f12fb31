package chrono_test

import (
	"context"
	"testing"

	"chronovault/internal/chrono"
	"chronovault/internal/testutil"
)

func TestResolveAll_SkipsMissing(t *testing.T) {
	store := testutil.NewTestMediaStore()
	id1 := testutil.StoreTestMedia(t, store, "a.png")
	svc, _, _, logger := newIndexedService(t, testutil.NewFakeIndexer(), store)

	assets := svc.ResolveAll(context.Background(), id1+",file_0_missing,")
	if len(assets) != 1 {
		t.Fatalf("ResolveAll() returned %d assets, want 1", len(assets))
	}
	if assets[0].ID != id1 || assets[0].Name != "a.png" {
		t.Errorf("asset = %+v, want %s", assets[0], id1)
	}
	if len(logger.Entries("DEBUG")) != 1 {
		t.Errorf("debug entries = %d, want 1 for the missing id", len(logger.Entries("DEBUG")))
	}
}

func TestResolveAll_KeepsInputOrder(t *testing.T) {
	store := testutil.NewTestMediaStore()
	a := testutil.StoreTestMedia(t, store, "a.png")
	b := testutil.StoreTestMedia(t, store, "b.png")
	c := testutil.StoreTestMedia(t, store, "c.png")
	svc, _, _, _ := newIndexedService(t, testutil.NewFakeIndexer(), store)

	assets := svc.ResolveAll(context.Background(), chrono.JoinMediaIDs([]string{c, a, b}))
	if len(assets) != 3 {
		t.Fatalf("ResolveAll() returned %d assets, want 3", len(assets))
	}
	for i, want := range []string{c, a, b} {
		if assets[i].ID != want {
			t.Errorf("assets[%d] = %s, want %s", i, assets[i].ID, want)
		}
	}
}

func TestResolveAll_Empty(t *testing.T) {
	store := testutil.NewCountingMediaStore(testutil.NewTestMediaStore())
	svc, _, _, _ := newIndexedService(t, testutil.NewFakeIndexer(), store)

	for _, ids := range []string{"", ",", " , "} {
		if assets := svc.ResolveAll(context.Background(), ids); len(assets) != 0 {
			t.Errorf("ResolveAll(%q) = %v, want none", ids, assets)
		}
	}
	if len(store.Resolved()) != 0 {
		t.Errorf("store resolved %v, want no calls", store.Resolved())
	}
}

func TestMediaTypeFromMIME(t *testing.T) {
	tests := map[string]chrono.MediaType{
		"image/png":       chrono.MediaImage,
		"IMAGE/JPEG":      chrono.MediaImage,
		"audio/mpeg":      chrono.MediaAudio,
		"video/mp4":       chrono.MediaVideo,
		"application/pdf": chrono.MediaOther,
		"":                chrono.MediaOther,
	}
	for mime, want := range tests {
		if got := chrono.MediaTypeFromMIME(mime); got != want {
			t.Errorf("MediaTypeFromMIME(%q) = %s, want %s", mime, got, want)
		}
	}
}
