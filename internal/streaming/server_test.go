package streaming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/library"
	"clipforge/internal/testsupport"
)

type serverFixture struct {
	server *Server
	store  *library.Store
	dir    string
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return &serverFixture{
		server: NewServer(store, nil),
		store:  store,
		dir:    t.TempDir(),
	}
}

// safeItem creates an item in the safe state with the given variants, each
// backed by a real file of the given size.
func (fx *serverFixture) safeItem(t *testing.T, tenant string, variants map[library.Quality]int) *library.Item {
	t.Helper()
	ctx := context.Background()
	source := testsupport.WriteFile(t, filepath.Join(fx.dir, "source.mp4"), []byte("source"))
	item := testsupport.NewItem(t, fx.store, tenant, "clip", source)
	if err := fx.store.SetProcessing(ctx, item.ID); err != nil {
		t.Fatal(err)
	}

	bitrates := map[library.Quality]int{
		library.QualityHigh:   1500,
		library.QualityMedium: 800,
		library.QualityLow:    400,
	}
	progress := 0
	for _, quality := range library.EncodeOrder {
		size, wanted := variants[quality]
		if !wanted {
			continue
		}
		progress += 33
		path := testsupport.FillFile(t, filepath.Join(fx.dir, item.ID+"-"+string(quality)+".mp4"), size)
		err := fx.store.AppendVariant(ctx, item.ID, library.Variant{
			Quality:     quality,
			BitrateKbps: bitrates[quality],
			StoragePath: path,
		}, progress)
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := fx.store.SetVerdict(ctx, item.ID, library.VerdictSafe); err != nil {
		t.Fatal(err)
	}

	got, err := fx.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func (fx *serverFixture) request(t *testing.T, tenant, itemID string, quality library.Quality, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/media/"+itemID+"/stream", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	fx.server.ServeVariant(rec, req, tenant, itemID, quality)
	return rec
}

func TestServeVariantPartialContent(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{library.QualityHigh: 1000})

	rec := fx.request(t, "tenant-a", item.ID, library.QualityHigh, "bytes=0-99")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-99/1000" {
		t.Fatalf("Content-Range = %q", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("Accept-Ranges = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "100" {
		t.Fatalf("Content-Length = %q", got)
	}
	if rec.Body.Len() != 100 {
		t.Fatalf("body length = %d, want 100", rec.Body.Len())
	}
	if rec.Body.Bytes()[5] != byte(5%251) {
		t.Fatal("body bytes do not match file contents")
	}
}

func TestServeVariantOpenEndedRange(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{library.QualityHigh: 500})

	rec := fx.request(t, "tenant-a", item.ID, library.QualityHigh, "bytes=400-")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 400-499/500" {
		t.Fatalf("Content-Range = %q", got)
	}
	if rec.Body.Len() != 100 {
		t.Fatalf("body length = %d", rec.Body.Len())
	}
}

func TestServeVariantClampsEnd(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{library.QualityHigh: 300})

	rec := fx.request(t, "tenant-a", item.ID, library.QualityHigh, "bytes=250-9999")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 250-299/300" {
		t.Fatalf("Content-Range = %q", got)
	}
}

func TestServeVariantRequiresRangeHeader(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{library.QualityHigh: 100})

	rec := fx.request(t, "tenant-a", item.ID, library.QualityHigh, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServeVariantUnsatisfiableRange(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{library.QualityHigh: 100})

	for _, header := range []string{"bytes=100-", "bytes=500-600", "items=0-1", "bytes=9-3"} {
		rec := fx.request(t, "tenant-a", item.ID, library.QualityHigh, header)
		if rec.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("header %q: status = %d, want 416", header, rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes */100" {
			t.Fatalf("header %q: Content-Range = %q", header, got)
		}
	}
}

func TestServeVariantUnknownItem(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.request(t, "tenant-a", "no-such-id", library.QualityHigh, "bytes=0-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServeVariantPendingItem(t *testing.T) {
	fx := newServerFixture(t)
	source := testsupport.WriteFile(t, filepath.Join(fx.dir, "src.mp4"), []byte("x"))
	item := testsupport.NewItem(t, fx.store, "tenant-a", "clip", source)

	rec := fx.request(t, "tenant-a", item.ID, library.QualityHigh, "bytes=0-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServeVariantCrossTenant(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{library.QualityHigh: 100})

	rec := fx.request(t, "tenant-b", item.ID, library.QualityHigh, "bytes=0-1")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestServeVariantQualityFallback(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{
		library.QualityHigh: 800,
		library.QualityLow:  200,
	})

	// medium was never produced; the highest-bitrate present variant wins.
	rec := fx.request(t, "tenant-a", item.ID, library.QualityMedium, "bytes=0-9")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-9/800" {
		t.Fatalf("Content-Range = %q, want the high variant's size", got)
	}
}

func TestServeVariantFallbackWhenFileMissing(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{
		library.QualityHigh: 600,
		library.QualityLow:  200,
	})
	if err := os.Remove(item.VariantFor(library.QualityHigh).StoragePath); err != nil {
		t.Fatal(err)
	}

	rec := fx.request(t, "tenant-a", item.ID, library.QualityHigh, "bytes=0-9")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-9/200" {
		t.Fatalf("Content-Range = %q, want the low variant's size", got)
	}
}

func TestServeVariantAllFilesMissing(t *testing.T) {
	fx := newServerFixture(t)
	item := fx.safeItem(t, "tenant-a", map[library.Quality]int{library.QualityHigh: 100})
	if err := os.Remove(item.VariantFor(library.QualityHigh).StoragePath); err != nil {
		t.Fatal(err)
	}

	rec := fx.request(t, "tenant-a", item.ID, library.QualityHigh, "bytes=0-9")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestParseRangeTable(t *testing.T) {
	cases := []struct {
		header  string
		size    int64
		want    ByteRange
		wantErr bool
	}{
		{"bytes=0-99", 1000, ByteRange{0, 99}, false},
		{"bytes=0-", 1000, ByteRange{0, 999}, false},
		{"bytes=500-2000", 1000, ByteRange{500, 999}, false},
		{"bytes=999-999", 1000, ByteRange{999, 999}, false},
		{"bytes=1000-", 1000, ByteRange{}, true},
		{"bytes=-100", 1000, ByteRange{}, true},
		{"bytes=a-b", 1000, ByteRange{}, true},
		{"bytes=0-1,5-6", 1000, ByteRange{}, true},
		{"0-99", 1000, ByteRange{}, true},
	}
	for _, tc := range cases {
		got, err := ParseRange(tc.header, tc.size)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error, got %+v", tc.header, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.header, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %+v, want %+v", tc.header, got, tc.want)
		}
	}
}
