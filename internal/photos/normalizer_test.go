package photos

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"vibelymap/internal/constants"
	"vibelymap/internal/models"
	"vibelymap/pkg/logging"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	cfg := logging.DefaultLogConfig()
	cfg.EnableAsync = false
	cfg.Level = logging.LevelError
	lg, err := logging.NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { lg.Close() })
	return lg
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func imageServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func decodeDataURL(t *testing.T, dataURL string) image.Image {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		t.Fatalf("data url has wrong prefix: %.40s", dataURL)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("jpeg decode: %v", err)
	}
	return img
}

func TestNormalizeReencodesToJPEG(t *testing.T) {
	srv := imageServer(t, pngBytes(t, 100, 60))
	n := NewNormalizer(newTestLogger(t))

	p, ok := n.Normalize(context.Background(), srv.URL)
	if !ok {
		t.Fatal("expected normalization to succeed")
	}
	img := decodeDataURL(t, p.DataURL)
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 60 {
		t.Fatalf("small image resized to %dx%d, should pass through", b.Dx(), b.Dy())
	}
	if p.Bytes <= 0 {
		t.Fatalf("Bytes = %d", p.Bytes)
	}
}

func TestNormalizeDownscalesLargeImages(t *testing.T) {
	srv := imageServer(t, pngBytes(t, 2048, 1024))
	n := NewNormalizer(newTestLogger(t))

	p, ok := n.Normalize(context.Background(), srv.URL)
	if !ok {
		t.Fatal("expected normalization to succeed")
	}
	img := decodeDataURL(t, p.DataURL)
	b := img.Bounds()
	if b.Dx() != constants.PhotoMaxEdgePixels {
		t.Errorf("long edge = %d, want %d", b.Dx(), constants.PhotoMaxEdgePixels)
	}
	// Aspect ratio 2:1 must survive the resize.
	if b.Dy() != constants.PhotoMaxEdgePixels/2 {
		t.Errorf("short edge = %d, want %d", b.Dy(), constants.PhotoMaxEdgePixels/2)
	}
}

func TestNormalizeSkipsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	n := NewNormalizer(newTestLogger(t))
	if _, ok := n.Normalize(context.Background(), srv.URL); ok {
		t.Fatal("non-200 response should be a skip")
	}
}

func TestNormalizeSkipsUndecodableBody(t *testing.T) {
	srv := imageServer(t, []byte("definitely not an image"))
	n := NewNormalizer(newTestLogger(t))
	if _, ok := n.Normalize(context.Background(), srv.URL); ok {
		t.Fatal("undecodable body should be a skip")
	}
}

func TestNormalizeSkipsUnreachableHost(t *testing.T) {
	n := NewNormalizer(newTestLogger(t))
	if _, ok := n.Normalize(context.Background(), "http://127.0.0.1:1/photo.jpg"); ok {
		t.Fatal("connection failure should be a skip")
	}
}

func TestCollectForVenueCapsAtMaxPerVenue(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write(pngBytes(t, 50, 50))
	}))
	t.Cleanup(srv.Close)

	n := NewNormalizer(newTestLogger(t))
	n.SetMaxPerVenue(2)

	venue := models.Venue{ID: "p1", PhotoURLs: []string{
		srv.URL + "/1", srv.URL + "/2", srv.URL + "/3", srv.URL + "/4",
	}}
	got := n.CollectForVenue(context.Background(), venue)
	if len(got) != 2 {
		t.Fatalf("kept %d photos, want 2", len(got))
	}
	if h := atomic.LoadInt32(&hits); h != 2 {
		t.Fatalf("fetched %d photos, want 2", h)
	}
}

func TestCollectForVenueSkipsFailures(t *testing.T) {
	good := imageServer(t, pngBytes(t, 50, 50))
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	n := NewNormalizer(newTestLogger(t))
	venue := models.Venue{ID: "p1", PhotoURLs: []string{bad.URL, good.URL, bad.URL}}

	got := n.CollectForVenue(context.Background(), venue)
	if len(got) != 1 {
		t.Fatalf("kept %d photos, want the single good one", len(got))
	}
}

func TestCollectForVenueHonorsCancelledContext(t *testing.T) {
	srv := imageServer(t, pngBytes(t, 50, 50))
	n := NewNormalizer(newTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	venue := models.Venue{ID: "p1", PhotoURLs: []string{srv.URL}}
	if got := n.CollectForVenue(ctx, venue); len(got) != 0 {
		t.Fatalf("cancelled collection returned %d photos", len(got))
	}
}

func TestSetMaxPerVenueClamps(t *testing.T) {
	n := NewNormalizer(newTestLogger(t))

	n.SetMaxPerVenue(0)
	if n.maxPerVenue != 1 {
		t.Errorf("maxPerVenue = %d, want clamp to 1", n.maxPerVenue)
	}
	n.SetMaxPerVenue(100)
	if n.maxPerVenue != constants.PhotoHardMaxPerVenue {
		t.Errorf("maxPerVenue = %d, want clamp to %d", n.maxPerVenue, constants.PhotoHardMaxPerVenue)
	}
	n.SetMaxPerVenue(4)
	if n.maxPerVenue != 4 {
		t.Errorf("maxPerVenue = %d, want 4", n.maxPerVenue)
	}
}
