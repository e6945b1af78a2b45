// Package photos fetches venue photos and converts them into bounded-size
// JPEG payloads embeddable in a vision model request. Every failure is a
// skip, not an error: one bad photo must never abort a venue's analysis.
package photos

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	xdraw "golang.org/x/image/draw"

	"vibelymap/internal/constants"
	"vibelymap/internal/models"
	"vibelymap/pkg/logging"
)

// Photo is a normalized image ready for embedding in a provider request.
type Photo struct {
	DataURL string // data:image/jpeg;base64,...
	Bytes   int    // encoded JPEG size before base64 expansion
}

// Normalizer downscales and re-encodes venue photos.
type Normalizer struct {
	httpClient *http.Client
	log        *logging.ComponentLogger

	maxPerVenue int
	maxEdge     int
	quality     int
	maxPayload  int
}

func NewNormalizer(log *logging.Logger) *Normalizer {
	return &Normalizer{
		httpClient:  &http.Client{Timeout: constants.PhotoFetchTimeout},
		log:         log.WithComponent("photos"),
		maxPerVenue: constants.PhotoMaxPerVenue,
		maxEdge:     constants.PhotoMaxEdgePixels,
		quality:     constants.PhotoJPEGQuality,
		maxPayload:  constants.PhotoMaxPayloadBytes,
	}
}

// SetMaxPerVenue adjusts the per-venue photo bound at runtime (config
// hot-reload). Values outside 1..PhotoHardMaxPerVenue are clamped.
func (n *Normalizer) SetMaxPerVenue(max int) {
	if max < 1 {
		max = 1
	}
	if max > constants.PhotoHardMaxPerVenue {
		max = constants.PhotoHardMaxPerVenue
	}
	n.maxPerVenue = max
}

// Normalize fetches one photo URL and returns the embeddable payload.
// Returns ok=false on any fetch or decode failure so the caller can skip
// that photo.
func (n *Normalizer) Normalize(ctx context.Context, url string) (*Photo, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		n.log.Debug("bad photo url, skipping", logging.String("url", url))
		return nil, false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.Debug("photo fetch failed, skipping", logging.String("url", url), logging.Error(err))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.log.Debug("photo fetch non-200, skipping",
			logging.String("url", url), logging.Int("status", resp.StatusCode))
		return nil, false
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, constants.PhotoMaxDownloadBytes))
	if err != nil {
		n.log.Debug("photo read failed, skipping", logging.String("url", url), logging.Error(err))
		return nil, false
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		n.log.Debug("photo decode failed, skipping", logging.String("url", url), logging.Error(err))
		return nil, false
	}

	img = n.downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.quality}); err != nil {
		n.log.Debug("photo re-encode failed, skipping", logging.String("url", url), logging.Error(err))
		return nil, false
	}

	return &Photo{
		DataURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Bytes:   buf.Len(),
	}, true
}

// downscale resizes so the longer edge is at most maxEdge pixels,
// preserving aspect ratio. Images already within bounds pass through.
func (n *Normalizer) downscale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := w
	if h > long {
		long = h
	}
	if long <= n.maxEdge {
		return img
	}

	scale := float64(n.maxEdge) / float64(long)
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// CollectForVenue normalizes up to the per-venue bound of photos, skipping
// failures, and stops early once the combined payload would exceed the
// provider request size limit.
func (n *Normalizer) CollectForVenue(ctx context.Context, venue models.Venue) []Photo {
	urls := venue.PhotoURLs
	if len(urls) > n.maxPerVenue {
		urls = urls[:n.maxPerVenue]
	}

	var (
		photos []Photo
		total  int
	)
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		p, ok := n.Normalize(ctx, u)
		if !ok {
			continue
		}
		if total+p.Bytes > n.maxPayload {
			n.log.Debug("photo payload budget reached",
				logging.String("place_id", venue.ID), logging.Int("kept", len(photos)))
			break
		}
		total += p.Bytes
		photos = append(photos, *p)
	}
	return photos
}
