package vision

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"vibelymap/internal/models"
	"vibelymap/internal/photos"
	"vibelymap/internal/prompts"
	"vibelymap/internal/tagcache"
	errs "vibelymap/pkg/errors"
	"vibelymap/pkg/logging"
	"vibelymap/pkg/metrics"
)

const ambiancePromptName = "ambiance_analysis"

// PhotoCollector produces normalized, embeddable photos for a venue.
type PhotoCollector interface {
	CollectForVenue(ctx context.Context, venue models.Venue) []photos.Photo
}

// Analyzer runs a single venue's photos through one provider and converts
// the response into flat tags.
type Analyzer struct {
	collector PhotoCollector
	cache     tagcache.Store
	pm        *prompts.Manager
	log       *logging.ComponentLogger

	temperature float32
	maxTokens   int

	mAnalyzed *metrics.Counter
	mNoPhotos *metrics.Counter
	mBadJSON  *metrics.Counter
}

func NewAnalyzer(collector PhotoCollector, cache tagcache.Store, pm *prompts.Manager, log *logging.Logger) *Analyzer {
	return &Analyzer{
		collector:   collector,
		cache:       cache,
		pm:          pm,
		log:         log.WithComponent("vision"),
		temperature: 0.1,
		maxTokens:   300,
		mAnalyzed:   metrics.Default.Counter("vision_analyses_total", "Completed single-venue analyses"),
		mNoPhotos:   metrics.Default.Counter("vision_no_photos_total", "Venues skipped for having no usable photos"),
		mBadJSON:    metrics.Default.Counter("vision_bad_json_total", "Provider completions that failed JSON parsing"),
	}
}

// ApplyConfig updates sampling knobs at runtime (config hot-reload).
func (a *Analyzer) ApplyConfig(temperature float64, maxTokens int) {
	if temperature >= 0 && temperature <= 2 {
		a.temperature = float32(temperature)
	}
	if maxTokens > 0 {
		a.maxTokens = maxTokens
	}
}

// Analyze sends the venue's photos plus the fixed instruction prompt to the
// given provider and returns the converted tag list. A venue with zero
// usable photos yields an empty list with no network call. A completion
// that cannot be parsed is a hard failure so the fallback layer can try the
// next provider. Non-empty results are written through the cache
// best-effort before returning.
func (a *Analyzer) Analyze(ctx context.Context, venue models.Venue, p *Provider) ([]string, error) {
	pics := a.collector.CollectForVenue(ctx, venue)
	if len(pics) == 0 {
		a.mNoPhotos.Inc(1)
		a.log.Debug("no usable photos, skipping analysis", logging.String("place_id", venue.ID))
		return nil, nil
	}

	instruction, err := a.pm.Render(ambiancePromptName, map[string]string{
		"VenueName": venue.Name,
		"Category":  venue.Category,
	})
	if err != nil {
		return nil, err
	}

	parts := make([]openai.ChatMessagePart, 0, len(pics)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: instruction,
	})
	for _, pic := range pics {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    pic.DataURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := p.complete(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errs.NewExternal("vision.Analyze", p.Name(), "completion has no choices", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		// Empty completion means the model had nothing to say; not an error.
		return nil, nil
	}

	obs, err := parseObservation(text)
	if err != nil {
		a.mBadJSON.Inc(1)
		// Malformed output likely indicates a provider-side problem worth
		// surfacing to the fallback layer, not a silent empty result.
		return nil, errs.NewExternal("vision.Analyze", p.Name(), "unparseable completion", err)
	}

	tags := ConvertObservation(*obs)
	a.mAnalyzed.Inc(1)

	if len(tags) > 0 {
		if cerr := a.cache.Set(ctx, venue.ID, tags, 0); cerr != nil {
			a.log.Warn("cache write failed, tags still returned",
				logging.String("place_id", venue.ID), logging.Error(cerr))
		}
	}

	return tags, nil
}

// parseObservation strips optional markdown code fences and decodes the
// strict Observation JSON shape.
func parseObservation(text string) (*models.Observation, error) {
	text = stripCodeFences(text)

	var obs models.Observation
	if err := json.Unmarshal([]byte(text), &obs); err != nil {
		return nil, err
	}
	return &obs, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language hint like "json" on the fence line.
	if idx := strings.Index(s, "\n"); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
