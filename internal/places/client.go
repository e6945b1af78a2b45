// Package places wraps the Google Places API as the venue feed for the
// tagging pipeline. Responses are mapped into models.Venue; everything
// downstream treats the provider as an opaque source of typed input.
package places

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"vibelymap/internal/constants"
	"vibelymap/internal/models"
	errs "vibelymap/pkg/errors"
	"vibelymap/pkg/logging"
	"vibelymap/pkg/utils"
)

const photoEndpoint = "https://maps.googleapis.com/maps/api/place/photo"

// SearchRequest describes one venue search.
type SearchRequest struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters uint    `json:"radius_meters"`
	Keyword      string  `json:"keyword,omitempty"`
	Query        string  `json:"query,omitempty"` // free-text search; overrides nearby mode
}

// Client is a rate-limited Google Places client.
type Client struct {
	client  *maps.Client
	apiKey  string
	limiter *rate.Limiter
	log     *logging.ComponentLogger

	maxPhotoRefs int
}

func NewClient(apiKey string, log *logging.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errs.NewValidation("places.NewClient", "missing google maps api key", nil)
	}
	mc, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, errs.NewExternal("places.NewClient", "google", "client init failed", err)
	}
	return &Client{
		client:       mc,
		apiKey:       apiKey,
		limiter:      rate.NewLimiter(rate.Limit(constants.PlacesRPSDefault), constants.PlacesBurstDefault),
		log:          log.WithComponent("places"),
		maxPhotoRefs: constants.PhotoHardMaxPerVenue,
	}, nil
}

// Search runs a nearby or free-text search and maps results into venues.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]models.Venue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if req.Query != "" {
		resp, err := c.client.TextSearch(ctx, &maps.TextSearchRequest{Query: req.Query})
		if err != nil {
			return nil, errs.NewExternal("places.Search", "google", "text search failed", err)
		}
		return c.mapResults(resp.Results), nil
	}

	radius := req.RadiusMeters
	if radius == 0 {
		radius = 1500
	}
	resp, err := c.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: req.Lat, Lng: req.Lng},
		Radius:   radius,
		Keyword:  req.Keyword,
	})
	if err != nil {
		return nil, errs.NewExternal("places.Search", "google", "nearby search failed", err)
	}
	return c.mapResults(resp.Results), nil
}

// Details fetches extended fields for one place and overlays them on the
// venue. Failures degrade to the plain search result.
func (c *Client) Details(ctx context.Context, venue models.Venue) models.Venue {
	if err := c.limiter.Wait(ctx); err != nil {
		return venue
	}

	details, err := c.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: venue.ID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskFormattedAddress,
			maps.PlaceDetailsFieldMaskFormattedPhoneNumber,
			maps.PlaceDetailsFieldMaskWebsite,
			maps.PlaceDetailsFieldMaskOpeningHours,
		},
	})
	if err != nil {
		c.log.Debug("place details unavailable", logging.String("place_id", venue.ID), logging.Error(err))
		return venue
	}

	if details.FormattedAddress != "" {
		venue.Address = &details.FormattedAddress
	}
	if details.FormattedPhoneNumber != "" {
		phone := utils.NormalizePhoneNumber(details.FormattedPhoneNumber)
		venue.Phone = &phone
	}
	if details.Website != "" {
		site := utils.NormalizeURL(details.Website)
		venue.Website = &site
	}
	if details.OpeningHours != nil && len(details.OpeningHours.WeekdayText) > 0 {
		hours := strings.Join(details.OpeningHours.WeekdayText, "; ")
		venue.OpenHours = &hours
	}
	return venue
}

func (c *Client) mapResults(results []maps.PlacesSearchResult) []models.Venue {
	venues := make([]models.Venue, 0, len(results))
	for _, r := range results {
		v := models.Venue{
			ID:       r.PlaceID,
			Name:     r.Name,
			Category: categoryLabel(r.Types),
			Lat:      r.Geometry.Location.Lat,
			Lng:      r.Geometry.Location.Lng,
			RawTypes: r.Types,
		}
		if r.Rating > 0 {
			rating := float64(r.Rating)
			v.Rating = &rating
		}
		if r.PriceLevel > 0 {
			price := r.PriceLevel
			v.PriceLevel = &price
		}
		if r.Vicinity != "" {
			vicinity := r.Vicinity
			v.Address = &vicinity
		}

		refs := r.Photos
		if len(refs) > c.maxPhotoRefs {
			refs = refs[:c.maxPhotoRefs]
		}
		for _, p := range refs {
			v.PhotoURLs = append(v.PhotoURLs, c.photoURL(p.PhotoReference))
		}

		venues = append(venues, v)
	}
	return venues
}

// photoURL builds the fetchable URL for a photo reference.
func (c *Client) photoURL(ref string) string {
	return fmt.Sprintf("%s?maxwidth=%d&photoreference=%s&key=%s",
		photoEndpoint, constants.PhotoMaxEdgePixels, url.QueryEscape(ref), url.QueryEscape(c.apiKey))
}

// categoryLabel picks a human-readable category from the raw place types.
func categoryLabel(types []string) string {
	for _, t := range types {
		switch t {
		case "cafe", "coffee_shop":
			return "Cafe"
		case "restaurant", "meal_takeaway", "meal_delivery":
			return "Restaurant"
		case "bar", "night_club":
			return "Bar"
		case "bakery":
			return "Bakery"
		}
	}
	if len(types) > 0 {
		return strings.ReplaceAll(types[0], "_", " ")
	}
	return ""
}
