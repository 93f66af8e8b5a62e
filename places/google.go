// ABOUTME: Google Places API (New) backend
// ABOUTME: Text search with a circular location bias and per-place detail lookups
package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	placesapi "google.golang.org/api/places/v1"
)

// maxBiasRadius is the largest circle the API accepts for a location bias.
const maxBiasRadius = 50000

const (
	searchFields googleapi.Field = "places.id,places.displayName,places.formattedAddress,places.location,places.rating,places.userRatingCount,places.types,nextPageToken"
	detailFields googleapi.Field = "id,nationalPhoneNumber,internationalPhoneNumber,websiteUri"
)

type Google struct {
	svc *placesapi.Service
}

// NewGoogle creates a Places backend authenticated with an API key. Extra
// client options (endpoint, HTTP client) are appended, mainly for tests.
func NewGoogle(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Google, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("places api key is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := placesapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Places service: %w", err)
	}
	return &Google{svc: svc}, nil
}

func (g *Google) TextSearch(ctx context.Context, req TextSearchRequest) (TextSearchResult, error) {
	radius := req.Radius
	if radius > maxBiasRadius {
		radius = maxBiasRadius
	}

	resp, err := g.svc.Places.SearchText(&placesapi.GoogleMapsPlacesV1SearchTextRequest{
		TextQuery: req.Text,
		PageToken: req.PageToken,
		LocationBias: &placesapi.GoogleMapsPlacesV1SearchTextRequestLocationBias{
			Circle: &placesapi.GoogleMapsPlacesV1Circle{
				Center: &placesapi.GoogleTypeLatLng{
					Latitude:  req.Center.Lat,
					Longitude: req.Center.Lng,
				},
				Radius: radius,
			},
		},
	}).Fields(searchFields).Context(ctx).Do()
	if err != nil {
		return TextSearchResult{}, mapGoogleError(err)
	}

	out := TextSearchResult{NextPageToken: resp.NextPageToken}
	for _, p := range resp.Places {
		if p == nil {
			continue
		}
		out.Places = append(out.Places, fromGoogle(p))
	}
	return out, nil
}

func (g *Google) PlaceDetails(ctx context.Context, id string) (Place, error) {
	p, err := g.svc.Places.Get("places/" + id).Fields(detailFields).Context(ctx).Do()
	if err != nil {
		return Place{}, mapGoogleError(err)
	}
	return fromGoogle(p), nil
}

func fromGoogle(p *placesapi.GoogleMapsPlacesV1Place) Place {
	place := Place{
		ID:      p.Id,
		Address: p.FormattedAddress,
		Rating:  p.Rating,
		Reviews: int(p.UserRatingCount),
		Website: p.WebsiteUri,
		Types:   p.Types,
	}
	if p.DisplayName != nil {
		place.Name = p.DisplayName.Text
	}
	if p.Location != nil {
		place.Location = &LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude}
	}
	place.Phone = p.NationalPhoneNumber
	if place.Phone == "" {
		place.Phone = p.InternationalPhoneNumber
	}
	return place
}

func mapGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: place not found", ErrZeroResults)
		}
		return fmt.Errorf("%w: %d %s", ErrRequestFailed, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %w", ErrRequestFailed, err)
}
