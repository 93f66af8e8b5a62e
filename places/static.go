package places

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const staticPageSize = 20

// Static serves searches from a fixed set of places, for demos and tests.
// A place matches when any query word appears in its name or types.
type Static struct {
	places []Place
	byID   map[string]Place
}

func NewStatic(places []Place) *Static {
	s := &Static{places: places, byID: make(map[string]Place, len(places))}
	for _, p := range places {
		s.byID[p.ID] = p
	}
	return s
}

// LoadStatic reads a JSON array of places.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var places []Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return NewStatic(places), nil
}

func (s *Static) TextSearch(ctx context.Context, req TextSearchRequest) (TextSearchResult, error) {
	if err := ctx.Err(); err != nil {
		return TextSearchResult{}, err
	}

	words := strings.Fields(strings.ToLower(req.Text))
	var matched []Place
	for _, p := range s.places {
		if matches(p, words) {
			matched = append(matched, stripDetails(p))
		}
	}

	offset := 0
	if req.PageToken != "" {
		n, err := strconv.Atoi(req.PageToken)
		if err != nil || n < 0 {
			return TextSearchResult{}, fmt.Errorf("%w: bad page token", ErrRequestFailed)
		}
		offset = n
	}
	if offset >= len(matched) {
		return TextSearchResult{}, nil
	}

	end := min(offset+staticPageSize, len(matched))
	res := TextSearchResult{Places: matched[offset:end]}
	if end < len(matched) {
		res.NextPageToken = strconv.Itoa(end)
	}
	return res, nil
}

func (s *Static) PlaceDetails(ctx context.Context, id string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	p, ok := s.byID[id]
	if !ok {
		return Place{}, fmt.Errorf("%w: place not found", ErrZeroResults)
	}
	return p, nil
}

func matches(p Place, words []string) bool {
	if len(words) == 0 {
		return true
	}
	name := strings.ToLower(p.Name)
	for _, w := range words {
		if strings.Contains(name, w) {
			return true
		}
		for _, t := range p.Types {
			if strings.Contains(strings.ToLower(t), w) {
				return true
			}
		}
	}
	return false
}

// stripDetails hides contact data from search results, as the real API does
// with the search field mask.
func stripDetails(p Place) Place {
	p.Phone = ""
	p.Website = ""
	return p
}
