// Package normalize maps heterogeneous upstream place records into the
// canonical Landmark entity. Normalization is total: any input, including an
// empty record, yields a usable Landmark with defaults filled in.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"wayfarer/internal/models"
	"wayfarer/internal/places"
)

const (
	fallbackName = "Unknown Place"
	defaultType  = "point_of_interest"
	photoWidth   = 400
)

// visitDays estimates how long a visitor spends at a place of a given type.
// Types not listed take defaultVisitDays.
var visitDays = map[string]float64{
	"museum":        0.5,
	"castle":        0.5,
	"historic site": 0.5,
	"national park": 2,
	"wine region":   2,
	"city":          3,
	"island":        3,
}

const defaultVisitDays = 1

// PhotoURLFunc builds a public image URL from an upstream photo reference.
// places.Client.PhotoURL satisfies it.
type PhotoURLFunc func(photoRef string, maxWidth int) string

// Normalizer converts RawPlace records into Landmarks. Pure and
// deterministic given a fixed clock; no I/O.
type Normalizer struct {
	photoURL PhotoURLFunc
	now      func() time.Time
}

// New builds a Normalizer. photoURL may be nil, in which case every ImageURL
// is empty.
func New(photoURL PhotoURLFunc) *Normalizer {
	return &Normalizer{photoURL: photoURL, now: time.Now}
}

// Landmark converts one upstream record. Missing fields become sentinels:
// a synthesized temp id, the fallback name, the (0,0) unknown coordinate,
// and zero rating/price (zero means "unrated", not "free").
func (n *Normalizer) Landmark(raw places.RawPlace) models.Landmark {
	id := raw.PlaceID
	if id == "" {
		id = fmt.Sprintf("temp-%d", n.now().UnixMilli())
	}
	name := raw.Name
	if name == "" {
		name = fallbackName
	}

	description := raw.Vicinity
	if description == "" {
		description = raw.FormattedAddress
	}

	primaryType := defaultType
	if len(raw.Types) > 0 && raw.Types[0] != "" {
		primaryType = raw.Types[0]
	}

	var imageURL string
	if len(raw.Photos) > 0 && n.photoURL != nil {
		imageURL = n.photoURL(raw.Photos[0].PhotoReference, photoWidth)
	}

	return models.Landmark{
		ID:          id,
		Name:        name,
		Description: description,
		Location: models.Coordinate{
			Lat: raw.Geometry.Location.Lat,
			Lng: raw.Geometry.Location.Lng,
		},
		ImageURL:           imageURL,
		Rating:             raw.Rating,
		PriceTier:          clampPriceTier(raw.PriceLevel),
		PrimaryType:        primaryType,
		EstimatedVisitDays: EstimateVisitDays(primaryType),
	}
}

// Landmarks converts a batch, preserving order.
func (n *Normalizer) Landmarks(raws []places.RawPlace) []models.Landmark {
	out := make([]models.Landmark, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Landmark(raw))
	}
	return out
}

// EstimateVisitDays looks up the static type→days table. Upstream types use
// underscores; the table uses spaces, so both spellings resolve.
func EstimateVisitDays(placeType string) float64 {
	key := strings.ToLower(strings.ReplaceAll(placeType, "_", " "))
	if days, ok := visitDays[key]; ok {
		return days
	}
	return defaultVisitDays
}

func clampPriceTier(level int) int {
	if level < 0 {
		return 0
	}
	if level > 4 {
		return 4
	}
	return level
}
