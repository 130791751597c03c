package places

// RawPlace is a single upstream place record. Any field may be absent; the
// normalizer fills defaults, never this layer.
type RawPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Geometry         Geometry `json:"geometry"`
	Photos           []Photo  `json:"photos,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	PriceLevel       int      `json:"price_level,omitempty"`
	Types            []string `json:"types,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
}

type Geometry struct {
	Location LatLng `json:"location"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Photo struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
}

// searchResponse is the top-level nearby-search envelope.
type searchResponse struct {
	Status       string     `json:"status"`
	Results      []RawPlace `json:"results"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// detailsResponse is the top-level details envelope.
type detailsResponse struct {
	Status       string   `json:"status"`
	Result       RawPlace `json:"result"`
	ErrorMessage string   `json:"error_message,omitempty"`
}
