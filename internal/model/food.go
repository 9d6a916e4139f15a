package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Status of a listing as the backend reports it.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// Price is transmitted by the backend as either a JSON number or a
// string. The raw value is kept verbatim and only parsed when a
// numeric comparison is needed.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// Float parses the price as a decimal number. An unparseable price
// comes back as NaN, which fails every numeric comparison.
func (p Price) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(p)), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Location is a GeoJSON point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON point from a longitude/latitude pair.
func NewPoint(lng, lat float64) *Location {
	return &Location{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Owner is a listing's user_id field. Depending on the endpoint the
// backend returns either a bare id string or a populated
// {_id, username} document.
type Owner struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		o.ID = id
		return nil
	}
	type alias Owner
	return json.Unmarshal(data, (*alias)(o))
}

// FoodListing is a surplus food item offered by a seller.
type FoodListing struct {
	ID               string    `json:"_id"`
	Name             string    `json:"name"`
	Price            Price     `json:"price"`
	Quantity         int       `json:"quantity"`
	Status           Status    `json:"status"`
	PlaceName        string    `json:"place_name,omitempty"`
	Description      string    `json:"description,omitempty"`
	Location         *Location `json:"location,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	ImageBase64      string    `json:"imageBase64,omitempty"`
	ImageContentType string    `json:"imageContentType,omitempty"`
	Owner            *Owner    `json:"user_id,omitempty"`
}

// FoodFields is the partial payload for create and update calls. Only
// non-nil fields are sent, so an update changes exactly the keys that
// were supplied and leaves the rest untouched.
type FoodFields struct {
	Name             *string   `json:"name,omitempty"`
	Price            *Price    `json:"price,omitempty"`
	Quantity         *int      `json:"quantity,omitempty"`
	Status           *Status   `json:"status,omitempty"`
	PlaceName        *string   `json:"place_name,omitempty"`
	Description      *string   `json:"description,omitempty"`
	Location         *Location `json:"location,omitempty"`
	ImageBase64      *string   `json:"imageBase64,omitempty"`
	ImageContentType *string   `json:"imageContentType,omitempty"`
}
