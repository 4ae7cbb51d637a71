package models

import "strconv"

// LatLng is a WGS84 coordinate in the shape the Maps web services use.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the coordinate as the "lat,lng" form accepted by the
// nearby-search location parameter.
func (c LatLng) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}
