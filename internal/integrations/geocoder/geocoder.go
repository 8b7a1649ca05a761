package geocoder

import "context"

type Address struct {
	FormattedAddress string
	City             string
	Country          string
}

type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (Address, error)
}
