package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceKmLagosToAbuja(t *testing.T) {
	lagos := Point{Lat: 6.5244, Lng: 3.3792}
	abuja := Point{Lat: 9.0765, Lng: 7.3986}

	require.InDelta(t, 526, DistanceKm(lagos, abuja), 5)
	require.InDelta(t, DistanceKm(lagos, abuja), DistanceKm(abuja, lagos), 1e-9)
}

func TestDistanceKmSamePoint(t *testing.T) {
	p := Point{Lat: 6.5, Lng: 3.4}
	require.Zero(t, DistanceKm(p, p))
}

func TestBetweenRequiresAllCoordinates(t *testing.T) {
	lat, lng := 6.5, 3.4
	require.Nil(t, Between(&lat, &lng, nil, &lng))

	d := Between(&lat, &lng, &lat, &lng)
	require.NotNil(t, d)
	require.Zero(t, *d)
}
