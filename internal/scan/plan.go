package scan

import (
	"sort"
	"time"

	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/models"
)

// Default sweep timing.
const (
	DefaultDuration = 5000 * time.Millisecond
	DefaultGrace    = 200 * time.Millisecond
)

// Reveal is one scheduled emission of the sweep.
type Reveal struct {
	Prospect models.Prospect `json:"prospect"`
	Bearing  float64         `json:"bearing"`
	Delay    time.Duration   `json:"-"`
	DelayMS  int64           `json:"delay_ms"`
}

// Plan orders prospects by their bearing from center and assigns each a delay
// proportional to that bearing, so a full turn takes duration.
func Plan(prospects []models.Prospect, center geo.LatLng, duration time.Duration) []Reveal {
	reveals := make([]Reveal, 0, len(prospects))
	for _, p := range prospects {
		bearing := geo.Bearing(center, p.Coords)
		delay := time.Duration(bearing / 360 * float64(duration))
		reveals = append(reveals, Reveal{
			Prospect: p,
			Bearing:  bearing,
			Delay:    delay,
			DelayMS:  delay.Milliseconds(),
		})
	}
	sort.SliceStable(reveals, func(i, j int) bool {
		return reveals[i].Bearing < reveals[j].Bearing
	})
	return reveals
}
