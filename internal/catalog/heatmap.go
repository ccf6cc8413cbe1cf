package catalog

import "fmt"

type HeatmapKind string

const (
	HeatmapLeads   HeatmapKind = "leads"
	HeatmapClients HeatmapKind = "clients"
)

// Client courts all carry the same weight; leads are weighted by AI score.
const (
	clientWeight    = 50
	leadScoreFactor = 10
)

// HeatPoint is one weighted sample for a heat layer.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight float64 `json:"weight"`
}

func (c *Static) Heatmap(kind HeatmapKind) ([]HeatPoint, error) {
	points := []HeatPoint{}
	switch kind {
	case HeatmapLeads:
		for _, l := range c.leads {
			points = append(points, HeatPoint{Lat: l.Coords.Lat, Lng: l.Coords.Lng, Weight: float64(l.AIScore * leadScoreFactor)})
		}
	case HeatmapClients:
		for _, court := range c.courts {
			if !court.IsClient {
				continue
			}
			points = append(points, HeatPoint{Lat: court.Coords.Lat, Lng: court.Coords.Lng, Weight: clientWeight})
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHeatmap, kind)
	}
	return points, nil
}
