// Package scan simulates prospect discovery over a map region: it synthesizes
// residential courts inside a box or drawn polygon and reveals them in a
// clockwise radar sweep.
package scan

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/david/court-scout/internal/geo"
	"github.com/david/court-scout/internal/models"
)

// Policy constants of the simulator.
const (
	MinCandidates     = 5
	MaxCandidates     = 12
	MaxPlacementTries = 100

	MinConditionScore = 4.5
	MaxConditionScore = 9.5

	minHouseNumber = 1000
	maxHouseNumber = 9999

	idBase   = 500
	idJitter = 1000
)

// DefaultLocality is appended to every synthesized address.
const DefaultLocality = "Paradise Valley, AZ"

var ErrInvalidRegion = errors.New("invalid scan region")

var (
	firstNames  = []string{"John", "Jane", "Robert", "Emily"}
	lastNames   = []string{"Smith", "Johnson", "Williams", "Brown"}
	streetNames = []string{"Ocotillo", "Mesquite", "Palo Verde", "Saguaro"}
	streetTypes = []string{"Rd", "Ln", "Dr", "Ct"}
)

// Rand is the subset of *rand.Rand the generator draws from.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Region is the area a scan covers. Polygon is optional and uses [lng, lat]
// vertex order.
type Region struct {
	Bounds  geo.Bounds `json:"bounds"`
	Polygon geo.Ring   `json:"polygon,omitempty"`
}

// Validate rejects degenerate boxes. A polygon never makes a region invalid;
// a polygon that cannot contain points only results in dropped candidates.
func (r Region) Validate() error {
	if err := r.Bounds.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}
	return nil
}

// Result is the synchronous output of Generate.
type Result struct {
	Requested int               `json:"requested"`
	Dropped   int               `json:"dropped"`
	Prospects []models.Prospect `json:"prospects"`
}

// Generator synthesizes residential prospects. It is not safe for concurrent
// use because the underlying random source is not.
type Generator struct {
	rnd      Rand
	locality string
}

// NewGenerator wraps a random source. A nil source gets a randomly seeded PCG.
func NewGenerator(rnd Rand, locality string) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if locality == "" {
		locality = DefaultLocality
	}
	return &Generator{rnd: rnd, locality: locality}
}

// NewSeededGenerator returns a deterministic generator.
func NewSeededGenerator(seed uint64, locality string) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), locality)
}

// Generate draws between MinCandidates and MaxCandidates prospects inside the
// region. Candidates that miss the polygon MaxPlacementTries times in a row
// are dropped and counted in Result.Dropped.
func (g *Generator) Generate(region Region) (Result, error) {
	if err := region.Validate(); err != nil {
		return Result{}, err
	}

	requested := MinCandidates + g.rnd.IntN(MaxCandidates-MinCandidates+1)
	res := Result{
		Requested: requested,
		Prospects: make([]models.Prospect, 0, requested),
	}
	seen := make(map[string]bool, requested)

	for i := 0; i < requested; i++ {
		pos, ok := g.place(region)
		if !ok {
			res.Dropped++
			continue
		}
		res.Prospects = append(res.Prospects, g.synthesize(i, pos, seen))
	}
	return res, nil
}

func (g *Generator) place(region Region) (geo.LatLng, bool) {
	b := region.Bounds
	sample := func() geo.LatLng {
		return geo.LatLng{
			Lat: b.SouthWest.Lat + g.rnd.Float64()*b.LatSpan(),
			Lng: b.SouthWest.Lng + g.rnd.Float64()*b.LngSpan(),
		}
	}

	if len(region.Polygon) == 0 {
		return sample(), true
	}
	for attempt := 0; attempt < MaxPlacementTries; attempt++ {
		p := sample()
		if region.Polygon.Contains(p) {
			return p, true
		}
	}
	return geo.LatLng{}, false
}

func (g *Generator) synthesize(index int, pos geo.LatLng, seen map[string]bool) models.Prospect {
	lastName := pick(g.rnd, lastNames)
	streetName := pick(g.rnd, streetNames)
	streetType := pick(g.rnd, streetTypes)
	court := models.CourtTypes[g.rnd.IntN(len(models.CourtTypes))]

	score := MinConditionScore + g.rnd.Float64()*(MaxConditionScore-MinConditionScore)
	score = math.Round(score*10) / 10
	condition := models.ConditionFor(score)

	houseNumber := minHouseNumber + g.rnd.IntN(maxHouseNumber-minHouseNumber+1)

	return models.Prospect{
		ID:             g.uniqueID(index, seen),
		Type:           models.TypeResidential,
		Coords:         pos,
		Name:           lastName + " Residence",
		Homeowner:      pick(g.rnd, firstNames) + " " + lastName,
		Address:        fmt.Sprintf("%d W %s %s, %s", houseNumber, streetName, streetType, g.locality),
		CourtType:      court,
		ConditionScore: score,
		Condition:      condition,
		AISummary:      Assessment(condition, court),
	}
}

// uniqueID keeps the legacy numeric id shape (base + index + jitter) and
// redraws the jitter when it collides with an id already issued in this scan.
func (g *Generator) uniqueID(index int, seen map[string]bool) string {
	for {
		id := strconv.Itoa(idBase + index + g.rnd.IntN(idJitter))
		if !seen[id] {
			seen[id] = true
			return id
		}
	}
}

// Assessment is the canned assessment text for a residential court.
func Assessment(condition models.Condition, court models.CourtType) string {
	name := strings.ToLower(string(court))
	if condition == models.ConditionGood {
		return fmt.Sprintf("Well-maintained %s court on a large property.", name)
	}
	return fmt.Sprintf("Visible wear and fading on the %s court surface. High potential for a resurfacing lead.", name)
}

func pick(rnd Rand, pool []string) string {
	return pool[rnd.IntN(len(pool))]
}
