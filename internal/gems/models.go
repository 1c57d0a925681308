// Package gems holds the domain records shared by the filter engine, the
// decoder and the pipeline.
package gems

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// MaxGems is the upper bound on gems in a successful result.
const MaxGems = 3

const (
	PlaceholderPhoto  = "https://images.unsplash.com/photo-1559827260-dc66d52bef19?w=800"
	DefaultWhySpecial = "A hidden gem worth exploring"
	DefaultBestTime   = "Check local hours"
	DefaultInsiderTip = "Visit during off-peak hours for the best experience"
	DefaultAddress    = "Address not available"
	MaxPhotos         = 5
)

// StageID names a text-generating stage.
type StageID string

const (
	StageIntent       StageID = "intent"
	StageDiscovery    StageID = "discovery"
	StageRecommend    StageID = "recommend"
	StageAdvice       StageID = "advice"
	StageConversation StageID = "conversation"
)

// Status is the outcome carried by a CanonicalResult.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusZeroGems Status = "zero_gems"
	StatusError    Status = "error"
)

// Tier is the hidden-gem classification assigned by the filter engine.
type Tier string

const (
	TierHigh     Tier = "HIGH"
	TierMedium   Tier = "MEDIUM"
	TierLow      Tier = "LOW"
	TierFallback Tier = "FALLBACK"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) finite() bool {
	for _, f := range []float64{c.Lat, c.Lng} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// IsZero reports whether both components are zero.
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// Candidate is a raw discovery result.
type Candidate struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"reviewCount"`
	Types       []string    `json:"types,omitempty"`
	Location    Coordinates `json:"location"`
	Address     string      `json:"address,omitempty"`
}

// ScoredCandidate is a Candidate that passed the filter.
type ScoredCandidate struct {
	Candidate
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}

// Detail is the per-candidate enrichment payload.
type Detail struct {
	Name           string      `json:"name,omitempty"`
	Address        string      `json:"address,omitempty"`
	ReviewExcerpts []string    `json:"reviewExcerpts,omitempty"`
	MapURL         string      `json:"mapUrl,omitempty"`
	PhotoURLs      []string    `json:"photoUrls,omitempty"`
	Coordinates    Coordinates `json:"coordinates"`
}

type Analysis struct {
	WhySpecial string `json:"whySpecial"`
	BestTime   string `json:"bestTime"`
	InsiderTip string `json:"insiderTip"`
}

// Normalize fills empty analysis fields with their defaults.
func (a *Analysis) Normalize() {
	if a.WhySpecial == "" {
		a.WhySpecial = DefaultWhySpecial
	}
	if a.BestTime == "" {
		a.BestTime = DefaultBestTime
	}
	if a.InsiderTip == "" {
		a.InsiderTip = DefaultInsiderTip
	}
}

type Gem struct {
	Name           string      `json:"placeName"`
	Address        string      `json:"address"`
	Coordinates    Coordinates `json:"coordinates"`
	Rating         float64     `json:"rating"`
	ReviewCount    int         `json:"reviewCount"`
	ReviewExcerpts []string    `json:"reviewExcerpts,omitempty"`
	MapURL         string      `json:"mapUrl,omitempty"`
	PhotoURLs      []string    `json:"photos"`
	Analysis       Analysis    `json:"analysis"`
}

var mapCoordsPattern = regexp.MustCompile(`[@!](-?\d+\.\d+),(-?\d+\.\d+)`)

// CoordinatesFromMapURL extracts an "@lat,lng" pair from a map link.
func CoordinatesFromMapURL(mapURL string) (Coordinates, bool) {
	m := mapCoordsPattern.FindStringSubmatch(mapURL)
	if m == nil {
		return Coordinates{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

// MapURLFor builds a search link for a place with known coordinates.
func MapURLFor(c Coordinates) string {
	if c.IsZero() {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%.6f,%.6f", c.Lat, c.Lng)
}

// Normalize enforces the per-gem rules: rating in [0,5], non-negative
// review count, coordinates recovered from the map link, at most MaxPhotos
// photos and never none, defaulted analysis and address.
func (g *Gem) Normalize() {
	if math.IsNaN(g.Rating) || g.Rating < 0 {
		g.Rating = 0
	}
	if g.Rating > 5 {
		g.Rating = 5
	}
	if g.ReviewCount < 0 {
		g.ReviewCount = 0
	}
	if g.Address == "" {
		g.Address = DefaultAddress
	}
	if !g.Coordinates.finite() {
		g.Coordinates = Coordinates{}
	}
	if g.Coordinates.IsZero() {
		if c, ok := CoordinatesFromMapURL(g.MapURL); ok {
			g.Coordinates = c
		}
	}

	photos := make([]string, 0, len(g.PhotoURLs))
	for _, p := range g.PhotoURLs {
		if p != "" {
			photos = append(photos, p)
		}
	}
	if len(photos) > MaxPhotos {
		photos = photos[:MaxPhotos]
	}
	if len(photos) == 0 {
		photos = append(photos, PlaceholderPhoto)
	}
	g.PhotoURLs = photos

	if len(g.ReviewExcerpts) == 0 {
		g.ReviewExcerpts = nil
	}
	g.Analysis.Normalize()
}

// CanonicalResult is the only record that crosses the system boundary.
type CanonicalResult struct {
	Status  Status `json:"status"`
	Gems    []Gem  `json:"gems"`
	Message string `json:"message,omitempty"`
}

// Normalize enforces the status/gems invariant and normalizes each gem.
// A success with no gems becomes ZERO_GEMS; any other status carries none.
func (r *CanonicalResult) Normalize() {
	switch r.Status {
	case StatusSuccess, StatusZeroGems, StatusError:
	default:
		r.Status = StatusError
	}

	if r.Status != StatusSuccess {
		r.Gems = []Gem{}
		return
	}

	kept := make([]Gem, 0, len(r.Gems))
	for _, g := range r.Gems {
		if g.Name == "" {
			continue
		}
		g.Normalize()
		kept = append(kept, g)
	}
	if len(kept) > MaxGems {
		kept = kept[:MaxGems]
	}
	r.Gems = kept

	if len(r.Gems) == 0 {
		r.Status = StatusZeroGems
		if r.Message == "" {
			r.Message = ZeroGemsMessage
		}
	}
}

// ZeroGemsMessage is reported when nothing qualified as a hidden gem.
const ZeroGemsMessage = "No hidden gems found for this request. Try a broader area or a different activity."

// NewZeroGems builds a normalized ZERO_GEMS result.
func NewZeroGems(message string) CanonicalResult {
	if message == "" {
		message = ZeroGemsMessage
	}
	return CanonicalResult{Status: StatusZeroGems, Gems: []Gem{}, Message: message}
}

// NewError builds a normalized ERROR result.
func NewError(message string) CanonicalResult {
	return CanonicalResult{Status: StatusError, Gems: []Gem{}, Message: message}
}

// AdviceResult is what the caller gets back after selecting a gem.
type AdviceResult struct {
	Summary        string `json:"summary"`
	Outfit         string `json:"outfit"`
	BestTimeMatch  string `json:"bestTimeMatch"`
	City           string `json:"city,omitempty"`
	TravelDate     string `json:"travelDate,omitempty"`
	WeatherChecked bool   `json:"weatherChecked"`
}
