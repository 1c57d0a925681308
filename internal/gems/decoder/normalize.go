package decoder

import (
	"math"
	"strconv"
	"strings"

	"gem-finder/internal/gems"
)

// canonicalFromMap maps a loosely keyed object onto a normalized result.
func canonicalFromMap(obj map[string]interface{}) gems.CanonicalResult {
	var result gems.CanonicalResult

	if items, ok := obj["gems"].([]interface{}); ok {
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				result.Gems = append(result.Gems, gemFromMap(m))
			}
		}
	}

	result.Status = parseStatus(obj["status"], len(result.Gems) > 0)
	result.Message = stringOf(obj["message"])
	result.Normalize()
	return result
}

func parseStatus(v interface{}, hasGems bool) gems.Status {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		if hasGems {
			return gems.StatusSuccess
		}
		return gems.StatusZeroGems
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "ok":
		return gems.StatusSuccess
	case "zero_gems", "zero-gems", "zerogems", "no_gems", "no_results":
		return gems.StatusZeroGems
	default:
		return gems.StatusError
	}
}

func gemFromMap(m map[string]interface{}) gems.Gem {
	g := gems.Gem{
		Name:    firstString(m, "placeName", "name", "title", "place_name"),
		Address: firstString(m, "address", "formatted_address", "formattedAddress", "vicinity"),
		Rating:  numberOr(m["rating"], 0),
		MapURL:  firstString(m, "mapUrl", "map_url", "url", "googleMapsUrl"),
	}
	if _, isCoords := coordinatesFrom(m["location"]); g.Address == "" && !isCoords {
		// "location" is sometimes the address rather than a coordinate pair.
		g.Address = stringOf(m["location"])
	}

	g.ReviewCount = reviewCountOf(m)
	g.Coordinates = coordinatesOf(m)
	g.PhotoURLs = firstList(m, "photos", "photoUrls", "photo_urls")
	g.ReviewExcerpts = excerptsOf(m)
	g.Analysis = analysisOf(m)
	return g
}

func reviewCountOf(m map[string]interface{}) int {
	for _, key := range []string{"reviewCount", "review_count", "reviews", "user_ratings_total", "userRatingsTotal"} {
		if n, ok := number(m[key]); ok {
			return int(n)
		}
	}
	return 0
}

// coordinatesOf tries every known coordinate shape; {0,0} when none match.
func coordinatesOf(m map[string]interface{}) gems.Coordinates {
	for _, key := range []string{"coordinates", "loc", "location"} {
		if c, ok := coordinatesFrom(m[key]); ok {
			return c
		}
	}
	if geometry, ok := m["geometry"].(map[string]interface{}); ok {
		if c, ok := coordinatesFrom(geometry["location"]); ok {
			return c
		}
	}
	if c, ok := coordinatesFrom(m); ok {
		return c
	}
	return gems.Coordinates{}
}

func coordinatesFrom(v interface{}) (gems.Coordinates, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		lat, okLat := firstNumber(t, "lat", "latitude")
		lng, okLng := firstNumber(t, "lng", "lon", "long", "longitude")
		if okLat && okLng {
			return gems.Coordinates{Lat: lat, Lng: lng}, true
		}
	case []interface{}:
		if len(t) == 2 {
			lat, okLat := number(t[0])
			lng, okLng := number(t[1])
			if okLat && okLng {
				return gems.Coordinates{Lat: lat, Lng: lng}, true
			}
		}
	case string:
		parts := strings.Split(t, ",")
		if len(parts) == 2 {
			lat, okLat := number(parts[0])
			lng, okLng := number(parts[1])
			if okLat && okLng {
				return gems.Coordinates{Lat: lat, Lng: lng}, true
			}
		}
	}
	return gems.Coordinates{}, false
}

func excerptsOf(m map[string]interface{}) []string {
	if list := toStrings(m["reviewExcerpts"]); len(list) > 0 {
		return list
	}
	if list := toStrings(m["reviews"]); len(list) > 0 {
		return list
	}
	if s := stringOf(m["reviews_content"]); s != "" {
		var out []string
		for _, line := range strings.Split(s, "\n") {
			line = strings.Trim(strings.TrimSpace(line), `"`)
			if line != "" {
				out = append(out, line)
			}
		}
		return out
	}
	return nil
}

func analysisOf(m map[string]interface{}) gems.Analysis {
	src := m
	if nested, ok := m["analysis"].(map[string]interface{}); ok {
		src = nested
	}
	a := gems.Analysis{
		WhySpecial: firstString(src, "whySpecial", "why_special", "whyItsSpecial"),
		BestTime:   firstString(src, "bestTime", "best_time", "bestTimeToVisit"),
		InsiderTip: firstString(src, "insiderTip", "insider_tip", "tip"),
	}
	a.Normalize()
	return a
}

func stringOf(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := stringOf(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// number accepts JSON numbers and numeric strings ("4.5", "1,204").
func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, finite(t)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		return f, err == nil && finite(f)
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func numberOr(v interface{}, def float64) float64 {
	if n, ok := number(v); ok {
		return n
	}
	return def
}

func firstNumber(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if n, ok := number(m[k]); ok {
			return n, true
		}
	}
	return 0, false
}

// toStrings flattens a list of strings or of {"text": ...} objects.
func toStrings(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case map[string]interface{}:
			if s := firstString(t, "text", "url", "content"); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func firstList(m map[string]interface{}, keys ...string) []string {
	for _, k := range keys {
		if list := toStrings(m[k]); len(list) > 0 {
			return list
		}
	}
	return nil
}
