// Package timezone resolves free-form city and country names to IANA
// timezone identifiers. Guests say "I'm in Berlin", not "Europe/Berlin".
package timezone

import (
	"strings"
	"time"
)

// cityToTZ maps lowercase city, country and abbreviation names to IANA zones.
var cityToTZ = map[string]string{
	// Ukraine
	"kyiv":         "Europe/Kyiv",
	"kiev":         "Europe/Kyiv",
	"kharkiv":      "Europe/Kyiv",
	"odesa":        "Europe/Kyiv",
	"odessa":       "Europe/Kyiv",
	"lviv":         "Europe/Kyiv",
	"dnipro":       "Europe/Kyiv",
	"zaporizhzhia": "Europe/Kyiv",
	"ukraine":      "Europe/Kyiv",
	"ua":           "Europe/Kyiv",
	// Russia
	"moscow":           "Europe/Moscow",
	"st petersburg":    "Europe/Moscow",
	"saint petersburg": "Europe/Moscow",
	// Europe
	"london":      "Europe/London",
	"uk":          "Europe/London",
	"paris":       "Europe/Paris",
	"france":      "Europe/Paris",
	"berlin":      "Europe/Berlin",
	"germany":     "Europe/Berlin",
	"munich":      "Europe/Berlin",
	"amsterdam":   "Europe/Amsterdam",
	"netherlands": "Europe/Amsterdam",
	"warsaw":      "Europe/Warsaw",
	"krakow":      "Europe/Warsaw",
	"poland":      "Europe/Warsaw",
	"prague":      "Europe/Prague",
	"vienna":      "Europe/Vienna",
	"rome":        "Europe/Rome",
	"milan":       "Europe/Rome",
	"italy":       "Europe/Rome",
	"madrid":      "Europe/Madrid",
	"spain":       "Europe/Madrid",
	"barcelona":   "Europe/Madrid",
	"lisbon":      "Europe/Lisbon",
	"portugal":    "Europe/Lisbon",
	"zurich":      "Europe/Zurich",
	"geneva":      "Europe/Zurich",
	"switzerland": "Europe/Zurich",
	"istanbul":    "Europe/Istanbul",
	"turkey":      "Europe/Istanbul",
	"bucharest":   "Europe/Bucharest",
	"romania":     "Europe/Bucharest",
	"helsinki":    "Europe/Helsinki",
	"finland":     "Europe/Helsinki",
	"stockholm":   "Europe/Stockholm",
	"sweden":      "Europe/Stockholm",
	"oslo":        "Europe/Oslo",
	"norway":      "Europe/Oslo",
	"copenhagen":  "Europe/Copenhagen",
	"denmark":     "Europe/Copenhagen",
	"dublin":      "Europe/Dublin",
	"ireland":     "Europe/Dublin",
	"athens":      "Europe/Athens",
	"greece":      "Europe/Athens",
	"sofia":       "Europe/Sofia",
	"bulgaria":    "Europe/Sofia",
	// Americas
	"new york":      "America/New_York",
	"nyc":           "America/New_York",
	"boston":        "America/New_York",
	"miami":         "America/New_York",
	"washington":    "America/New_York",
	"chicago":       "America/Chicago",
	"dallas":        "America/Chicago",
	"houston":       "America/Chicago",
	"denver":        "America/Denver",
	"los angeles":   "America/Los_Angeles",
	"la":            "America/Los_Angeles",
	"san francisco": "America/Los_Angeles",
	"sf":            "America/Los_Angeles",
	"seattle":       "America/Los_Angeles",
	"toronto":       "America/Toronto",
	"canada":        "America/Toronto",
	"vancouver":     "America/Vancouver",
	"sao paulo":     "America/Sao_Paulo",
	"brazil":        "America/Sao_Paulo",
	"mexico city":   "America/Mexico_City",
	"mexico":        "America/Mexico_City",
	"buenos aires":  "America/Argentina/Buenos_Aires",
	"argentina":     "America/Argentina/Buenos_Aires",
	// Asia
	"tokyo":        "Asia/Tokyo",
	"japan":        "Asia/Tokyo",
	"seoul":        "Asia/Seoul",
	"korea":        "Asia/Seoul",
	"shanghai":     "Asia/Shanghai",
	"beijing":      "Asia/Shanghai",
	"china":        "Asia/Shanghai",
	"hong kong":    "Asia/Hong_Kong",
	"singapore":    "Asia/Singapore",
	"mumbai":       "Asia/Kolkata",
	"delhi":        "Asia/Kolkata",
	"bangalore":    "Asia/Kolkata",
	"india":        "Asia/Kolkata",
	"dubai":        "Asia/Dubai",
	"uae":          "Asia/Dubai",
	"bangkok":      "Asia/Bangkok",
	"thailand":     "Asia/Bangkok",
	"jakarta":      "Asia/Jakarta",
	"bali":         "Asia/Makassar",
	"makassar":     "Asia/Makassar",
	"tel aviv":     "Asia/Jerusalem",
	"israel":       "Asia/Jerusalem",
	"taipei":       "Asia/Taipei",
	"taiwan":       "Asia/Taipei",
	"hanoi":        "Asia/Ho_Chi_Minh",
	"ho chi minh":  "Asia/Ho_Chi_Minh",
	"vietnam":      "Asia/Ho_Chi_Minh",
	"kuala lumpur": "Asia/Kuala_Lumpur",
	"malaysia":     "Asia/Kuala_Lumpur",
	// Oceania
	"sydney":      "Australia/Sydney",
	"melbourne":   "Australia/Melbourne",
	"australia":   "Australia/Sydney",
	"auckland":    "Pacific/Auckland",
	"new zealand": "Pacific/Auckland",
	// Africa
	"cairo":        "Africa/Cairo",
	"egypt":        "Africa/Cairo",
	"johannesburg": "Africa/Johannesburg",
	"south africa": "Africa/Johannesburg",
	"nairobi":      "Africa/Nairobi",
	"kenya":        "Africa/Nairobi",
	"lagos":        "Africa/Lagos",
	"nigeria":      "Africa/Lagos",
	// Common abbreviations
	"est":  "America/New_York",
	"cst":  "America/Chicago",
	"mst":  "America/Denver",
	"pst":  "America/Los_Angeles",
	"gmt":  "Europe/London",
	"cet":  "Europe/Berlin",
	"eet":  "Europe/Kyiv",
	"ist":  "Asia/Kolkata",
	"jst":  "Asia/Tokyo",
	"kst":  "Asia/Seoul",
	"aest": "Australia/Sydney",
	"wita": "Asia/Makassar",
	"wib":  "Asia/Jakarta",
}

// Resolve maps a city, country, abbreviation or raw IANA name to an IANA
// timezone identifier. Returns "" when the input is unrecognized.
func Resolve(cityOrTZ string) string {
	if cityOrTZ == "" {
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(cityOrTZ))

	// Exact lookup first, it also catches abbreviations like EST and PST.
	if tz, ok := cityToTZ[normalized]; ok {
		return tz
	}

	// Direct IANA name, e.g. "Europe/Kyiv".
	if strings.Contains(cityOrTZ, "/") {
		if _, err := time.LoadLocation(strings.TrimSpace(cityOrTZ)); err == nil {
			return strings.TrimSpace(cityOrTZ)
		}
	}

	// Substring match handles inputs like "Kyiv, Ukraine". Keys shorter than
	// three characters are skipped to avoid hits like "la" inside other words.
	for key, tz := range cityToTZ {
		if len(key) >= 3 && strings.Contains(normalized, key) {
			return tz
		}
	}

	return ""
}
