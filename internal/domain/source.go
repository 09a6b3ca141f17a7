package domain

import (
	"net/url"
	"sort"
	"strconv"
)

// Hazard family keys used across results, responses, and configuration.
const (
	FamilyCoastal        = "dominio_publico_maritimo_terrestre"
	FamilyFire           = "incendios"
	FamilyFluvialFlood   = "inundacion_fluvial"
	FamilyMarineFlood    = "inundacion_marina"
	FamilySeismic        = "sismico"
	FamilyErosionPot     = "desertificacion_potencial"
	FamilyErosionLaminar = "desertificacion_laminar"
)

// HazardSource describes one external map layer to sample. Static
// configuration: sources are loaded once from the risk profile and never
// mutated at runtime.
type HazardSource struct {
	// Family groups the source into one key of the response
	// (e.g. "inundacion_fluvial"). Period distinguishes flood return
	// periods within a family ("T10", "T100", "T500"); empty otherwise.
	Family string `yaml:"family"`
	Period string `yaml:"period,omitempty"`

	BaseURL string `yaml:"base_url"`
	// Fallbacks are tried in order when the primary base URL fails.
	Fallbacks []string `yaml:"fallbacks,omitempty"`

	Layer        string            `yaml:"layer"`
	CRS          string            `yaml:"crs"`
	InfoFormat   string            `yaml:"info_format"`
	Styles       string            `yaml:"styles,omitempty"`
	Vendor       map[string]string `yaml:"vendor,omitempty"`
	FeatureCount int               `yaml:"feature_count,omitempty"`
}

// Slot is the source's key in the fan-out result map. Flood sources get one
// slot per return period; every other family has exactly one source.
func (s HazardSource) Slot() string {
	if s.Period == "" {
		return s.Family
	}
	return s.Family + "/" + s.Period
}

// FeatureInfoURLs builds the ordered list of GetFeatureInfo URLs for the
// source: the primary base URL first, then each fallback with identical
// query parameters. Pure string building; no I/O.
func (s HazardSource) FeatureInfoURLs(bbox BoundingBox) []string {
	query := s.featureInfoQuery(bbox)
	urls := make([]string, 0, 1+len(s.Fallbacks))
	for _, base := range append([]string{s.BaseURL}, s.Fallbacks...) {
		urls = append(urls, base+"?"+query)
	}
	return urls
}

// featureInfoQuery encodes the WMS 1.3.0 GetFeatureInfo parameters for a
// 1x1 pixel sample at (0,0) over the given bounding box.
func (s HazardSource) featureInfoQuery(bbox BoundingBox) string {
	featureCount := s.FeatureCount
	if featureCount <= 0 {
		featureCount = 10
	}

	params := url.Values{
		"SERVICE":       {"WMS"},
		"VERSION":       {"1.3.0"},
		"REQUEST":       {"GetFeatureInfo"},
		"LAYERS":        {s.Layer},
		"QUERY_LAYERS":  {s.Layer},
		"CRS":           {s.CRS},
		"BBOX":          {bbox.String()},
		"WIDTH":         {"1"},
		"HEIGHT":        {"1"},
		"I":             {"0"},
		"J":             {"0"},
		"INFO_FORMAT":   {s.InfoFormat},
		"FEATURE_COUNT": {strconv.Itoa(featureCount)},
	}
	if s.Styles != "" {
		params.Set("STYLES", s.Styles)
	}

	// Vendor parameters are appended verbatim; keys sorted for stable URLs.
	keys := make([]string, 0, len(s.Vendor))
	for k := range s.Vendor {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params.Set(k, s.Vendor[k])
	}

	return params.Encode()
}
