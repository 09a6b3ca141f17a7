package domain

// RawResult is the outcome of fetching one hazard source. Exactly one of the
// three cases applies:
//
//   - Value holds the decoded JSON body (usually a GeoJSON object) when the
//     fetch succeeded and the body parsed.
//   - Raw holds the body text when the fetch succeeded but the body was not
//     JSON (the erosion rasters answer text/plain). Never an error.
//   - Err holds the last error message when every URL in the fallback list
//     failed. Fetch errors stop here; they are values, not Go errors.
type RawResult struct {
	Value any
	Raw   string
	Err   string
}

// Failed reports whether all fetch attempts for the source failed.
func (r RawResult) Failed() bool {
	return r.Err != ""
}

// Object returns the payload as a JSON object, or nil when the result failed,
// was plain text, or decoded to a non-object.
func (r RawResult) Object() map[string]any {
	obj, ok := r.Value.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

// Features returns the payload's feature list when the result is a healthy
// feature response: a JSON object without an "error" key and with a
// non-empty "features" array. Anything else yields nil, which every
// normalizer treats as no data.
func (r RawResult) Features() []any {
	obj := r.Object()
	if obj == nil {
		return nil
	}
	if errVal, ok := obj["error"]; ok && errVal != nil {
		return nil
	}
	features, ok := obj["features"].([]any)
	if !ok || len(features) == 0 {
		return nil
	}
	return features
}

// FirstProperties returns the properties object of the first feature, or nil.
func (r RawResult) FirstProperties() map[string]any {
	features := r.Features()
	if features == nil {
		return nil
	}
	first, ok := features[0].(map[string]any)
	if !ok {
		return nil
	}
	props, ok := first["properties"].(map[string]any)
	if !ok {
		return nil
	}
	return props
}
