package domain

// StripGeometry returns a copy of a GeoJSON value with every feature's
// geometry removed. FeatureCollections lose the geometry of each feature,
// Features lose their own; any other value passes through untouched. All
// remaining keys are preserved as-is.
func StripGeometry(value any) any {
	obj, ok := value.(map[string]any)
	if !ok {
		return value
	}

	switch obj["type"] {
	case "FeatureCollection":
		rawFeatures, _ := obj["features"].([]any)
		features := make([]any, 0, len(rawFeatures))
		for _, f := range rawFeatures {
			if featureObj, ok := f.(map[string]any); ok {
				features = append(features, withoutKey(featureObj, "geometry"))
			}
		}
		return map[string]any{"type": "FeatureCollection", "features": features}
	case "Feature":
		return withoutKey(obj, "geometry")
	default:
		return obj
	}
}

func withoutKey(obj map[string]any, key string) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if k != key {
			out[k] = v
		}
	}
	return out
}
