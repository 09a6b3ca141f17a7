// Package domain models Spanish natural-hazard map data and the risk score
// derived from it.
//
// # Data Sources
//
// Hazard layers are published as OGC Web Map Services by three agencies:
//
//   - MITECO (wms.mapama.gob.es): coastal public domain (DPMT), wildfire
//     frequency 2006-2015, and the INES erosion rasters.
//   - IDEE (servicios.idee.es): INSPIRE flood hazard layers, one layer per
//     return period (T10/T100/T500 fluvial, T100/T500 marine).
//   - IGN (www.ign.es): NCSE-02 seismic hazard zones.
//
// All layers are sampled with a WMS 1.3.0 GetFeatureInfo request over a
// degenerate bounding box (a few centimeters wide) around the requested
// coordinate, with a 1x1 pixel raster window and the sample pixel at (0,0).
// JSON layers answer with GeoJSON Feature or FeatureCollection objects;
// the erosion rasters only speak text/plain.
//
// # Raster conventions
//
// Flood layers expose the sampled raster value as a GRAY_INDEX property.
// The publisher uses a large negative value (around -9999) as the NoData
// sentinel; anything at or below the configured sentinel threshold means the
// point was outside the mapped area. A value of zero means mapped but not
// flooded for that return period.
//
// Fire and seismic layers are inconsistent about property naming across
// publications, so normalizers look the value up through an ordered alias
// list (first present wins) instead of a single field name.
//
// # Fail-open policy
//
// Every normalizer is a total function: fetch failures, error payloads, and
// structurally empty responses all collapse to the lowest/unknown signal for
// that hazard family. A partial upstream outage therefore biases the final
// classification toward lower observed risk instead of failing the request.
// This is deliberate and load-bearing; see the scorer tests.
package domain
