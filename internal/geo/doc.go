// Package geo answers point-in-region questions for user geofences.
//
// Two region encodings are supported. Circles are tested with the haversine
// great-circle distance, so a point exactly on the boundary counts as inside.
// Polygons are tested with an even-odd ray cast that treats (lat, lng) as a
// flat plane. That approximation is only valid for local-scale regions (tens
// of kilometres) between latitudes -80 and +80 that do not cross the
// antimeridian; polygons outside that envelope match unpredictably and are a
// known limitation rather than a supported case. Points lying exactly on a
// polygon edge follow the usual ray casting ambiguity and may land on either
// side.
//
// Everything here is pure and safe for concurrent use.
package geo
