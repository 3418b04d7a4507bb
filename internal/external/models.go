// Package external fetches open property data from third-party sources: EPC
// certificates, flood-risk summaries and postcode geography. Results are
// cached by source and query key only, never by caller, so one identity's
// fetch warms the cache for everyone.
package external

// EPCRecord is the energy performance certificate summary for a building.
type EPCRecord struct {
	UPRN            string `json:"uprn"`
	CurrentRating   string `json:"current_rating"`
	PotentialRating string `json:"potential_rating"`
	EnergyScore     int    `json:"energy_score"`
	InspectionDate  string `json:"inspection_date"`
}

// FloodRisk is the per-source flood likelihood for a postcode area.
type FloodRisk struct {
	Postcode     string `json:"postcode"`
	RiversAndSea string `json:"rivers_and_sea"`
	SurfaceWater string `json:"surface_water"`
	Reservoir    string `json:"reservoir"`
}

// PostcodeInfo is administrative geography for a postcode.
type PostcodeInfo struct {
	Postcode  string  `json:"postcode"`
	District  string  `json:"district"`
	Ward      string  `json:"ward"`
	Region    string  `json:"region"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
