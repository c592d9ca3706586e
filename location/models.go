package location

// Coordinates is a point with the accuracy radius the geolocation lookup
// reported for it.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Address is the reverse-geocoded description of a point.
type Address struct {
	FormattedAddress string `json:"formattedAddress"`
	City             string `json:"city"`
	State            string `json:"state"`
	Country          string `json:"country"`
	Neighborhood     string `json:"neighborhood"`
	Sublocality      string `json:"sublocality"`
	Village          string `json:"village"`
}

// Place is one nearby-search hit.
type Place struct {
	PlaceID   string  `json:"placeId"`
	Name      string  `json:"name"`
	Vicinity  string  `json:"vicinity"`
	Rating    float64 `json:"rating"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Open      bool    `json:"open"`
}

// PlaceDetails carries the contact fields the clients surface for a place.
type PlaceDetails struct {
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Website   string  `json:"website"`
	Rating    float64 `json:"rating"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance is the distance/duration pair between an origin and destination.
type Distance struct {
	Distance     string   `json:"distance"`
	Duration     string   `json:"duration"`
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
	Status       string   `json:"status"`
}

// RouteStep is a single navigation instruction.
type RouteStep struct {
	Distance     string `json:"distance"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// Route is a formatted directions result.
type Route struct {
	Distance     string      `json:"distance"`
	Duration     string      `json:"duration"`
	StartAddress string      `json:"start_address"`
	EndAddress   string      `json:"end_address"`
	Polyline     string      `json:"polyline"`
	Steps        []RouteStep `json:"steps"`
}

// GeolocateParams describes the radio environment for a geolocation lookup.
// All fields are optional; an empty value falls back to IP-based positioning.
type GeolocateParams struct {
	ConsiderIP       bool             `json:"considerIp"`
	WifiAccessPoints []map[string]any `json:"wifiAccessPoints,omitempty"`
	CellTowers       []map[string]any `json:"cellTowers,omitempty"`
}

// EmergencyType selects the nearby-search category.
type EmergencyType string

const (
	EmergencyRoadside EmergencyType = "roadside"
	EmergencyMedical  EmergencyType = "medical"
	EmergencyFuel     EmergencyType = "fuel"
	EmergencyHospital EmergencyType = "hospital"
	EmergencyGeneral  EmergencyType = "generalservice"
)

// placeTypes maps an emergency category to the Places API type filter.
func (t EmergencyType) placeTypes() (string, bool) {
	switch t {
	case EmergencyRoadside:
		return "car_repair|car_wash|tow_truck|bike_repair", true
	case EmergencyMedical:
		return "pharmacy", true
	case EmergencyFuel:
		return "gas_station|petrol_pump|fuel|fuel_station", true
	case EmergencyHospital:
		return "hospital", true
	case EmergencyGeneral:
		return "restaurant|mall|mart|store", true
	default:
		return "", false
	}
}
