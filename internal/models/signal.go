package models

// Signal is a named, geolocated traffic intersection. ID is assigned by the
// signal registry and is the only handle the telemetry client knows.
type Signal struct {
	ID       int        `json:"id" bson:"id"`
	Name     string     `json:"name" bson:"name"`
	Location Coordinate `json:"location" bson:"location"`
}

// SignalNames returns the names of the given signals, in order.
func SignalNames(signals []Signal) []string {
	names := make([]string, 0, len(signals))
	for _, s := range signals {
		names = append(names, s.Name)
	}
	return names
}
