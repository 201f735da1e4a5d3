package signals

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

// DefaultCatalogue returns the manually verified Vadodara signal coordinates
// that the receiver firmware also carries.
func DefaultCatalogue() map[string]models.Coordinate {
	return map[string]models.Coordinate{
		"Chakli Circle":                            {Lat: 22.308333, Lon: 73.165278},
		"Diwalipura Circle":                        {Lat: 22.301806, Lon: 73.165500},
		"Elora T-Junction":                         {Lat: 22.315333, Lon: 73.161444},
		"Genda Circle (Natubhai Circle)":           {Lat: 22.309944, Lon: 73.158667},
		"Gotri Circle":                             {Lat: 22.315556, Lon: 73.138000},
		"Hari Nagar Char Rasta":                    {Lat: 22.311278, Lon: 73.153167},
		"ISKCON Circle":                            {Lat: 22.303361, Lon: 73.151833},
		"Manisha Circle":                           {Lat: 22.296306, Lon: 73.164583},
		"Nilamber Circle":                          {Lat: 22.302000, Lon: 73.138944},
		"Tandalja SP T-Junction (Natubhai Circle)": {Lat: 22.280444, Lon: 73.153194},
	}
}

// LoadCatalogue reads a YAML (or JSON) file mapping signal name to [lat, lon].
func LoadCatalogue(path string) (map[string]models.Coordinate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signal catalogue: %w", err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue decodes a name -> [lat, lon] document.
func ParseCatalogue(data []byte) (map[string]models.Coordinate, error) {
	var raw map[string][]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse signal catalogue: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse signal catalogue: no signals defined")
	}
	out := make(map[string]models.Coordinate, len(raw))
	for name, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("parse signal catalogue: %q needs [lat, lon], got %d values", name, len(pair))
		}
		out[name] = models.Coordinate{Lat: pair[0], Lon: pair[1]}
	}
	return out, nil
}
