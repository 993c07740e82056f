package models

// City is a catalog entry. Identity is ID.
type City struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	TZ      string  `json:"tz"`
}

// ContainsCity reports whether a city with the given id is in cities.
func ContainsCity(cities []City, id int64) bool {
	return IndexOfCity(cities, id) >= 0
}

func IndexOfCity(cities []City, id int64) int {
	for i, c := range cities {
		if c.ID == id {
			return i
		}
	}
	return -1
}
