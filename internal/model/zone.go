package model

// Point is a position in normalized frame coordinates, both axes in [0,1].
type Point struct {
	X float64
	Y float64
}

// Zone is a named polygon. Points are kept in boundary order.
type Zone struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// MarshalJSON encodes a point as an [x, y] pair.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes an [x, y] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}
