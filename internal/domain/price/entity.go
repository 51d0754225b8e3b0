package price

import "time"

// Point is one daily close for a symbol
type Point struct {
	Symbol string    `db:"symbol"`
	Date   time.Time `db:"date"`
	Close  float64   `db:"close"`
}

// Series is an ordered (ascending by date) price history for one symbol
type Series struct {
	Symbol string
	Points []Point
}

// Len returns the number of points
func (s Series) Len() int {
	return len(s.Points)
}

// LastDate returns the date of the newest point, zero when empty
func (s Series) LastDate() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// Returns converts closes to simple daily returns keyed by date.
// The first point has no return and is dropped.
func (s Series) Returns() map[string]float64 {
	returns := make(map[string]float64, len(s.Points))
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Close
		if prev == 0 {
			continue
		}
		key := s.Points[i].Date.Format("2006-01-02")
		returns[key] = (s.Points[i].Close - prev) / prev
	}
	return returns
}
