package types

// Boundary is a half-open [Start, End) byte range into a text.
type Boundary struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the length of the range in bytes.
func (b Boundary) Len() int {
	return b.End - b.Start
}

// Shift moves the range by delta bytes.
func (b Boundary) Shift(delta int) Boundary {
	return Boundary{Start: b.Start + delta, End: b.End + delta}
}

// Text returns the slice of src covered by b.
func (b Boundary) Text(src string) string {
	return src[b.Start:b.End]
}

// Valid reports whether b lies inside a text of length n.
func (b Boundary) Valid(n int) bool {
	return b.Start >= 0 && b.Start <= b.End && b.End <= n
}

// CoversText reports whether bounds are sorted, contiguous and span [0, n).
func CoversText(bounds []Boundary, n int) bool {
	if n == 0 {
		return len(bounds) == 0
	}
	if len(bounds) == 0 || bounds[0].Start != 0 {
		return false
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i].Start != bounds[i-1].End {
			return false
		}
	}
	return bounds[len(bounds)-1].End == n
}
