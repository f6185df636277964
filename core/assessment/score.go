package assessment

// Score is the outcome of a whole attempt.
type Score struct {
	Marks      int     `json:"marks"`
	OutOf      int     `json:"out_of"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

// GradeBand maps a minimum percentage to a letter grade.
type GradeBand struct {
	Min   float64 `json:"min"`
	Grade string  `json:"grade"`
}

// DefaultGradeBands, highest first.
var DefaultGradeBands = []GradeBand{
	{Min: 90, Grade: "A"},
	{Min: 80, Grade: "B"},
	{Min: 70, Grade: "C"},
	{Min: 60, Grade: "D"},
	{Min: 0, Grade: "F"},
}

// GradeFor returns the letter grade for a percentage. Bands are
// checked highest first; the last band catches everything below.
func GradeFor(pct float64, bands []GradeBand) string {
	if len(bands) == 0 {
		return ""
	}
	for _, band := range bands {
		if pct >= band.Min {
			return band.Grade
		}
	}
	return bands[len(bands)-1].Grade
}

func questionMarks(q Question) int {
	if q.Marks > 0 {
		return q.Marks
	}
	return 1
}
