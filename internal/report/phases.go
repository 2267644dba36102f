package report

// Phases are the eight pipeline stages shown by the progress tracker.
// Index i in this slice is phase number i+1.
var Phases = []string{
	"Gathering website intelligence",
	"Researching competitors",
	"Analyzing market trends",
	"Building persona profile",
	"Identifying opportunities",
	"Generating strategic brief",
	"Creating implementation plan",
	"Compiling final report",
}

// InitialPhaseName labels phase 0.
const InitialPhaseName = "Initializing"

// Progress is what the progress tracker renders. Both the live and the
// demo path produce it.
type Progress struct {
	Index int
	Name  string
	Total int
}

// InitialProgress is the state on entering PROCESSING.
func InitialProgress() Progress {
	return Progress{Index: 0, Name: InitialPhaseName, Total: len(Phases)}
}

// Fraction is Index/Total clamped to [0,1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Index) / float64(p.Total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// PhaseName returns the label for 1-based phase n, or InitialPhaseName.
func PhaseName(n int) string {
	if n <= 0 || n > len(Phases) {
		return InitialPhaseName
	}
	return Phases[n-1]
}
