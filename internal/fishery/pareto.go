package fishery

// Dominates reports whether a is no worse than b in every objective and
// strictly better in at least one. All objectives are minimised.
func Dominates(a, b []float64) bool {
	better := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			better = true
		}
	}
	return better
}

// NonDominated returns the indices of points that no other point dominates,
// in input order. Duplicate points are all kept.
func NonDominated(points [][]float64) []int {
	var front []int
	for i, p := range points {
		dominated := false
		for j, q := range points {
			if i != j && len(q) == len(p) && Dominates(q, p) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, i)
		}
	}
	return front
}
