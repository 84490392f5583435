package route

// BuildMatrix computes the symmetric pairwise distance matrix (miles) for an
// ordered set of locations. Index 0 is always the technician's start depot.
// O(N^2) Haversine evaluations over the upper triangle, mirrored below; fine
// for per-technician job counts in the tens.
func BuildMatrix(locations []Location) [][]float64 {
	n := len(locations)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := Distance(locations[i].Lat, locations[i].Lng, locations[j].Lat, locations[j].Lng)
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

// TourDistance sums the leg distances along a tour of matrix indices.
func TourDistance(tour []int, matrix [][]float64) float64 {
	total := 0.0
	for i := 0; i+1 < len(tour); i++ {
		total += matrix[tour[i]][tour[i+1]]
	}
	return total
}
