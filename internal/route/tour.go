package route

// Floating-point slack for "strictly shorter" comparisons; keeps 2-opt from
// cycling on equal-length reversals.
const improveEps = 1e-9

// NearestNeighborTour builds an initial visiting order over the matrix
// greedily: from the current node, always travel to the closest unvisited
// node. Ties break to the lowest index. The result is a permutation of
// [0..N-1] beginning at start.
func NearestNeighborTour(matrix [][]float64, start int) []int {
	n := len(matrix)
	if n == 0 {
		return nil
	}
	tour := make([]int, 0, n)
	visited := make([]bool, n)
	curr := start
	tour = append(tour, curr)
	visited[curr] = true
	for len(tour) < n {
		next := -1
		best := 0.0
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			if next == -1 || matrix[curr][i] < best {
				next = i
				best = matrix[curr][i]
			}
		}
		visited[next] = true
		tour = append(tour, next)
		curr = next
	}
	return tour
}

// TwoOptImprove refines a tour with classic 2-opt local search: scan all
// segment pairs, reverse [i..j] whenever that strictly shortens the tour,
// and repeat full passes until a pass yields no improvement. Position 0 (the
// depot) never moves. O(K^2) per pass; a local optimum, not a global one.
func TwoOptImprove(tour []int, matrix [][]float64) []int {
	n := len(tour)
	best := append([]int(nil), tour...)
	if n < 4 {
		return best
	}
	for {
		improved := false
		for i := 1; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				if reversalGain(best, matrix, i, j) > improveEps {
					reverse(best, i, j)
					improved = true
				}
			}
		}
		if !improved {
			return best
		}
	}
}

// reversalGain is the distance saved by reversing tour[i..j]: only the edge
// into i and the edge out of j change; interior legs flip direction on a
// symmetric matrix at no cost.
func reversalGain(tour []int, matrix [][]float64, i, j int) float64 {
	gain := matrix[tour[i-1]][tour[i]] - matrix[tour[i-1]][tour[j]]
	if j+1 < len(tour) {
		gain += matrix[tour[j]][tour[j+1]] - matrix[tour[i]][tour[j+1]]
	}
	return gain
}

func reverse(tour []int, i, j int) {
	for i < j {
		tour[i], tour[j] = tour[j], tour[i]
		i++
		j--
	}
}
