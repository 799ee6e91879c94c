package dfs

import "math"

// MinRanksDescending assigns ranks 1..N by descending value, with ties
// sharing the minimum rank of the tied group (two teams tied for best both
// get rank 1). NaN values are unranked (0).
func MinRanksDescending(values []float64) []int {
	ranks := make([]int, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		rank := 1
		for j, other := range values {
			if j == i || math.IsNaN(other) {
				continue
			}
			if other > v {
				rank++
			}
		}
		ranks[i] = rank
	}
	return ranks
}
