package money

// Allocate distributes totalCents across buckets proportionally to weights.
// The returned slice always has len(weights) entries and sums exactly to
// totalCents. Negative weights are treated as zero. When every weight is
// zero the total is split evenly with the remainder landing in the last
// bucket. Every bucket except the last receives the floored proportional
// share clipped to the remaining budget; the last bucket absorbs whatever
// is left, so integer truncation can never leak or invent a centavo.
func Allocate(totalCents int, weights []int) []int {
	shares := make([]int, len(weights))
	if len(weights) == 0 || totalCents <= 0 {
		return shares
	}

	normalized := make([]int, len(weights))
	sum := 0
	for i, w := range weights {
		if w > 0 {
			normalized[i] = w
			sum += w
		}
	}

	if sum == 0 {
		even := totalCents / len(weights)
		for i := range shares {
			shares[i] = even
		}
		shares[len(shares)-1] += totalCents - even*len(shares)
		return shares
	}

	remaining := totalCents
	for i := 0; i < len(normalized)-1; i++ {
		share := totalCents * normalized[i] / sum
		if share > remaining {
			share = remaining
		}
		shares[i] = share
		remaining -= share
	}
	shares[len(shares)-1] = remaining
	return shares
}
