package capital

import (
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "capital")

// Result is the outcome of a capital-constrained selection. Selected and
// Unselected keep the input order.
type Result struct {
	MaxValue   int64
	Selected   []domain.Candidate
	Unselected []domain.Candidate
}

// Contains reports whether a selected candidate has the given item name.
func (r Result) Contains(itemName string) bool {
	for _, c := range r.Selected {
		if c.ItemName == itemName {
			return true
		}
	}
	return false
}

// TotalCost sums the cost of the selected candidates.
func (r Result) TotalCost() int64 {
	var total int64
	for _, c := range r.Selected {
		total += c.Cost
	}
	return total
}

// Knapsack picks the subset of candidates with the highest total value whose
// total cost fits in capCost. Values are truncated to integers.
//
//	dp[i][w] = max(dp[i-1][w], dp[i-1][w-cost_i] + value_i)   if cost_i <= w
//
// Only one dp row is kept; a bitset records where row i differs from row i-1,
// which is all the backward walk needs. Candidate i is selected iff its bit is
// set at the remaining capacity. Negative-cost candidates are never selected.
func Knapsack(candidates []domain.Candidate, capCost int64) Result {
	n := len(candidates)
	if capCost < 0 {
		log.Warnf("negative capital cap %d, nothing selected", capCost)
		return Result{Unselected: append([]domain.Candidate(nil), candidates...)}
	}
	width := int(capCost) + 1

	dp := make([]int64, width)
	kept := newBitset(n * width)
	for i, c := range candidates {
		if c.Cost < 0 || c.Cost >= int64(width) {
			continue
		}
		value := int64(c.Value)
		cost := int(c.Cost)
		// descending so dp[w-cost] still holds row i-1
		for w := width - 1; w >= cost; w-- {
			if take := dp[w-cost] + value; take > dp[w] {
				dp[w] = take
				kept.set(i*width + w)
			}
		}
	}

	picked := make([]bool, n)
	w := width - 1
	for i := n - 1; i >= 0; i-- {
		if kept.get(i*width + w) {
			picked[i] = true
			w -= int(candidates[i].Cost)
		}
	}

	res := Result{MaxValue: dp[width-1]}
	for i, c := range candidates {
		if picked[i] {
			res.Selected = append(res.Selected, c)
		} else {
			res.Unselected = append(res.Unselected, c)
		}
	}
	return res
}

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) get(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }
