package capital

import (
	"math/rand"
	"testing"

	"github.com/betbot/wfmtrader/internal/domain"
)

func cand(name string, cost int64, value float64) domain.Candidate {
	return domain.Candidate{Cost: cost, Value: value, ItemName: name, OrderID: "order-" + name}
}

func TestKnapsackClassic(t *testing.T) {
	items := []domain.Candidate{
		cand("a", 10, 60),
		cand("b", 20, 100),
		cand("c", 30, 120),
	}
	res := Knapsack(items, 50)
	if res.MaxValue != 220 {
		t.Fatalf("MaxValue=%d, want 220", res.MaxValue)
	}
	if len(res.Selected) != 2 || res.Selected[0].ItemName != "b" || res.Selected[1].ItemName != "c" {
		t.Fatalf("unexpected selection: %+v", res.Selected)
	}
	if len(res.Unselected) != 1 || res.Unselected[0].ItemName != "a" {
		t.Fatalf("unexpected unselected: %+v", res.Unselected)
	}
	if !res.Contains("b") || res.Contains("a") {
		t.Fatalf("Contains mismatch")
	}
}

func TestKnapsackEdgeCases(t *testing.T) {
	if res := Knapsack(nil, 100); res.MaxValue != 0 || len(res.Selected) != 0 {
		t.Fatalf("empty input: %+v", res)
	}

	items := []domain.Candidate{cand("a", 10, 5), cand("neg", -5, 100)}
	res := Knapsack(items, 0)
	if len(res.Selected) != 0 || len(res.Unselected) != 2 {
		t.Fatalf("zero cap: %+v", res)
	}
	res = Knapsack(items, 100)
	if res.Contains("neg") {
		t.Fatalf("negative-cost candidate selected")
	}
	if res = Knapsack(items, -1); len(res.Selected) != 0 || len(res.Unselected) != 2 {
		t.Fatalf("negative cap: %+v", res)
	}
}

// bruteForce returns the best achievable total value by enumerating subsets.
func bruteForce(items []domain.Candidate, capCost int64) int64 {
	var best int64
	for mask := 0; mask < 1<<len(items); mask++ {
		var cost, value int64
		for i := range items {
			if mask&(1<<i) != 0 {
				cost += items[i].Cost
				value += int64(items[i].Value)
			}
		}
		if cost <= capCost && value > best {
			best = value
		}
	}
	return best
}

func TestKnapsackOptimality(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := r.Intn(9)
		items := make([]domain.Candidate, n)
		for i := range items {
			items[i] = cand(string(rune('a'+i)), int64(r.Intn(60)), float64(r.Intn(80)))
		}
		capCost := int64(r.Intn(150))

		res := Knapsack(items, capCost)
		if res.TotalCost() > capCost {
			t.Fatalf("round %d: total cost %d exceeds cap %d", round, res.TotalCost(), capCost)
		}
		var got int64
		for _, c := range res.Selected {
			got += int64(c.Value)
		}
		if got != res.MaxValue {
			t.Fatalf("round %d: selected value %d != MaxValue %d", round, got, res.MaxValue)
		}
		if want := bruteForce(items, capCost); got != want {
			t.Fatalf("round %d: value %d, optimum %d", round, got, want)
		}
		if len(res.Selected)+len(res.Unselected) != n {
			t.Fatalf("round %d: partition size mismatch", round)
		}
	}
}

func TestKnapsackLargeCap(t *testing.T) {
	items := make([]domain.Candidate, 60)
	for i := range items {
		items[i] = cand(string(rune('A'+i)), int64(1000+i*37), float64(100+i))
	}
	// the whole list fits, so every candidate must be taken
	res := Knapsack(items, 200000)
	if len(res.Selected) != len(items) || len(res.Unselected) != 0 {
		t.Fatalf("selected %d of %d", len(res.Selected), len(items))
	}

	capCost := int64(5000)
	res = Knapsack(items, capCost)
	if res.TotalCost() > capCost {
		t.Fatalf("total cost %d exceeds cap %d", res.TotalCost(), capCost)
	}
	var got int64
	for _, c := range res.Selected {
		got += int64(c.Value)
	}
	if got != res.MaxValue || got == 0 {
		t.Fatalf("selected value %d, MaxValue %d", got, res.MaxValue)
	}
}
