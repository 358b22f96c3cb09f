package dsp

import "testing"

func TestEntropyCost(t *testing.T) {
	if EntropyCost[128] != 256 {
		t.Fatalf("EntropyCost[128] = %d, want 256", EntropyCost[128])
	}
	for p := 1; p < 256; p++ {
		if EntropyCost[p] > EntropyCost[p-1] {
			t.Fatalf("EntropyCost not decreasing at %d", p)
		}
	}
	if BitCost(0, 200) != int(EntropyCost[200]) || BitCost(1, 200) != int(EntropyCost[55]) {
		t.Fatal("BitCost does not mirror the table")
	}
}

func TestEntropyCostReferenceValues(t *testing.T) {
	tests := []struct {
		p    int
		want uint16
	}{
		{0, 1792},
		{2, 1792},
		{3, 1536},
		{64, 512},
		{127, 256},
		{128, 256},
		{145, 211},
		{255, 3},
	}
	for _, tt := range tests {
		if got := EntropyCost[tt.p]; got != tt.want {
			t.Errorf("EntropyCost[%d] = %d, want %d", tt.p, got, tt.want)
		}
	}
	// Coding a 1 at even odds costs exactly one bit.
	if got := BitCost(1, 128); got != 256 {
		t.Errorf("BitCost(1, 128) = %d, want 256", got)
	}
}

func TestLevelFixedCosts(t *testing.T) {
	tests := []struct {
		level int
		want  uint16
	}{
		{0, 0},
		{1, 256},
		{4, 256},
		{5, 432},
		{6, 618},
	}
	for _, tt := range tests {
		if got := LevelFixedCosts[tt.level]; got != tt.want {
			t.Errorf("LevelFixedCosts[%d] = %d, want %d", tt.level, got, tt.want)
		}
	}
	// Every category adds at least one extra bit on top of the sign.
	for level := 5; level <= MaxLevel; level++ {
		if LevelFixedCosts[level] <= 256 {
			t.Fatalf("LevelFixedCosts[%d] = %d, want > 256", level, LevelFixedCosts[level])
		}
	}
}

func TestLevelCostClampsTable(t *testing.T) {
	table := make([]uint16, MaxVariableLevel+1)
	for i := range table {
		table[i] = uint16(i)
	}
	if got, want := LevelCost(table, 3), int(LevelFixedCosts[3])+3; got != want {
		t.Fatalf("LevelCost(3) = %d, want %d", got, want)
	}
	if got, want := LevelCost(table, 500), int(LevelFixedCosts[500])+MaxVariableLevel; got != want {
		t.Fatalf("LevelCost(500) = %d, want %d", got, want)
	}
}

func TestVariableLevelCost(t *testing.T) {
	var probas [NumProbas]uint8
	for i := range probas {
		probas[i] = 128
	}
	// With even probabilities the cost is 256 per visited tree node.
	tests := []struct {
		level int
		nodes int
	}{
		{1, 1}, // proba[2]
		{2, 3}, // proba[2], [3], [4]
		{3, 4},
		{67, 5},
		{2047, 5},
	}
	for _, tt := range tests {
		if got := VariableLevelCost(tt.level, probas[:]); got != 256*tt.nodes {
			t.Errorf("VariableLevelCost(%d) = %d, want %d", tt.level, got, 256*tt.nodes)
		}
	}
}
