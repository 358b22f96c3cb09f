package lossy

import "github.com/deepteams/vp8rdo/internal/dsp"

// skipProbaThreshold is the skip probability above which signalling skips
// costs more than it saves.
const skipProbaThreshold = 250

// LevelCostTable holds the cost of each level (0..MaxVariableLevel) in one
// (type, band, ctx) context, excluding LevelFixedCosts.
type LevelCostTable [MaxVariableLevel + 1]uint16

// Proba is the coefficient probability model used for rate estimation.
// It is read-only while a pass runs.
type Proba struct {
	Coeffs    [NumTypes][NumBands][NumCtx][NumProbas]uint8
	LevelCost [NumTypes][NumBands][NumCtx]LevelCostTable

	SkipProba    uint8
	UseSkipProba bool
}

// NewProba returns the key-frame default model.
func NewProba() *Proba {
	p := &Proba{Coeffs: DefaultCoeffProbas, SkipProba: 255}
	p.CalculateLevelCosts()
	return p
}

// CalculateLevelCosts refreshes the level-cost tables from Coeffs.
func (p *Proba) CalculateLevelCosts() {
	for t := 0; t < NumTypes; t++ {
		for b := 0; b < NumBands; b++ {
			for c := 0; c < NumCtx; c++ {
				probas := p.Coeffs[t][b][c][:]
				table := &p.LevelCost[t][b][c]
				cost0 := 0
				if c > 0 {
					cost0 = dsp.BitCost(1, probas[0])
				}
				costBase := dsp.BitCost(1, probas[1]) + cost0
				table[0] = uint16(dsp.BitCost(0, probas[1]) + cost0)
				for v := 1; v <= MaxVariableLevel; v++ {
					table[v] = uint16(costBase + dsp.VariableLevelCost(v, probas))
				}
			}
		}
	}
}

// BranchStat counts the events seen at one node of the token tree.
type BranchStat struct {
	Ones  uint32 // events that took the 1 branch
	Total uint32
}

func (s *BranchStat) record(bit bool) bool {
	s.Total++
	if bit {
		s.Ones++
	}
	return bit
}

// TokenStats accumulates token-tree statistics over a pass.
type TokenStats struct {
	Coeffs [NumTypes][NumBands][NumCtx][NumProbas]BranchStat
	NbSkip int // skipped macroblocks
	NbMB   int
}

// Merge adds o into s.
func (s *TokenStats) Merge(o *TokenStats) {
	for t := range s.Coeffs {
		for b := range s.Coeffs[t] {
			for c := range s.Coeffs[t][b] {
				for p := range s.Coeffs[t][b][c] {
					s.Coeffs[t][b][c][p].Ones += o.Coeffs[t][b][c][p].Ones
					s.Coeffs[t][b][c][p].Total += o.Coeffs[t][b][c][p].Total
				}
			}
		}
	}
	s.NbSkip += o.NbSkip
	s.NbMB += o.NbMB
}

// Reset clears all counters.
func (s *TokenStats) Reset() {
	*s = TokenStats{}
}

// calcTokenProba returns the probability of a 0 given nb ones among total.
func calcTokenProba(nb, total uint32) uint8 {
	if nb == 0 {
		return 255
	}
	return uint8(255 - uint64(nb)*255/uint64(total))
}

// calcSkipProba returns the probability of a macroblock not being skipped.
func calcSkipProba(nb, total int) uint8 {
	if total == 0 {
		return 255
	}
	return uint8((total - nb) * 255 / total)
}

// FinalizeTokenProbas replaces each probability by the one estimated from
// stats when that pays for its own header update. It returns the estimated
// header cost of the updates, in 1/256 bit, and whether any probability
// differs from the model it replaces.
func (p *Proba) FinalizeTokenProbas(stats *TokenStats) (size int, changed bool) {
	for t := 0; t < NumTypes; t++ {
		for b := 0; b < NumBands; b++ {
			for c := 0; c < NumCtx; c++ {
				for i := 0; i < NumProbas; i++ {
					st := stats.Coeffs[t][b][c][i]
					nb, total := int(st.Ones), int(st.Total)
					updateProba := CoeffsUpdateProba[t][b][c][i]
					oldP := DefaultCoeffProbas[t][b][c][i]
					newP := calcTokenProba(st.Ones, st.Total)
					oldCost := dsp.BranchCost(nb, total, oldP) + dsp.BitCost(0, updateProba)
					newCost := dsp.BranchCost(nb, total, newP) + dsp.BitCost(1, updateProba) + 8*256
					prev := p.Coeffs[t][b][c][i]
					if oldCost > newCost {
						size += dsp.BitCost(1, updateProba) + 8*256
						p.Coeffs[t][b][c][i] = newP
					} else {
						size += dsp.BitCost(0, updateProba)
						p.Coeffs[t][b][c][i] = oldP
					}
					changed = changed || p.Coeffs[t][b][c][i] != prev
				}
			}
		}
	}
	return size, changed
}

// FinalizeSkipProba decides whether skipping macroblocks is signalled.
func (p *Proba) FinalizeSkipProba(stats *TokenStats) {
	p.SkipProba = calcSkipProba(stats.NbSkip, stats.NbMB)
	p.UseSkipProba = p.SkipProba < skipProbaThreshold
}
