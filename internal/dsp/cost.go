package dsp

// Costs are expressed in 1/256 bit.

const (
	// MaxLevel is the largest coefficient magnitude the bitstream can carry.
	MaxLevel = 2047
	// MaxVariableLevel is the last level whose cost depends on the adaptive
	// probabilities. Larger levels only add fixed extra bits.
	MaxVariableLevel = 67
	// NumProbas is the number of coefficient probabilities per context.
	NumProbas = 11
)

// EntropyCost[p] is the cost of coding a 0 with probability p/256.
var EntropyCost = [256]uint16{
	1792, 1792, 1792, 1536, 1536, 1408, 1366, 1280, 1280, 1216, 1178, 1152, 1110, 1076, 1061, 1024,
	1024, 992, 968, 951, 939, 911, 896, 878, 871, 854, 838, 820, 811, 794, 786, 768,
	768, 752, 740, 732, 720, 709, 704, 690, 683, 672, 666, 655, 647, 640, 631, 622,
	615, 607, 598, 592, 586, 576, 572, 564, 559, 555, 547, 541, 534, 528, 522, 512,
	512, 504, 500, 494, 488, 483, 477, 473, 467, 461, 458, 452, 448, 443, 438, 434,
	427, 424, 419, 415, 410, 406, 403, 399, 394, 390, 384, 384, 377, 374, 370, 366,
	362, 359, 355, 351, 347, 342, 342, 336, 333, 330, 326, 323, 320, 316, 312, 308,
	305, 302, 299, 296, 293, 288, 287, 283, 280, 277, 274, 272, 268, 266, 262, 256,
	256, 256, 251, 248, 245, 242, 240, 237, 234, 232, 228, 226, 223, 221, 218, 216,
	214, 211, 208, 205, 203, 201, 198, 196, 192, 191, 188, 187, 183, 181, 179, 176,
	175, 171, 171, 168, 165, 163, 160, 159, 156, 154, 152, 150, 148, 146, 144, 142,
	139, 138, 135, 133, 131, 128, 128, 125, 123, 121, 119, 117, 115, 113, 111, 110,
	107, 105, 103, 102, 100, 98, 96, 94, 92, 91, 89, 86, 86, 83, 82, 80,
	77, 76, 74, 73, 71, 69, 67, 66, 64, 63, 61, 59, 57, 55, 54, 52,
	51, 49, 47, 46, 44, 43, 41, 40, 38, 36, 35, 33, 32, 30, 29, 27,
	25, 24, 22, 21, 19, 18, 16, 15, 13, 12, 10, 9, 7, 6, 4, 3,
}

// LevelFixedCosts holds the probability-independent part of coding a level:
// the sign bit plus the category extra bits.
var LevelFixedCosts [MaxLevel + 1]uint16

// Zigzag is the coefficient scan order.
var Zigzag = [16]int{0, 1, 4, 8, 5, 2, 3, 6, 9, 12, 13, 10, 7, 11, 14, 15}

// EncBands maps a scan position to its probability band. The trailing
// entry lets callers look up band(n+1) for the last position.
var EncBands = [16 + 1]uint8{0, 1, 2, 3, 6, 4, 5, 6, 6, 6, 6, 6, 6, 6, 6, 7, 0}

// Extra-bit probabilities of the large-value categories, most significant
// bit first.
var (
	pcat1 = []uint8{159}
	pcat2 = []uint8{165, 145}
	pcat3 = []uint8{173, 148, 140}
	pcat4 = []uint8{176, 155, 140, 135}
	pcat5 = []uint8{180, 157, 141, 134, 130}
	pcat6 = []uint8{254, 254, 243, 230, 196, 177, 153, 140, 133, 130, 129}
)

var categories = []struct {
	base  int
	proba []uint8
}{
	{5, pcat1}, {7, pcat2}, {11, pcat3}, {19, pcat4}, {35, pcat5}, {67, pcat6},
}

// LevelCodes describes, for levels 1..67, which token-tree probabilities
// (bit i of the first word selects proba[2+i]) are visited and which branch
// is taken (matching bit of the second word).
var LevelCodes = [MaxVariableLevel][2]uint16{
	{0x001, 0x000}, {0x007, 0x001}, {0x00f, 0x005}, {0x00f, 0x00d},
	{0x033, 0x003}, {0x033, 0x003}, {0x033, 0x023}, {0x033, 0x023},
	{0x033, 0x023}, {0x033, 0x023}, {0x0d3, 0x013}, {0x0d3, 0x013},
	{0x0d3, 0x013}, {0x0d3, 0x013}, {0x0d3, 0x013}, {0x0d3, 0x013},
	{0x0d3, 0x013}, {0x0d3, 0x013}, {0x0d3, 0x093}, {0x0d3, 0x093},
	{0x0d3, 0x093}, {0x0d3, 0x093}, {0x0d3, 0x093}, {0x0d3, 0x093},
	{0x0d3, 0x093}, {0x0d3, 0x093}, {0x0d3, 0x093}, {0x0d3, 0x093},
	{0x0d3, 0x093}, {0x0d3, 0x093}, {0x0d3, 0x093}, {0x0d3, 0x093},
	{0x0d3, 0x093}, {0x0d3, 0x093}, {0x153, 0x053}, {0x153, 0x053},
	{0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053},
	{0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053},
	{0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053},
	{0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053},
	{0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053},
	{0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053},
	{0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053}, {0x153, 0x053},
	{0x153, 0x053}, {0x153, 0x053}, {0x153, 0x153},
}

// BitCost returns the cost of coding bit with probability proba/256 of
// being zero.
func BitCost(bit int, proba uint8) int {
	if bit == 0 {
		return int(EntropyCost[proba])
	}
	return int(EntropyCost[255-proba])
}

// BranchCost returns the cost of coding nb ones among total events.
func BranchCost(nb, total int, proba uint8) int {
	return nb*BitCost(1, proba) + (total-nb)*BitCost(0, proba)
}

// VariableLevelCost returns the probability-dependent cost of level
// (1 <= level) given the eleven probabilities of its context.
func VariableLevelCost(level int, probas []uint8) int {
	idx := level - 1
	if idx >= MaxVariableLevel {
		idx = MaxVariableLevel - 1
	}
	pattern := int(LevelCodes[idx][0])
	bits := int(LevelCodes[idx][1])
	cost := 0
	for i := 2; pattern != 0; i++ {
		if pattern&1 != 0 {
			cost += BitCost(bits&1, probas[i])
		}
		bits >>= 1
		pattern >>= 1
	}
	return cost
}

// LevelCost returns the full cost of level given the level-cost row of its
// context.
func LevelCost(table []uint16, level int) int {
	l := level
	if l > MaxVariableLevel {
		l = MaxVariableLevel
	}
	return int(LevelFixedCosts[level]) + int(table[l])
}

func initCostTables() {
	for level := 1; level <= MaxLevel; level++ {
		cost := BitCost(1, 128) // sign
		for i := len(categories) - 1; i >= 0; i-- {
			cat := categories[i]
			if level < cat.base {
				continue
			}
			v := level - cat.base
			n := len(cat.proba)
			for b := 0; b < n; b++ {
				bit := (v >> (n - 1 - b)) & 1
				cost += BitCost(bit, cat.proba[b])
			}
			break
		}
		LevelFixedCosts[level] = uint16(cost)
	}
}
