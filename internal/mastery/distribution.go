package mastery

// LevelAssignment pairs an operation with a level.
type LevelAssignment struct {
	Operation Operation `json:"operation"`
	Level     int       `json:"level"`
}

// Distribute spreads levelAmount across the order starting at start, giving
// each operation at most maxNumber before moving on. The order is walked once
// without wrapping. An empty order yields (start, 1); an amount that fits under
// the cap, or a start missing from the order, yields a single pair for start.
func Distribute(order []Operation, start Operation, maxNumber, levelAmount int) []LevelAssignment {
	if len(order) == 0 {
		return []LevelAssignment{{Operation: start, Level: 1}}
	}
	if maxNumber < 1 {
		maxNumber = 1
	}

	idx := indexOf(order, start)
	if levelAmount <= maxNumber || idx < 0 {
		return []LevelAssignment{{Operation: start, Level: ClampLevel(levelAmount, maxNumber)}}
	}

	var out []LevelAssignment
	remaining := levelAmount
	for i := idx; i < len(order) && remaining > 0; i++ {
		level := remaining
		if level > maxNumber {
			level = maxNumber
		}
		out = append(out, LevelAssignment{Operation: order[i], Level: ClampLevel(level, maxNumber)})
		remaining -= level
	}
	return out
}

// Placement computes a full set of starting levels for a student: every
// operation before start is treated as mastered, start and its overflow come
// from Distribute, and anything after that begins at level 1.
func Placement(p Policy, start Operation, levelAmount int) []LevelAssignment {
	distributed := Distribute(p.OperationOrder, start, p.MaxNumber, levelAmount)
	assigned := make(map[Operation]int, len(distributed))
	for _, la := range distributed {
		assigned[la.Operation] = la.Level
	}

	startIdx := indexOf(p.OperationOrder, start)
	out := make([]LevelAssignment, 0, len(p.OperationOrder))
	for i, op := range p.OperationOrder {
		level, ok := assigned[op]
		switch {
		case ok:
		case startIdx >= 0 && i < startIdx:
			level = p.MaxNumber
		default:
			level = 1
		}
		out = append(out, LevelAssignment{Operation: op, Level: level})
	}
	if startIdx < 0 {
		if level, ok := assigned[start]; ok {
			out = append(out, LevelAssignment{Operation: start, Level: level})
		}
	}
	return out
}
