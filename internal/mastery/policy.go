package mastery

// Policy is a classroom's resolved progression policy.
type Policy struct {
	EnabledOperations []Operation `json:"enabled_operations"`
	OperationOrder    []Operation `json:"operation_order"`
	PrimaryOperation  Operation   `json:"primary_operation"`
	MaxNumber         int         `json:"max_number"`
}

// ResolvePolicy normalises raw policy data. Unknown codes are dropped and
// duplicates collapsed. An order that is empty or names an operation that is
// not enabled is rebuilt from the enabled set; a partial order keeps its
// relative sequence and gets the missing enabled operations appended.
// maxNumber is clamped to [MinMaxNumber, MaxMaxNumber].
func ResolvePolicy(enabled, order []Operation, maxNumber int) (Policy, error) {
	enabledOps := dedupe(enabled)
	if len(enabledOps) == 0 {
		return Policy{}, ErrNoOperations
	}

	enabledSet := make(map[Operation]struct{}, len(enabledOps))
	for _, op := range enabledOps {
		enabledSet[op] = struct{}{}
	}

	orderOps := dedupe(order)
	rebuild := len(orderOps) == 0
	for _, op := range orderOps {
		if _, ok := enabledSet[op]; !ok {
			rebuild = true
			break
		}
	}

	var resolved []Operation
	if rebuild {
		resolved = append(resolved, enabledOps...)
	} else {
		resolved = append(resolved, orderOps...)
		for _, op := range enabledOps {
			if indexOf(resolved, op) < 0 {
				resolved = append(resolved, op)
			}
		}
	}

	return Policy{
		EnabledOperations: enabledOps,
		OperationOrder:    resolved,
		PrimaryOperation:  resolved[0],
		MaxNumber:         clampMaxNumber(maxNumber),
	}, nil
}

// Next returns the operation following op in the order.
func (p Policy) Next(op Operation) (Operation, bool) {
	idx := indexOf(p.OperationOrder, op)
	if idx < 0 || idx+1 >= len(p.OperationOrder) {
		return "", false
	}
	return p.OperationOrder[idx+1], true
}

// Enabled reports whether op is part of the policy.
func (p Policy) Enabled(op Operation) bool {
	return indexOf(p.EnabledOperations, op) >= 0
}

func dedupe(ops []Operation) []Operation {
	seen := make(map[Operation]struct{}, len(ops))
	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if !op.Valid() {
			continue
		}
		if _, dup := seen[op]; dup {
			continue
		}
		seen[op] = struct{}{}
		out = append(out, op)
	}
	return out
}

func clampMaxNumber(n int) int {
	if n < MinMaxNumber {
		return MinMaxNumber
	}
	if n > MaxMaxNumber {
		return MaxMaxNumber
	}
	return n
}
