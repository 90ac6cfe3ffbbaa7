package query

import (
	"memris/rowtable"
	"memris/selection"
)

// Evaluate runs a compiled condition vector against table: it
// partitions conditions into AND-groups split on OR, probes each
// group's composite indices first, direct-executes every unconsumed
// position and intersects it into the group's running selection, then
// unions every group. An empty condition vector yields scan_all.
func Evaluate(table *rowtable.Table, conditions []Condition, indices TableIndices, args Args) (selection.Selection, error) {
	if len(conditions) == 0 {
		return scanAllSelection(table), nil
	}

	var result selection.Selection
	hasResult := false
	for _, group := range splitGroups(conditions) {
		groupSel, err := evaluateGroup(table, group, indices, args)
		if err != nil {
			return selection.Empty, err
		}
		if !hasResult {
			result = groupSel
			hasResult = true
			continue
		}
		result = selection.Union(result, groupSel)
	}
	return result, nil
}

// splitGroups partitions conditions into maximal contiguous runs whose
// members are joined by AND, split wherever a condition's Next is OR.
func splitGroups(conditions []Condition) [][]Condition {
	var groups [][]Condition
	start := 0
	for i, c := range conditions {
		if c.Next == OR || i == len(conditions)-1 {
			groups = append(groups, conditions[start:i+1])
			start = i + 1
		}
	}
	return groups
}

func evaluateGroup(table *rowtable.Table, group []Condition, indices TableIndices, args Args) (selection.Selection, error) {
	consumed := make([]bool, len(group))

	probe, err := probeComposites(table, indices.Composites, group, args)
	if err != nil {
		return selection.Empty, err
	}

	var running selection.Selection
	haveRunning := false
	if probe != nil {
		running = probe.selection
		haveRunning = true
		copy(consumed, probe.consumed)
	}

	for i, cond := range group {
		if consumed[i] {
			continue
		}
		colIdx := ColumnIndices{}
		if cond.Column < len(indices.PerColumn) {
			colIdx = indices.PerColumn[cond.Column]
		}
		exec := compileCondition(cond, colIdx)
		sel, err := exec(table, args)
		if err != nil {
			return selection.Empty, err
		}
		if !haveRunning {
			running = sel
			haveRunning = true
			continue
		}
		running = selection.Intersect(running, sel)
	}

	if !haveRunning {
		return selection.Empty, nil
	}
	return running, nil
}
