package domain

import (
	"fmt"
	"sort"
	"strings"
)

// CanonicalText flattens the master into deterministic old/new line sets
// suitable for a textual diff. Attributes are sorted by property name.
func (m HistoryMaster) CanonicalText() (before []string, after []string) {
	header := []string{
		fmt.Sprintf("EntityType: %s", m.EntityType),
		fmt.Sprintf("EntityID: %s", m.EntityID),
		"Properties:",
	}
	before = append(before, header...)
	after = append(after, header...)

	attrs := make([]HistoryAttribute, len(m.Attributes))
	copy(attrs, m.Attributes)
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].PropertyName < attrs[j].PropertyName
	})

	for _, attr := range attrs {
		if attr.OldValue != nil {
			before = append(before, fmt.Sprintf("  %s: %s", attr.PropertyName, *attr.OldValue))
		}
		if attr.NewValue != nil {
			after = append(after, fmt.Sprintf("  %s: %s", attr.PropertyName, *attr.NewValue))
		}
	}

	return before, after
}

// UnifiedDiff renders the master as a unified diff between the recorded old
// and new values.
func (m HistoryMaster) UnifiedDiff() string {
	before, after := m.CanonicalText()
	label := fmt.Sprintf("%s/%s", m.EntityType, m.EntityID)
	return buildUnifiedDiff(label+"@before", label+"@"+m.ModifiedAt.UTC().Format("2006-01-02T15:04:05Z"), before, after)
}

type diffOp struct {
	prefix string
	line   string
}

func buildUnifiedDiff(baseLabel, targetLabel string, baseLines, targetLines []string) string {
	ops := diffLines(baseLines, targetLines)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("--- %s\n", baseLabel))
	builder.WriteString(fmt.Sprintf("+++ %s\n", targetLabel))
	builder.WriteString(fmt.Sprintf("@@ -1,%d +1,%d @@\n", len(baseLines), len(targetLines)))
	for _, operation := range ops {
		builder.WriteString(operation.prefix)
		builder.WriteString(operation.line)
		builder.WriteString("\n")
	}

	return builder.String()
}

// diffLines computes a longest-common-subsequence edit script.
func diffLines(base, target []string) []diffOp {
	m := len(base)
	n := len(target)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if base[i] == target[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	ops := make([]diffOp, 0, m+n)
	i, j := 0, 0
	for i < m && j < n {
		if base[i] == target[j] {
			ops = append(ops, diffOp{prefix: " ", line: base[i]})
			i++
			j++
			continue
		}

		if dp[i+1][j] >= dp[i][j+1] {
			ops = append(ops, diffOp{prefix: "-", line: base[i]})
			i++
		} else {
			ops = append(ops, diffOp{prefix: "+", line: target[j]})
			j++
		}
	}

	for i < m {
		ops = append(ops, diffOp{prefix: "-", line: base[i]})
		i++
	}

	for j < n {
		ops = append(ops, diffOp{prefix: "+", line: target[j]})
		j++
	}

	return ops
}
