package candh

import "slices"

// KeyFunc returns the stable identifier of a collection element.
type KeyFunc func(element any) (key string, ok bool)

// Match pairs a source element with the destination element it updates.
type Match struct {
	SrcIndex   int
	DestIndex  int
	Positional bool
}

// ReconcilePlan is the outcome of correlating two collections. It is
// computed before any mutation.
type ReconcilePlan struct {
	// Matches are ordered by DestIndex.
	Matches []Match
	// Removed holds destination indexes without a source counterpart.
	Removed []int
	// Added holds source indexes without a destination counterpart.
	Added []int
}

// Positional returns how many matches fell back to position.
func (p ReconcilePlan) Positional() int {
	n := 0
	for _, m := range p.Matches {
		if m.Positional {
			n++
		}
	}
	return n
}

// Structural reports whether elements are added or removed.
func (p ReconcilePlan) Structural() bool {
	return len(p.Removed) > 0 || len(p.Added) > 0
}

// Reconcile correlates src and dest elements. Keyed elements match by key;
// when a key repeats, the n-th src occurrence matches the n-th dest
// occurrence. Unkeyed elements are paired by their position among the
// unkeyed elements of each side.
func Reconcile(src, dest []any, key KeyFunc) ReconcilePlan {
	destByKey := make(map[string][]int, len(dest))
	var destUnkeyed []int
	for i, element := range dest {
		k, ok := key(element)
		if !ok {
			destUnkeyed = append(destUnkeyed, i)
			continue
		}
		destByKey[k] = append(destByKey[k], i)
	}

	srcForDest := make(map[int]Match, len(dest))
	occurrence := make(map[string]int)
	var added []int
	var srcUnkeyed []int
	for i, element := range src {
		k, ok := key(element)
		if !ok {
			srcUnkeyed = append(srcUnkeyed, i)
			continue
		}
		n := occurrence[k]
		occurrence[k]++
		candidates := destByKey[k]
		if n >= len(candidates) {
			added = append(added, i)
			continue
		}
		srcForDest[candidates[n]] = Match{SrcIndex: i, DestIndex: candidates[n]}
	}

	for n, srcIndex := range srcUnkeyed {
		if n < len(destUnkeyed) {
			destIndex := destUnkeyed[n]
			srcForDest[destIndex] = Match{SrcIndex: srcIndex, DestIndex: destIndex, Positional: true}
			continue
		}
		added = append(added, srcIndex)
	}

	plan := ReconcilePlan{}
	for i := range dest {
		if m, ok := srcForDest[i]; ok {
			plan.Matches = append(plan.Matches, m)
			continue
		}
		plan.Removed = append(plan.Removed, i)
	}
	slices.Sort(added)
	plan.Added = added
	return plan
}
