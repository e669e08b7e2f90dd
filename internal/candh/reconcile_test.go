package candh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func entryKey(element any) (string, bool) {
	return element.(*entry).IdentityKey()
}

func asAny(list []*entry) []any {
	out := make([]any, len(list))
	for i, e := range list {
		out[i] = e
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name string
		src  []*entry
		dest []*entry
		want ReconcilePlan
	}{
		{
			name: "identical",
			src:  entries(1, 2),
			dest: entries(1, 2),
			want: ReconcilePlan{Matches: []Match{{SrcIndex: 0, DestIndex: 0}, {SrcIndex: 1, DestIndex: 1}}},
		},
		{
			name: "reordered",
			src:  entries(2, 1),
			dest: entries(1, 2),
			want: ReconcilePlan{Matches: []Match{{SrcIndex: 1, DestIndex: 0}, {SrcIndex: 0, DestIndex: 1}}},
		},
		{
			name: "added and removed",
			src:  entries(2, 7),
			dest: entries(1, 2, 3),
			want: ReconcilePlan{
				Matches: []Match{{SrcIndex: 0, DestIndex: 1}},
				Removed: []int{0, 2},
				Added:   []int{1},
			},
		},
		{
			name: "duplicate key matches once",
			src:  entries(4, 4),
			dest: entries(4),
			want: ReconcilePlan{Matches: []Match{{SrcIndex: 0, DestIndex: 0}}, Added: []int{1}},
		},
		{
			name: "duplicate keys match by occurrence",
			src:  entries(4, 5, 4),
			dest: entries(4, 4, 5),
			want: ReconcilePlan{Matches: []Match{
				{SrcIndex: 0, DestIndex: 0},
				{SrcIndex: 2, DestIndex: 1},
				{SrcIndex: 1, DestIndex: 2},
			}},
		},
		{
			name: "surplus dest duplicate is removed",
			src:  entries(4),
			dest: entries(4, 4),
			want: ReconcilePlan{Matches: []Match{{SrcIndex: 0, DestIndex: 0}}, Removed: []int{1}},
		},
		{
			name: "unkeyed pair by position",
			src:  []*entry{{Memo: "a"}, {ID: 1}, {Memo: "b"}, {Memo: "c"}},
			dest: []*entry{{Memo: "x"}, {ID: 1}, {Memo: "y"}},
			want: ReconcilePlan{
				Matches: []Match{
					{SrcIndex: 0, DestIndex: 0, Positional: true},
					{SrcIndex: 1, DestIndex: 1},
					{SrcIndex: 2, DestIndex: 2, Positional: true},
				},
				Added: []int{3},
			},
		},
		{
			name: "empty src",
			dest: entries(1),
			want: ReconcilePlan{Removed: []int{0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(asAny(tt.src), asAny(tt.dest), entryKey)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcilePlanSummaries(t *testing.T) {
	plan := Reconcile(asAny([]*entry{{Memo: "a"}}), asAny([]*entry{{Memo: "b"}}), entryKey)
	assert.Equal(t, 1, plan.Positional())
	assert.False(t, plan.Structural())

	plan = Reconcile(asAny(entries(1)), nil, entryKey)
	assert.True(t, plan.Structural())
}
