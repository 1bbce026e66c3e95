package store

import (
	"fmt"
	"iter"
	"maps"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	gridL1 = []string{"a", "b", "c"}
	gridL2 = []string{"1", "2", "3"}
	gridL3 = []string{"X", "Y", "Z"}
)

// gridData is a three level tree with a "v" leaf at the top two levels:
// v, {a,b,c}/v and {a,b,c}/{1,2,3}/{X,Y,Z}.
func gridData() map[string]any {
	d := map[string]any{"v": "Dummy"}
	for _, i1 := range gridL1 {
		l1 := map[string]any{"v": "Dummy=" + i1}
		for _, i2 := range gridL2 {
			l2 := map[string]any{}
			for _, i3 := range gridL3 {
				l2[i3] = fmt.Sprintf("Value=(%s, %s, %s)", i1, i2, i3)
			}
			l1[i2] = l2
		}
		d[i1] = l1
	}
	return d
}

func newGridStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	require.NoError(t, s.Update(gridData(), 10))
	return s
}

// gridValue returns the leaf string at key, or nil for a subtree.
func gridValue(key Key) any {
	var cur any = gridData()
	for _, seg := range key {
		cur = cur.(map[string]any)[seg]
	}
	if _, ok := cur.(map[string]any); ok {
		return nil
	}
	return cur
}

func product(levels ...[]string) []Key {
	keys := []Key{{}}
	for _, level := range levels {
		var next []Key
		for _, k := range keys {
			for _, seg := range level {
				next = append(next, k.Child(seg))
			}
		}
		keys = next
	}
	return keys
}

func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// collect drains items, failing on any error.
func collect(t *testing.T, s *Store, q Query, f Filter) map[string]Entry {
	t.Helper()
	got := map[string]Entry{}
	for it, err := range s.Items(q, f) {
		require.NoError(t, err)
		got[it.Key.String()] = it.Entry
	}
	return got
}

// assertQuery checks every projection and filter of q against the expected
// keys, classifying each as a leaf or subtree from gridData.
func assertQuery(t *testing.T, s *Store, q Query, expected ...Key) {
	t.Helper()

	var subtrees, leaves []string
	for _, k := range expected {
		if gridValue(k) == nil {
			subtrees = append(subtrees, k.String())
		} else {
			leaves = append(leaves, k.String())
		}
	}
	all := append(slices.Clone(subtrees), leaves...)

	for _, tc := range []struct {
		f    Filter
		want []string
	}{
		{All, all},
		{SubtreesOnly, subtrees},
		{LeavesOnly, leaves},
	} {
		items := collect(t, s, q, tc.f)
		assert.ElementsMatch(t, tc.want, slices.Collect(maps.Keys(items)), "items %s %s", q, tc.f)
		for ks, e := range items {
			key := Key(strings.Split(ks, "/"))
			if ks == "<root>" {
				key = Key{}
			}
			if want := gridValue(key); want != nil {
				assert.Equal(t, want, e.Value(), ks)
			} else {
				sub, ok := e.Subtree()
				require.True(t, ok, ks)
				assert.Equal(t, joinPath(s.Root(), key), sub.Root())
			}
		}

		var keys []string
		for k, err := range s.Keys(q, tc.f) {
			require.NoError(t, err)
			keys = append(keys, k.String())
		}
		assert.ElementsMatch(t, tc.want, keys, "keys %s %s", q, tc.f)

		n := 0
		for e, err := range s.Values(q, tc.f) {
			require.NoError(t, err)
			assert.False(t, e.IsAbsent())
			n++
		}
		assert.Equal(t, len(tc.want), n, "values %s %s", q, tc.f)
	}
}

func TestSearch_Grid(t *testing.T) {
	t.Parallel()
	s := newGridStore(t)

	tests := []struct {
		name     string
		query    Query
		expected []Key
	}{
		{"all", Q(Any()), product([]string{"a", "b", "c", "v"})},
		{"sub double nested", Q("a", Any(), Any()), product([]string{"a"}, gridL2, gridL3)},
		{"first double nested", Q(Any(), Any(), "X"), product(gridL1, gridL2, []string{"X"})},
		{"dummy child", Q(Any(), "v"), product(gridL1, []string{"v"})},
		{"middle", Q("a", Any(), "X"), product([]string{"a"}, gridL2, []string{"X"})},
		{"sub single", Q("a", Any()), product([]string{"a"}, []string{"1", "2", "3", "v"})},
		{"first single", Q(Any(), "1"), product(gridL1, []string{"1"})},
		{"sandwich", Q(Any(), "1", Any()), product(gridL1, []string{"1"}, gridL3)},
		{"regexp", Q(regexp.MustCompile("[ab]"), "1", Any()), product([]string{"a", "b"}, []string{"1"}, gridL3)},
		{"exact leaf", Q("a", "1", "X"), []Key{K("a", "1", "X")}},
		{"exact missing", Q("a", "9", "X"), nil},
		{"through a leaf", Q("v", Any()), nil},
		{"recursive then exact", Q(Recursive(), "v"), append([]Key{K("v")}, product(gridL1, []string{"v"})...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertQuery(t, s, tt.query, tt.expected...)
		})
	}
}

func TestSearch_Asymmetric(t *testing.T) {
	t.Parallel()
	s := newGridStore(t)
	mustPut(t, s, K("a", "e"), "asymmetric")

	got := collect(t, s, Q(Any(), "e"), All)
	require.Len(t, got, 1)
	assert.Equal(t, "asymmetric", got["a/e"].Value())
}

func gridWalkKeys(subtrees, leaves bool) []string {
	var keys []Key
	if subtrees {
		keys = append(keys, Key{})
		keys = append(keys, product(gridL1)...)
		keys = append(keys, product(gridL1, gridL2)...)
	}
	if leaves {
		keys = append(keys, K("v"))
		keys = append(keys, product(gridL1, []string{"v"})...)
		keys = append(keys, product(gridL1, gridL2, gridL3)...)
	}
	return keyStrings(keys)
}

func walkKeys(t *testing.T, seq iter.Seq2[Item, error]) []string {
	t.Helper()
	var keys []string
	for it, err := range seq {
		require.NoError(t, err)
		keys = append(keys, it.Key.String())
	}
	return keys
}

func TestWalk(t *testing.T) {
	t.Parallel()
	s := newGridStore(t)

	assert.ElementsMatch(t, gridWalkKeys(true, true), walkKeys(t, s.Walk(WalkOptions{KeysOnly: true})))
	assert.ElementsMatch(t, gridWalkKeys(false, true), walkKeys(t, s.Walk(WalkOptions{Filter: LeavesOnly})))
	assert.ElementsMatch(t, gridWalkKeys(true, false), walkKeys(t, s.Walk(WalkOptions{Filter: SubtreesOnly})))

	// Recursive() as a query walks the same tree.
	assert.ElementsMatch(t, gridWalkKeys(true, true), walkKeys(t, s.Items(Q(Recursive()), All)))
}

func TestWalk_Order(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a", "x"), 1)
	mustPut(t, s, K("b"), 2)

	topDown := walkKeys(t, s.Walk(WalkOptions{KeysOnly: true}))
	assert.Equal(t, []string{"<root>", "a", "b", "a/x"}, topDown)

	bottomUp := walkKeys(t, s.Walk(WalkOptions{KeysOnly: true, BottomUp: true}))
	assert.Equal(t, []string{"a/x", "a", "b", "<root>"}, bottomUp)
}

func TestWalk_Values(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a", "x"), "leaf")

	for it, err := range s.Walk(WalkOptions{}) {
		require.NoError(t, err)
		switch it.Key.String() {
		case "<root>":
			assert.Same(t, s, it.Entry.Value())
		case "a":
			assert.True(t, it.Entry.IsSubtree())
		case "a/x":
			assert.Equal(t, "leaf", it.Entry.Value())
		}
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	var errs []error
	for _, err := range s.Items(Query{}, All) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrEmptyQuery)
}

func TestSearch_EmptyStoreRecursive(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	assert.Equal(t, []string{"<root>"}, walkKeys(t, s.Items(Q(Recursive()), All)))
}

func TestSearch_InvalidSegment(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	for _, err := range s.Keys(Q(Any(), ".."), All) {
		assert.ErrorIs(t, err, ErrInvalidKey)
	}
}

func TestSearch_StopsEarly(t *testing.T) {
	t.Parallel()
	s := newGridStore(t)

	n := 0
	for _, err := range s.Keys(Q(Recursive()), All) {
		require.NoError(t, err)
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

func TestChildren(t *testing.T) {
	t.Parallel()
	s := newGridStore(t)

	var keys []string
	for it, err := range s.Children(SubtreesOnly) {
		require.NoError(t, err)
		keys = append(keys, it.Key.String())
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestSearch_ChildrenInNameOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a"), 1)
	mustPut(t, s, K("b", "x"), 2)
	mustPut(t, s, K("c"), 3)
	mustPut(t, s, K("d", "y"), 4)

	var keys []string
	for k, err := range s.Keys(Q(Any()), All) {
		require.NoError(t, err)
		keys = append(keys, k.String())
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys)

	keys = nil
	for k, err := range s.Keys(Q(MustMatch("[a-c]")), All) {
		require.NoError(t, err)
		keys = append(keys, k.String())
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	// Walk still lists a directory's subtrees before its leaves.
	walk := walkKeys(t, s.Walk(WalkOptions{KeysOnly: true}))
	assert.Equal(t, []string{"<root>", "b", "d", "a", "c", "b/x", "d/y"}, walk)
}
