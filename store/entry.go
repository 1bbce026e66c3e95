package store

// EntryKind tags the variants of an Entry.
type EntryKind uint8

const (
	KindAbsent EntryKind = iota
	KindLeaf
	KindSubtree
)

func (k EntryKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSubtree:
		return "subtree"
	default:
		return "absent"
	}
}

// Entry is the result of resolving a key: a decoded leaf value, a handle on
// a subtree, or nothing. Absent entries may carry a caller supplied default.
type Entry struct {
	kind  EntryKind
	value any
	sub   *Store
}

func LeafEntry(v any) Entry          { return Entry{kind: KindLeaf, value: v} }
func SubtreeEntry(s *Store) Entry    { return Entry{kind: KindSubtree, sub: s} }
func AbsentEntry(fallback any) Entry { return Entry{kind: KindAbsent, value: fallback} }

func (e Entry) Kind() EntryKind { return e.kind }
func (e Entry) IsLeaf() bool    { return e.kind == KindLeaf }
func (e Entry) IsSubtree() bool { return e.kind == KindSubtree }
func (e Entry) IsAbsent() bool  { return e.kind == KindAbsent }

// Value returns the leaf value, the subtree handle, or the default carried
// by an absent entry.
func (e Entry) Value() any {
	if e.kind == KindSubtree {
		return e.sub
	}
	return e.value
}

// Leaf returns the decoded value if e is a leaf.
func (e Entry) Leaf() (any, bool) {
	if e.kind != KindLeaf {
		return nil, false
	}
	return e.value, true
}

// Subtree returns the handle if e is a subtree.
func (e Entry) Subtree() (*Store, bool) {
	if e.kind != KindSubtree {
		return nil, false
	}
	return e.sub, true
}

// Filter selects which entry kinds an operation accepts.
type Filter uint8

const (
	All Filter = iota
	SubtreesOnly
	LeavesOnly
)

func (f Filter) subtrees() bool { return f != LeavesOnly }
func (f Filter) leaves() bool   { return f != SubtreesOnly }

func (f Filter) accepts(k EntryKind) bool {
	switch k {
	case KindSubtree:
		return f.subtrees()
	case KindLeaf:
		return f.leaves()
	}
	return false
}

func (f Filter) String() string {
	switch f {
	case SubtreesOnly:
		return "subtrees"
	case LeavesOnly:
		return "leaves"
	default:
		return "all"
	}
}

// Item pairs a key with its resolved entry. Key-only searches leave the
// entry without a value.
type Item struct {
	Key   Key
	Entry Entry
}
