package value

import (
	"sort"
	"strings"
)

// kindRank fixes the ordering of kinds relative to each other so that
// Compare is total even over heterogeneous collections.
func kindRank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindNumber:
		return 2
	case KindString:
		return 3
	case KindList:
		return 4
	case KindSet:
		return 5
	case KindMap:
		return 6
	case KindObject:
		return 7
	case KindUnknown:
		return 8
	default:
		return 9
	}
}

// Equal reports deep structural equality. Values of different kinds are
// never equal. Numbers compare numerically, so 1.50 equals 1.5. Unknown
// equals Unknown: this is identity of the placeholder, not a claim that
// two unknown quantities will agree once resolved.
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

// Compare imposes a total order over all values: first by kind rank, then
// within a kind by payload. Collections compare lexicographically by
// element; Maps and Objects by sorted key, then by the value under each
// key. The order has no language-level meaning beyond determinism; it
// exists so Sets canonicalize and sorts are stable.
func Compare(a, b Value) int {
	if ra, rb := kindRank(a.kind), kindRank(b.kind); ra != rb {
		return sign(ra - rb)
	}
	switch a.kind {
	case KindNull, KindUnknown:
		return 0
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindNumber:
		return a.num.Cmp(b.num)
	case KindString:
		return strings.Compare(a.str, b.str)
	case KindList, KindSet:
		return compareElems(a.elems, b.elems)
	case KindMap, KindObject:
		return compareKeyed(a, b)
	default:
		return 0
	}
}

func compareElems(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return sign(len(a) - len(b))
}

func compareKeyed(a, b Value) int {
	ka, kb := a.sortedKeys(), b.sortedKeys()
	n := len(ka)
	if len(kb) < n {
		n = len(kb)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
		if c := Compare(a.fields[ka[i]], b.fields[kb[i]]); c != 0 {
			return c
		}
	}
	return sign(len(ka) - len(kb))
}

func (v Value) sortedKeys() []string {
	cp := make([]string, len(v.keys))
	copy(cp, v.keys)
	sort.Strings(cp)
	return cp
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
