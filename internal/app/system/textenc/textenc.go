// Package textenc holds the delimited-text encodings used by the persistent
// document formats: membership sets and article-id indexes are stored as
// comma-joined strings, not arrays.
//
// Encoding is order-normalizing: sets are sorted before joining, and decoding
// drops duplicates and empty tokens, so any two encodings of the same set
// decode to identical membership regardless of original insertion order.
package textenc

import (
	"sort"
	"strconv"
	"strings"
)

// Separator joins set elements in the persisted encoding. Elements must not
// contain it; usernames and numeric ids never do, and keyword/link values
// are split on it symmetrically.
const Separator = ","

// JoinSet encodes a string set as a single delimited value.
func JoinSet(values []string) string {
	set := SplitSet(strings.Join(values, Separator))
	return strings.Join(set, Separator)
}

// SplitSet decodes a delimited value into a sorted, de-duplicated string
// set. Empty tokens are dropped, so the empty encoding decodes to an empty
// set rather than a set holding "".
func SplitSet(encoded string) []string {
	seen := make(map[string]struct{})
	var set []string
	for _, tok := range strings.Split(encoded, Separator) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		set = append(set, tok)
	}
	sort.Strings(set)
	return set
}

// JoinIDs encodes an id set as a delimited value of decimal integers.
func JoinIDs(ids []int64) string {
	set := dedupeIDs(ids)
	toks := make([]string, len(set))
	for i, id := range set {
		toks[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(toks, Separator)
}

// SplitIDs decodes a delimited value into a sorted, de-duplicated id set.
// Tokens that do not parse as integers are dropped: the id index is a
// best-effort cache and one stray token must not poison the whole set.
func SplitIDs(encoded string) []int64 {
	var ids []int64
	for _, tok := range strings.Split(encoded, Separator) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return dedupeIDs(ids)
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{})
	var set []int64
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		set = append(set, id)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}
