package audit

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

// genesisHash seeds the chain for the first entry ever appended. A
// configured secret lets a deployment fork its own chain lineage instead of
// every ObjectOS install sharing the same genesis digest.
func genesisHash(secret string) string {
	sum := sha3.Sum256([]byte("objectos-audit-genesis:" + secret))
	return hex.EncodeToString(sum[:])
}

// chainHash computes entry's Hash given the previous entry's Hash, over a
// canonical string representation so re-deriving the chain from stored
// entries reproduces the same digest deterministically regardless of map
// iteration order inside Changes.
func chainHash(prevHash string, e Entry) string {
	var b strings.Builder
	b.WriteString(prevHash)
	b.WriteString("|")
	b.WriteString(e.ID)
	b.WriteString("|")
	b.WriteString(e.EventType)
	b.WriteString("|")
	b.WriteString(e.ObjectName)
	b.WriteString("|")
	b.WriteString(e.RecordID)
	b.WriteString("|")
	b.WriteString(e.UserID)
	b.WriteString("|")
	fmt.Fprintf(&b, "%t|", e.Success)
	b.WriteString(e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"))

	changes := append([]FieldChange{}, e.Changes...)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	for _, c := range changes {
		fmt.Fprintf(&b, "|%s=%v->%v", c.Field, c.OldValue, c.NewValue)
	}

	sum := sha3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyChain recomputes the hash chain over entries (assumed in append
// order) and reports the index of the first entry whose stored Hash doesn't
// match its recomputed value, or -1 if the chain is intact.
func VerifyChain(secret string, entries []Entry) int {
	prev := genesisHash(secret)
	for i, e := range entries {
		want := chainHash(prev, e)
		if e.Hash != want {
			return i
		}
		prev = e.Hash
	}
	return -1
}
