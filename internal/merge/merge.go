// Package merge computes a reconciled collection state from a local and
// a remote snapshot. The policy is whole-entity last-write-wins: the copy
// with the greater UpdatedAt replaces the other in full, with ties broken
// toward the remote copy so both sides converge deterministically.
package merge

import (
	"sort"
	"time"
)

// Entity is the minimal contract an entity must satisfy to be merged.
type Entity interface {
	EntityID() string
	ModifiedAt() time.Time
}

// Merge reconciles local and remote snapshots of one collection.
//
// The result contains every entity from either side, resolved by
// timestamp. localWinners lists entities whose local copy strictly
// dominates the remote copy; callers must re-push those to the remote
// store. Entities present only locally (never uploaded) stay in the
// result but are not winners.
//
// Merge is pure: it never mutates its inputs and the same inputs always
// produce the same outputs.
func Merge[E Entity](local, remote []E) (result []E, localWinners []E) {
	merged := make(map[string]E, len(local)+len(remote))
	order := make([]string, 0, len(local)+len(remote))

	for _, e := range local {
		id := e.EntityID()
		merged[id] = e
		order = append(order, id)
	}

	for _, r := range remote {
		id := r.EntityID()
		l, shared := merged[id]
		if !shared {
			merged[id] = r
			order = append(order, id)
			continue
		}
		if l.ModifiedAt().After(r.ModifiedAt()) {
			localWinners = append(localWinners, l)
			continue
		}
		// Remote wins on newer timestamp and on exact ties.
		merged[id] = r
	}

	result = make([]E, 0, len(merged))
	for _, id := range order {
		result = append(result, merged[id])
	}
	return result, localWinners
}

// SortByUpdatedAtDesc orders entities newest-first, the display order for
// notes and chat threads. IDs break timestamp ties so the order is stable.
func SortByUpdatedAtDesc[E Entity](items []E) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].ModifiedAt(), items[j].ModifiedAt()
		if ti.Equal(tj) {
			return items[i].EntityID() < items[j].EntityID()
		}
		return ti.After(tj)
	})
}

// SortByName orders entities by the given name accessor ascending, the
// display order for labels.
func SortByName[E Entity](items []E, nameOf func(E) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return nameOf(items[i]) < nameOf(items[j])
	})
}
