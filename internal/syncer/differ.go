package syncer

import (
	"sort"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
)

// ComputeChanges builds the minimal edit script transforming current into
// desired. Creates come first, then updates, then deletes, each group ordered
// lexicographically by (name, type) so identical inputs always yield the
// identical plan. Opaque records never produce operations.
//
// Deletes carry dependency edges to earlier creates and updates that share
// their owner name or any target value: when a record is moved to a new name
// or a CNAME is repointed via a create/delete pair, the create must land
// before the delete.
func ComputeChanges(current, desired *dnsmodel.Zone) []ChangeOperation {
	currentByKey := recordIndex(current)
	desiredByKey := recordIndex(desired)

	var creates, updates, deletes []ChangeOperation

	for _, rec := range desired.Records() {
		if rec.Opaque {
			continue
		}
		existing, ok := currentByKey[rec.Key()]
		if !ok {
			creates = append(creates, ChangeOperation{Action: CREATE, Record: rec})
			continue
		}
		if !existing.EqualContent(rec) {
			updates = append(updates, ChangeOperation{Action: UPDATE, Record: rec, Old: existing})
		}
	}

	for _, rec := range current.Records() {
		if rec.Opaque {
			continue
		}
		if _, ok := desiredByKey[rec.Key()]; !ok {
			deletes = append(deletes, ChangeOperation{Action: DELETE, Record: rec, Old: rec})
		}
	}

	// Zone.Records() already iterates sorted; the groups inherit that order.
	ops := make([]ChangeOperation, 0, len(creates)+len(updates)+len(deletes))
	ops = append(ops, creates...)
	ops = append(ops, updates...)
	ops = append(ops, deletes...)

	linkDeleteDependencies(ops, len(creates)+len(updates))
	return ops
}

func recordIndex(zone *dnsmodel.Zone) map[dnsmodel.Key]*dnsmodel.Record {
	index := make(map[dnsmodel.Key]*dnsmodel.Record, zone.Len())
	for _, rec := range zone.Records() {
		index[rec.Key()] = rec
	}
	return index
}

// linkDeleteDependencies adds dependency edges from each delete to the
// creates and updates it must wait for under concurrent dispatch.
func linkDeleteDependencies(ops []ChangeOperation, firstDelete int) {
	for i := firstDelete; i < len(ops); i++ {
		del := &ops[i]
		for j := 0; j < firstDelete; j++ {
			if sharesIdentity(del.Record, ops[j].Record) {
				del.DependsOn = append(del.DependsOn, j)
			}
		}
		sort.Ints(del.DependsOn)
	}
}

// sharesIdentity reports whether a deleted record and a created/updated one
// are two halves of a rename or repoint: same owner name, or an overlapping
// target value set.
func sharesIdentity(deleted, created *dnsmodel.Record) bool {
	if deleted.Name == created.Name {
		return true
	}
	targets := make(map[string]bool, len(created.Values))
	for _, v := range created.Values {
		targets[v.Target] = true
	}
	for _, v := range deleted.Values {
		if targets[v.Target] {
			return true
		}
	}
	return false
}
