package repo

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// stagedTx buffers all changes in memory. Backends commit its ChangeSet.
type stagedTx struct {
	clinic      Clinic
	clinicDirty bool

	original map[uuid.UUID]Entry
	current  map[uuid.UUID]Entry
}

func newStagedTx(s Snapshot) *stagedTx {
	tx := &stagedTx{
		clinic:   s.Clinic,
		original: make(map[uuid.UUID]Entry, len(s.Entries)),
		current:  make(map[uuid.UUID]Entry, len(s.Entries)),
	}
	for _, e := range s.Entries {
		tx.original[e.ID] = e
		tx.current[e.ID] = e
	}
	return tx
}

func (t *stagedTx) Clinic() Clinic { return t.clinic }

func (t *stagedTx) SaveClinic(c Clinic) {
	c.ID = t.clinic.ID
	t.clinic = c
	t.clinicDirty = true
}

func (t *stagedTx) Entries() []Entry {
	return sortEntries(lo.Values(t.current))
}

func (t *stagedTx) Entry(id uuid.UUID) (Entry, bool) {
	e, ok := t.current[id]
	return e, ok
}

func (t *stagedTx) Put(e Entry) {
	e.ClinicID = t.clinic.ID
	t.current[e.ID] = e
}

func (t *stagedTx) Delete(id uuid.UUID) bool {
	if _, ok := t.current[id]; !ok {
		return false
	}
	delete(t.current, id)
	return true
}

func (t *stagedTx) changes() ChangeSet {
	var cs ChangeSet
	if t.clinicDirty {
		c := t.clinic
		cs.Clinic = &c
	}
	for id, e := range t.current {
		if orig, ok := t.original[id]; !ok || !orig.Equal(e) {
			cs.Upserts = append(cs.Upserts, e)
		}
	}
	for id := range t.original {
		if _, ok := t.current[id]; !ok {
			cs.Deletes = append(cs.Deletes, id)
		}
	}
	cs.Upserts = sortEntries(cs.Upserts)
	return cs
}

// result is the snapshot after commit.
func (t *stagedTx) result() Snapshot {
	return Snapshot{Clinic: t.clinic, Entries: t.Entries()}
}

func sortEntries(entries []Entry) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		if !entries[i].JoinedAt.Equal(entries[j].JoinedAt) {
			return entries[i].JoinedAt.Before(entries[j].JoinedAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
	return entries
}
