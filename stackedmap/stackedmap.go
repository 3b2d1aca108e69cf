// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap

// StackedMap is a map with save/restore semantics.
// Writes are journaled; Push marks a revision and PopTo unwinds the journal
// back to a marked revision, restoring every overwritten key on the way.
type StackedMap struct {
	src     MapGetter
	journal []entry
	index   map[any]int
	marks   []int
}

type entry struct {
	key   any
	value any
	// journal index of the previous write to the same key, -1 if none.
	prev int
}

// MapGetter defines the source of data underneath the journal.
type MapGetter func(key any) (value any, exist bool, err error)

// New creates an instance of StackedMap. src acts as the source of data.
func New(src MapGetter) *StackedMap {
	return &StackedMap{
		src:   src,
		index: make(map[any]int),
	}
}

// Depth returns the number of pushed revisions.
func (sm *StackedMap) Depth() int {
	return len(sm.marks)
}

// Push marks a new revision and returns its depth.
func (sm *StackedMap) Push() int {
	sm.marks = append(sm.marks, len(sm.journal))
	return len(sm.marks) - 1
}

// Pop reverts all writes made since the last Push.
func (sm *StackedMap) Pop() {
	sm.PopTo(len(sm.marks) - 1)
}

// PopTo reverts writes until the revision stack reaches the given depth.
func (sm *StackedMap) PopTo(depth int) {
	if depth < 0 || depth >= len(sm.marks) {
		return
	}
	target := sm.marks[depth]
	for i := len(sm.journal) - 1; i >= target; i-- {
		e := sm.journal[i]
		if e.prev >= 0 {
			sm.index[e.key] = e.prev
		} else {
			delete(sm.index, e.key)
		}
	}
	sm.journal = sm.journal[:target]
	sm.marks = sm.marks[:depth]
}

// Get gets the value for the given key. The second return value indicates
// whether the key was found either in the journal or in the source.
func (sm *StackedMap) Get(key any) (any, bool, error) {
	if i, ok := sm.index[key]; ok {
		return sm.journal[i].value, true, nil
	}
	return sm.src(key)
}

// Put writes a key/value into the journal.
// It panics if no revision has been pushed.
func (sm *StackedMap) Put(key, value any) {
	if len(sm.marks) == 0 {
		panic("stackedmap: put with empty revision stack")
	}
	prev := -1
	if i, ok := sm.index[key]; ok {
		prev = i
	}
	sm.journal = append(sm.journal, entry{key, value, prev})
	sm.index[key] = len(sm.journal) - 1
}

// Journal iterates the latest value of every written key.
// Iteration stops when cb returns false.
func (sm *StackedMap) Journal(cb func(key, value any) bool) {
	for key, i := range sm.index {
		if !cb(key, sm.journal[i].value) {
			return
		}
	}
}
