// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/alpaworld/alpafi/alpafi"
	"github.com/alpaworld/alpafi/kv"
	"github.com/alpaworld/alpafi/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr alpafi.Address
	key  alpafi.Bytes32
}

func (k storageKey) persistKey() []byte {
	b := make([]byte, 0, 1+alpafi.AddressLength+32)
	b = append(b, 's')
	b = append(b, k.addr.Bytes()...)
	b = append(b, k.key.Bytes()...)
	return b
}

// State manages contract storage with checkpoint/revert support.
// It is not safe for concurrent use; mutating calls are strictly sequential.
type State struct {
	kv kv.GetPutter
	sm *stackedmap.StackedMap
}

// New creates a state backed by the given kv store.
func New(store kv.GetPutter) *State {
	st := &State{kv: store}
	st.sm = stackedmap.New(st.kvGetter)
	// base revision, never popped
	st.sm.Push()
	return st
}

// kvGetter implements stackedmap.MapGetter.
func (s *State) kvGetter(k any) (any, bool, error) {
	key, ok := k.(storageKey)
	if !ok {
		panic(fmt.Errorf("state: unexpected key type %+v", k))
	}
	data, err := s.kv.Get(key.persistKey())
	if err != nil {
		if s.kv.IsNotFound(err) {
			return rlp.RawValue(nil), true, nil
		}
		return nil, false, &Error{err}
	}
	return rlp.RawValue(data), true, nil
}

// GetRawStorage returns the raw rlp value stored at (addr, key).
func (s *State) GetRawStorage(addr alpafi.Address, key alpafi.Bytes32) (rlp.RawValue, error) {
	v, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, err
	}
	return v.(rlp.RawValue), nil
}

// SetRawStorage sets the raw rlp value at (addr, key). Nil or empty raw
// marks the entry for deletion.
func (s *State) SetRawStorage(addr alpafi.Address, key alpafi.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns the 32-byte word stored at (addr, key).
func (s *State) GetStorage(addr alpafi.Address, key alpafi.Bytes32) (alpafi.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return alpafi.Bytes32{}, err
	}
	if len(raw) == 0 {
		return alpafi.Bytes32{}, nil
	}
	_, content, _, err := rlp.Split(raw)
	if err != nil {
		return alpafi.Bytes32{}, &Error{err}
	}
	return alpafi.BytesToBytes32(content), nil
}

// SetStorage stores a 32-byte word at (addr, key). A zero value clears the slot.
func (s *State) SetStorage(addr alpafi.Address, key, value alpafi.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	trimmed, _ := rlp.EncodeToBytes(bytes.TrimLeft(value.Bytes(), "\x00"))
	s.SetRawStorage(addr, key, trimmed)
}

// EncodeStorage sets the storage value encoded by the given enc function.
// An empty encoded value clears the slot.
func (s *State) EncodeStorage(addr alpafi.Address, key alpafi.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage decodes the storage value at (addr, key) using the given dec
// function. dec receives nil when the slot is empty.
func (s *State) DecodeStorage(addr alpafi.Address, key alpafi.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of the current state.
// It returns the checkpoint to be passed to RevertTo.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts the state to the given checkpoint.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint)
}

// Commit flushes all journaled writes into the kv store in one batch.
func (s *State) Commit() error {
	batch := s.kv.NewBatch()
	var werr error
	s.sm.Journal(func(k, v any) bool {
		key := k.(storageKey)
		raw := v.(rlp.RawValue)
		if len(raw) == 0 {
			werr = batch.Delete(key.persistKey())
		} else {
			werr = batch.Put(key.persistKey(), raw)
		}
		return werr == nil
	})
	if werr != nil {
		return &Error{werr}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	return nil
}
