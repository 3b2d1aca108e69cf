// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/alpaworld/alpafi/alpafi"
)

// StorageEncoder encodes the value into storage form. Returning empty bytes
// clears the storage slot.
type StorageEncoder interface {
	Encode() ([]byte, error)
}

// StorageDecoder decodes the value from storage form. data is nil when the
// slot is empty.
type StorageDecoder interface {
	Decode(data []byte) error
}

// SetStructuredStorage stores a structured value at (addr, key).
// Values implementing StorageEncoder control their own layout; a handful of
// plain types get trimmed rlp encoding with zero values clearing the slot.
func (s *State) SetStructuredStorage(addr alpafi.Address, key alpafi.Bytes32, val any) error {
	return s.EncodeStorage(addr, key, func() ([]byte, error) {
		return encodeStoredValue(val)
	})
}

// GetStructuredStorage loads the structured value at (addr, key) into val,
// which must be a pointer or a StorageDecoder. An empty slot yields the zero
// value.
func (s *State) GetStructuredStorage(addr alpafi.Address, key alpafi.Bytes32, val any) error {
	return s.DecodeStorage(addr, key, func(raw []byte) error {
		return decodeStoredValue(raw, val)
	})
}

func encodeStoredValue(val any) ([]byte, error) {
	switch v := val.(type) {
	case StorageEncoder:
		return v.Encode()
	case *big.Int:
		if v.Sign() == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(v)
	case alpafi.Address:
		if v.IsZero() {
			return nil, nil
		}
		return rlp.EncodeToBytes(bytes.TrimLeft(v.Bytes(), "\x00"))
	case alpafi.Bytes32:
		if v.IsZero() {
			return nil, nil
		}
		return rlp.EncodeToBytes(bytes.TrimLeft(v.Bytes(), "\x00"))
	case uint64:
		if v == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(v)
	case uint32:
		if v == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(v)
	case bool:
		if !v {
			return nil, nil
		}
		return rlp.EncodeToBytes(v)
	default:
		return nil, fmt.Errorf("storage codec: unsupported type %T", val)
	}
}

func decodeStoredValue(raw []byte, val any) error {
	if dec, ok := val.(StorageDecoder); ok {
		return dec.Decode(raw)
	}
	switch v := val.(type) {
	case *big.Int:
		if len(raw) == 0 {
			v.SetInt64(0)
			return nil
		}
		return rlp.DecodeBytes(raw, v)
	case *alpafi.Address:
		if len(raw) == 0 {
			*v = alpafi.Address{}
			return nil
		}
		_, content, _, err := rlp.Split(raw)
		if err != nil {
			return err
		}
		*v = alpafi.BytesToAddress(content)
		return nil
	case *alpafi.Bytes32:
		if len(raw) == 0 {
			*v = alpafi.Bytes32{}
			return nil
		}
		_, content, _, err := rlp.Split(raw)
		if err != nil {
			return err
		}
		*v = alpafi.BytesToBytes32(content)
		return nil
	case *uint64:
		if len(raw) == 0 {
			*v = 0
			return nil
		}
		return rlp.DecodeBytes(raw, v)
	case *uint32:
		if len(raw) == 0 {
			*v = 0
			return nil
		}
		return rlp.DecodeBytes(raw, v)
	case *bool:
		if len(raw) == 0 {
			*v = false
			return nil
		}
		return rlp.DecodeBytes(raw, v)
	default:
		return fmt.Errorf("storage codec: unsupported type %T", val)
	}
}
