// Copyright (c) 2025 The AlpaFi developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alpaworld/alpafi/stackedmap"
)

func TestStackedMap(t *testing.T) {
	src := make(map[string]string)
	src["s1"] = "src value"

	sm := stackedmap.New(func(key any) (any, bool, error) {
		v, ok := src[key.(string)]
		return v, ok, nil
	})

	sm.Push()
	sm.Put("k1", "v1")

	tests := []struct {
		f        func() any
		expected any
	}{
		{func() any { v, _, _ := sm.Get("k1"); return v }, "v1"},
		{func() any { v, _, _ := sm.Get("s1"); return v }, "src value"},
		{func() any { _, ok, _ := sm.Get("nothing"); return ok }, false},
		{func() any { sm.Push(); sm.Put("k1", "v1.1"); v, _, _ := sm.Get("k1"); return v }, "v1.1"},
		{func() any { sm.Pop(); v, _, _ := sm.Get("k1"); return v }, "v1"},
		{func() any { return sm.Depth() }, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.f())
	}
}

func TestPopTo(t *testing.T) {
	sm := stackedmap.New(func(key any) (any, bool, error) {
		return nil, false, nil
	})

	sm.Push()
	sm.Put("k", "v0")
	depth := sm.Push()
	sm.Put("k", "v1")
	sm.Push()
	sm.Put("k", "v2")
	sm.Put("k2", "other")

	sm.PopTo(depth)

	v, ok, err := sm.Get("k")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v0", v)

	_, ok, err = sm.Get("k2")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestJournal(t *testing.T) {
	sm := stackedmap.New(func(key any) (any, bool, error) {
		return nil, false, nil
	})

	sm.Push()
	sm.Put("k1", "v1")
	sm.Push()
	sm.Put("k1", "v1.1")
	sm.Put("k2", "v2")

	latest := make(map[string]string)
	sm.Journal(func(k, v any) bool {
		latest[k.(string)] = v.(string)
		return true
	})
	assert.Equal(t, map[string]string{"k1": "v1.1", "k2": "v2"}, latest)
}

func TestPutWithoutPush(t *testing.T) {
	sm := stackedmap.New(func(key any) (any, bool, error) {
		return nil, false, nil
	})
	assert.Panics(t, func() { sm.Put("k", "v") })
}
