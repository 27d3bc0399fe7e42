// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := MakeWith("q8_8x8", "f32_8x8")
	assert.True(t, s.Has("f32_8x8"))
	assert.False(t, s.Has("f32_16x4"))
	assert.Equal(t, []string{"f32_8x8", "q8_8x8"}, Sorted(s))

	s.Insert("f32_16x4")
	assert.Len(t, s, 3)
	assert.True(t, s.Allows("f32_16x4"))
	assert.False(t, s.Allows("generic_f32_4x4"))

	empty := Make[string]()
	assert.True(t, empty.AllowsAll())
	assert.True(t, empty.Allows("anything"))
}
