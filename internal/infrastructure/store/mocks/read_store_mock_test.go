package mocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockReadStore_GetAllOrderedByID(t *testing.T) {
	rs := NewMockReadStore()
	rs.Set("orders", "R300", 3)
	rs.Set("orders", "R100", 1)
	rs.SetData("orders", "R200", 2)

	assert.Equal(t, []any{1, 2, 3}, rs.GetAll("orders"))
	assert.Empty(t, rs.GetAll("users"))
	assert.Len(t, rs.SetCalls, 2)
	assert.Equal(t, 3, rs.Count("orders"))
}

func TestMockReadStore_UpdateAndDelete(t *testing.T) {
	rs := NewMockReadStore()
	rs.SetData("orders", "R100", 1)

	assert.True(t, rs.Update("orders", "R100", func(current any) any { return current.(int) + 1 }))
	assert.False(t, rs.Update("orders", "R999", func(current any) any { return current }))
	assert.False(t, rs.Update("users", "u1", func(current any) any { return current }))
	assert.Len(t, rs.UpdateCalls, 3)

	v, ok := rs.GetData("orders", "R100")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	rs.Delete("orders", "R100")
	rs.Delete("users", "u1")
	_, ok = rs.Get("orders", "R100")
	assert.False(t, ok)
}
