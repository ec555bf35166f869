package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaffProvider(t *testing.T) {
	p := NewStaffProvider(0)
	assert.Equal(t, int64(1), p.StaffID(context.Background()))

	p = NewStaffProvider(9)
	assert.Equal(t, int64(9), p.StaffID(context.Background()))
	assert.Equal(t, int64(4), p.StaffID(WithStaffID(context.Background(), 4)))
	assert.Equal(t, int64(9), p.StaffID(WithStaffID(context.Background(), -3)))
}
