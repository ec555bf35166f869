package service

import "context"

type staffKey struct{}

// WithStaffID returns a context carrying the signed-in staff member's id
func WithStaffID(ctx context.Context, staffID int64) context.Context {
	return context.WithValue(ctx, staffKey{}, staffID)
}

// StaffProvider resolves the staff id a sale is recorded under
type StaffProvider struct {
	defaultID int64
}

// NewStaffProvider creates a provider falling back to defaultID
func NewStaffProvider(defaultID int64) *StaffProvider {
	if defaultID <= 0 {
		defaultID = 1
	}
	return &StaffProvider{defaultID: defaultID}
}

// StaffID returns the id carried by ctx, or the default when absent
func (p *StaffProvider) StaffID(ctx context.Context) int64 {
	if id, ok := ctx.Value(staffKey{}).(int64); ok && id > 0 {
		return id
	}
	return p.defaultID
}
