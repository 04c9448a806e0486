package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/model"
)

type fakeStaffSource struct {
	staff []*model.Staff
}

func (f *fakeStaffSource) ListActive(_ context.Context, _ int64) ([]*model.Staff, error) {
	var out []*model.Staff
	for _, s := range f.staff {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStaffSource) GetByName(_ context.Context, _ int64, name string) (*model.Staff, error) {
	for _, s := range f.staff {
		if s.IsActive && strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStaffSource) GetByID(_ context.Context, id int64) (*model.Staff, error) {
	for _, s := range f.staff {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

// busyStaffChecker считает занятыми перечисленных сотрудников.
type busyStaffChecker struct {
	busyStaff map[int64]bool
}

func (c *busyStaffChecker) Overlaps(_ context.Context, _ int64, staffID *int64, _, _ time.Time) (bool, error) {
	return staffID != nil && c.busyStaff[*staffID], nil
}

func testWindow() (time.Time, time.Time) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	return start, start.Add(30 * time.Minute)
}

func TestResolve_NamedStaffWins(t *testing.T) {
	source := &fakeStaffSource{staff: []*model.Staff{
		{ID: 1, Name: "Анна", IsActive: true},
		{ID: 2, Name: "Борис", IsActive: true},
	}}
	svc := NewStaffService(source, zap.NewNop())
	start, end := testWindow()

	res, err := svc.Resolve(context.Background(), &busyStaffChecker{}, &model.Business{ID: 1}, nil, "борис", start, end)
	require.NoError(t, err)
	require.NotNil(t, res.Staff)
	assert.Equal(t, int64(2), res.Staff.ID)
}

func TestResolve_UnknownNameIsNotSilentlyReplaced(t *testing.T) {
	source := &fakeStaffSource{staff: []*model.Staff{
		{ID: 1, Name: "Анна", IsActive: true},
	}}
	svc := NewStaffService(source, zap.NewNop())
	start, end := testWindow()

	res, err := svc.Resolve(context.Background(), &busyStaffChecker{}, &model.Business{ID: 1}, nil, "Виктор", start, end)
	require.NoError(t, err)
	assert.True(t, res.NotFound)
	assert.Nil(t, res.Staff)
}

func TestResolve_DefaultStaffPreferredWhenFree(t *testing.T) {
	source := &fakeStaffSource{staff: []*model.Staff{
		{ID: 1, Name: "Анна", IsActive: true},
		{ID: 2, Name: "Борис", IsActive: true},
	}}
	svc := NewStaffService(source, zap.NewNop())
	start, end := testWindow()

	defaultID := int64(2)
	service := &model.Service{ID: 10, DefaultStaffID: &defaultID}

	res, err := svc.Resolve(context.Background(), &busyStaffChecker{}, &model.Business{ID: 1}, service, "", start, end)
	require.NoError(t, err)
	require.NotNil(t, res.Staff)
	assert.Equal(t, int64(2), res.Staff.ID)
}

func TestResolve_BusyDefaultFallsBackToFirstFree(t *testing.T) {
	source := &fakeStaffSource{staff: []*model.Staff{
		{ID: 1, Name: "Анна", IsActive: true},
		{ID: 2, Name: "Борис", IsActive: true},
	}}
	svc := NewStaffService(source, zap.NewNop())
	start, end := testWindow()

	defaultID := int64(2)
	service := &model.Service{ID: 10, DefaultStaffID: &defaultID}
	checker := &busyStaffChecker{busyStaff: map[int64]bool{2: true}}

	res, err := svc.Resolve(context.Background(), checker, &model.Business{ID: 1}, service, "", start, end)
	require.NoError(t, err)
	require.NotNil(t, res.Staff)
	assert.Equal(t, int64(1), res.Staff.ID)
}

func TestResolve_FirstFreeIsDeterministicByID(t *testing.T) {
	source := &fakeStaffSource{staff: []*model.Staff{
		{ID: 1, Name: "Анна", IsActive: true},
		{ID: 2, Name: "Борис", IsActive: true},
		{ID: 3, Name: "Вера", IsActive: true},
	}}
	svc := NewStaffService(source, zap.NewNop())
	start, end := testWindow()

	checker := &busyStaffChecker{busyStaff: map[int64]bool{1: true}}

	res, err := svc.Resolve(context.Background(), checker, &model.Business{ID: 1}, nil, "", start, end)
	require.NoError(t, err)
	require.NotNil(t, res.Staff)
	assert.Equal(t, int64(2), res.Staff.ID)
}

func TestResolve_NoneFreeWhenEveryoneBusy(t *testing.T) {
	source := &fakeStaffSource{staff: []*model.Staff{
		{ID: 1, Name: "Анна", IsActive: true},
		{ID: 2, Name: "Борис", IsActive: true},
	}}
	svc := NewStaffService(source, zap.NewNop())
	start, end := testWindow()

	checker := &busyStaffChecker{busyStaff: map[int64]bool{1: true, 2: true}}

	res, err := svc.Resolve(context.Background(), checker, &model.Business{ID: 1}, nil, "", start, end)
	require.NoError(t, err)
	assert.True(t, res.NoneFree)
	assert.Nil(t, res.Staff)
}
