package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

type MockMigrationRunner struct {
	mock.Mock
}

func (m *MockMigrationRunner) Up() error            { return m.Called().Error(0) }
func (m *MockMigrationRunner) Down(steps int) error { return m.Called(steps).Error(0) }
func (m *MockMigrationRunner) Force(v int) error    { return m.Called(v).Error(0) }
func (m *MockMigrationRunner) Close() error         { return nil }

func (m *MockMigrationRunner) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func useMigrationRunner(t *testing.T, m MigrationRunner) {
	t.Helper()
	prev := NewMigrationRunner
	NewMigrationRunner = func(*CLIContext) (MigrationRunner, error) { return m, nil }
	t.Cleanup(func() { NewMigrationRunner = prev })
}

func TestMigrateUp(t *testing.T) {
	m := new(MockMigrationRunner)
	m.On("Up").Return(nil)
	m.On("Version").Return(uint(2), false, nil)
	useMigrationRunner(t, m)

	out, err := execute(t, "-o", "json", "migrate", "up")
	require.NoError(t, err)
	var v MigrationVersion
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, MigrationVersion{Version: 2}, v)
	m.AssertExpectations(t)
}

func TestMigrateDown(t *testing.T) {
	m := new(MockMigrationRunner)
	m.On("Down", 1).Return(nil)
	m.On("Version").Return(uint(1), false, nil)
	useMigrationRunner(t, m)

	out, err := execute(t, "migrate", "down", "1")
	require.NoError(t, err)
	assert.Equal(t, "schema version 1\n", out)
	m.AssertExpectations(t)
}

func TestMigrateDown_BadSteps(t *testing.T) {
	useMigrationRunner(t, new(MockMigrationRunner))
	_, err := execute(t, "migrate", "down", "one")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestMigrateForce_ReportsDirty(t *testing.T) {
	m := new(MockMigrationRunner)
	m.On("Force", 3).Return(nil)
	m.On("Version").Return(uint(3), true, nil)
	useMigrationRunner(t, m)

	out, err := execute(t, "migrate", "force", "3")
	require.NoError(t, err)
	assert.Equal(t, "schema version 3 (dirty)\n", out)
}

func TestMigrateUp_Error(t *testing.T) {
	m := new(MockMigrationRunner)
	m.On("Up").Return(errors.New(errors.ErrCodeDatabaseError, "failed to run migrations"))
	useMigrationRunner(t, m)

	_, err := execute(t, "migrate", "up")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}
