package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE", "memory")
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--env-file", "testdata-missing.env"))
	err := root.Execute()
	return out.String(), err
}

func TestMigrateOnMemoryStorage(t *testing.T) {
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to do")
}

func TestReconcileOnEmptyStore(t *testing.T) {
	out, err := run(t, "reconcile", "--auto-publish")
	require.NoError(t, err)
	assert.Contains(t, out, `"due": 0`)
	assert.Contains(t, out, `"published": 0`)
}

func TestUserCreateValidates(t *testing.T) {
	_, err := run(t, "user", "create", "--email", "ops@example.com", "--password", "short", "--name", "Ops")
	assert.Error(t, err)

	out, err := run(t, "user", "create", "--email", "ops@example.com", "--password", "Password123", "--name", "Ops", "--role", "evaluator")
	require.NoError(t, err)
	assert.Contains(t, out, "created evaluator ops@example.com")
}

func TestSetRoleRequiresTwoArgs(t *testing.T) {
	_, err := run(t, "user", "set-role", "someone@example.com")
	assert.Error(t, err)
}
