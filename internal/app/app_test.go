package app

import (
	"context"
	"path/filepath"
	"testing"

	"taxtracker/internal/config"
	"taxtracker/internal/model"
	"taxtracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, values map[string]string) config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(k string) string { return values[k] })
	require.NoError(t, err)
	return cfg
}

func TestNew_Memory(t *testing.T) {
	a, err := New(testConfig(t, nil), nil, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Nil(t, a.Hub)
	assert.Equal(t, model.DefaultIdentity(), a.Sessions.Me(context.Background()))

	_, err = a.Calculations.Calculate(context.Background(), service.CalculateRequest{Income: "1000000", Month: "January", Year: 2026})
	require.NoError(t, err)
	pending, err := a.Calculations.Pending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30000", pending.TaxPayable.String())
}

func TestNew_SQLitePersistsAcrossOpens(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"STORAGE_DRIVER": "sqlite",
		"SQLITE_PATH":    filepath.Join(t.TempDir(), "state.db"),
	})

	first, err := New(cfg, nil, Options{Notifications: true})
	require.NoError(t, err)
	assert.NotNil(t, first.Hub)
	_, err = first.Store.SetIdentity(model.UpstreamLoginResponse{Token: "tok-1", User: model.Fields{"id": "u1"}})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, second.Close()) })
	assert.Equal(t, "u1", second.Store.Identity().UserID)
}

func TestNew_BadRulesetFile(t *testing.T) {
	cfg := testConfig(t, map[string]string{"RULESET_FILE": filepath.Join(t.TempDir(), "missing.yaml")})
	_, err := New(cfg, nil, Options{})
	assert.Error(t, err)
}
