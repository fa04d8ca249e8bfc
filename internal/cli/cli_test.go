package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"taxtracker/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	submits atomic.Int32
}

func (f *fakeRemote) serve(t *testing.T) *httptest.Server {
	write := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/sign_in", func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			write(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid credentials"})
			return
		}
		write(w, http.StatusOK, map[string]any{
			"success": true,
			"token":   "tok-1",
			"user":    map[string]any{"id": "u1", "name": "Grace", "role": "business"},
		})
	})
	mux.HandleFunc("POST /api/tax/compute/u1", func(w http.ResponseWriter, r *http.Request) {
		f.submits.Add(1)
		write(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"id": "rec-9"}})
	})
	mux.HandleFunc("GET /api/tax/records/u1", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{
			{"_id": "rec-9", "month": "March", "taxYear": 2026, "taxType": "CIT", "turnover": 30000000, "taxAmount": 9000000},
		}})
	})
	mux.HandleFunc("GET /api/tax/summary/u1", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"totalTax": 9000000}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	env map[string]string
}

func newHarness(t *testing.T) (*harness, *fakeRemote) {
	remote := &fakeRemote{}
	srv := remote.serve(t)
	return &harness{env: map[string]string{
		"API_BASE_URL":   srv.URL + "/api",
		"STORAGE_DRIVER": "sqlite",
		"SQLITE_PATH":    filepath.Join(t.TempDir(), "state.db"),
	}}, remote
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{getenv: func(k string) string { return h.env[k] }})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader("secret\n"))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"login", "logout", "whoami", "compute", "pending", "submit", "history", "pay", "reminders", "rulesets"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	h, _ := newHarness(t)
	_, err := h.run(t, "--format", "yaml", "whoami")
	assert.ErrorContains(t, err, "invalid format")
}

func TestSessionCommands(t *testing.T) {
	h, _ := newHarness(t)

	out, err := h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	_, err = h.run(t, "login", "--email", "grace@example.com", "--password", "wrong")
	assert.EqualError(t, err, "Invalid credentials")

	// password from stdin
	out, err = h.run(t, "login", "--email", "grace@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Grace (business account, user u1)")

	out, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Grace")

	out, err = h.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	out, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestComputeSubmitHistory(t *testing.T) {
	h, remote := newHarness(t)
	_, err := h.run(t, "login", "--email", "grace@example.com", "--password", "secret")
	require.NoError(t, err)

	out, err := h.run(t, "compute", "--income", "30,000,000", "--month", "March", "--year", "2026")
	require.NoError(t, err)
	assert.Contains(t, out, "9000000.00")
	assert.Contains(t, out, "30.00%")
	assert.Contains(t, out, "not saved")

	out, err = h.run(t, "submit")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved as record rec-9")

	// a new process still sees the saved flag
	out, err = h.run(t, "submit")
	require.NoError(t, err)
	assert.Contains(t, out, "Already saved as record rec-9")
	assert.Equal(t, int32(1), remote.submits.Load())

	out, err = h.run(t, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "saved as record rec-9")

	out, err = h.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "rec-9")
	assert.Contains(t, out, "March 2026")
	assert.Contains(t, out, "unpaid")

	out, err = h.run(t, "history", "--summary", "--remote")
	require.NoError(t, err)
	assert.Contains(t, out, "totalTax:")
	assert.Contains(t, out, "9000000")

	out, err = h.run(t, "pending", "--discard")
	require.NoError(t, err)
	assert.Contains(t, out, "discarded")

	out, err = h.run(t, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending calculation")

	_, err = h.run(t, "submit")
	assert.Error(t, err)
}

func TestComputeJSON(t *testing.T) {
	h, _ := newHarness(t)

	out, err := h.run(t, "--format", "json", "compute", "--income", "1000000", "--month", "jan", "--year", "2026")
	require.NoError(t, err)

	var resp struct {
		Status string                  `json:"status"`
		Data   model.CalculationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "30000", resp.Data.TaxPayable.String())
	assert.Equal(t, model.TaxpayerIndividual, resp.Data.Input.TaxpayerClass)
	assert.Equal(t, "January", resp.Data.Input.Period.Month)
}

func TestSubmitWithoutLogin(t *testing.T) {
	h, remote := newHarness(t)
	_, err := h.run(t, "compute", "--income", "1000000", "--month", "January", "--year", "2026")
	require.NoError(t, err)

	out, err := h.run(t, "--format", "json", "submit")
	assert.ErrorContains(t, err, "unauthenticated")
	assert.Contains(t, out, `"status":"error"`)
	assert.Equal(t, int32(0), remote.submits.Load())
}

func TestRulesets(t *testing.T) {
	h, _ := newHarness(t)

	out, err := h.run(t, "rulesets")
	require.NoError(t, err)
	assert.Contains(t, out, "pit-2026.1")
	assert.Contains(t, out, "up to 800000: 0%")
	assert.Contains(t, out, "and above: 25%")
	assert.Contains(t, out, "below 25000000: 20%")
}
