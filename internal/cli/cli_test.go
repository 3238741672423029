package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"medical-access-ledger/internal/cli"
	"medical-access-ledger/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	patientID = "0x00000000000000000000000000000000000000a1"
	doctorID  = "0x00000000000000000000000000000000000000d1"
)

func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()

	root := cli.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--server", server}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestLedgerctl_Flow(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	out, err := run(t, ts.URL, "--as", patientID, "record", "put", "--name", "Jane Doe", "--age", "40", "--history", "Asthma")
	require.NoError(t, err)
	assert.Contains(t, out, `"sequence": 1`)

	_, err = run(t, ts.URL, "--as", patientID, "access", "grant", doctorID)
	require.NoError(t, err)

	out, err = run(t, ts.URL, "--as", patientID, "access", "list")
	require.NoError(t, err)
	var doctors []string
	require.NoError(t, json.Unmarshal([]byte(out), &doctors))
	assert.Equal(t, []string{doctorID}, doctors)

	out, err = run(t, ts.URL, "--as", doctorID, "record", "get", patientID)
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe")

	_, err = run(t, ts.URL, "--as", patientID, "access", "revoke", doctorID)
	require.NoError(t, err)

	_, err = run(t, ts.URL, "--as", doctorID, "record", "get", patientID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403: forbidden")

	out, err = run(t, ts.URL, "--as", patientID, "events", "range", "--from", "2", "--to", "3")
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "AccessGranted", items[0]["kind"])
	assert.Equal(t, "RecordAccessed", items[1]["kind"])

	out, err = run(t, ts.URL, "--as", patientID, "events", "patient", "--limit", "1")
	require.NoError(t, err)
	items = nil
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "AccessRevoked", items[0]["kind"])
}

func TestLedgerctl_ArgumentErrors(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	_, err := run(t, ts.URL, "access", "grant", "not-an-address")
	assert.Error(t, err)

	_, err = run(t, ts.URL, "record", "get")
	assert.ErrorContains(t, err, "patient is required")

	_, err = run(t, ts.URL, "--as", patientID, "record", "put", "--name", "Jane")
	assert.Error(t, err)
}
