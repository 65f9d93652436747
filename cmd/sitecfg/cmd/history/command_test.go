package history_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/sitecfg"
	"github.com/agentstation/sitecfg/cmd/sitecfg/cmd/history"
	"github.com/agentstation/sitecfg/internal/cmd/application"
	"github.com/agentstation/sitecfg/internal/snapshot"
	"github.com/agentstation/sitecfg/internal/store"
	"github.com/agentstation/sitecfg/pkg/sites"
)

func newApp(t *testing.T, format string, runs int) *application.Mock {
	t.Helper()
	provider := snapshot.NewStatic(sites.SiteEntry{
		Location: "file:///opt/app/",
		Site:     sites.NewSite("file:///opt/app/", sites.NewFeatureReference("a", "1.0.0", "")),
	})
	client, err := sitecfg.New(
		sitecfg.WithSnapshotProvider(provider),
		sitecfg.WithStore(store.NewMemoryStore()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for range runs {
		_, err := client.Reconcile(context.Background())
		require.NoError(t, err)
	}

	return &application.Mock{
		ClientFunc:       func() (sitecfg.Client, error) { return client, nil },
		OutputFormatFunc: func() string { return format },
	}
}

func TestHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, history.Execute(context.Background(), newApp(t, "table", 0), &buf, history.DefaultLimit))
	assert.Contains(t, buf.String(), "No configurations saved")
}

func TestHistoryJSONLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, history.Execute(context.Background(), newApp(t, "json", 3), &buf, 2))

	var records []sites.ConfigurationRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, history.Execute(context.Background(), newApp(t, "table", 2), &buf, 0))
	assert.Contains(t, strings.ToUpper(buf.String()), "DIGEST")
}

func TestNegativeLimit(t *testing.T) {
	cmd := history.NewCommand(&application.Mock{})
	cmd.SetArgs([]string{"--limit", "-1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
