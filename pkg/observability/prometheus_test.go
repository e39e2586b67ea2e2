package observability_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codediff/pkg/observability"
)

func TestWritePrometheusTextfile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "codediff.prom")

	cfg := observability.DefaultConfig()
	cfg.MetricsTextfile = path

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	dm, err := observability.NewDiffMetrics(providers.Meter)
	require.NoError(t, err)

	dm.RecordComparison(context.Background(), observability.ComparisonStats{
		Duration: 2 * time.Millisecond,
		Edits:    map[string]int{"insert": 4},
	})

	require.NoError(t, observability.WritePrometheusTextfile(path, providers.Registry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, "codediff_comparisons_total")
	assert.Contains(t, body, "codediff_edits_total")
	assert.Contains(t, body, `kind="insert"`)
	assert.Contains(t, body, "target_info")
}

func TestWritePrometheusTextfile_NoRegistry(t *testing.T) {
	t.Parallel()

	err := observability.WritePrometheusTextfile(filepath.Join(t.TempDir(), "x.prom"), nil)
	require.ErrorIs(t, err, observability.ErrNoRegistry)
}
