package kvstore

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrument_CountsResults(t *testing.T) {
	s := Instrument(NewMemory(), "metrics_test")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte(`{}`)))
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)
	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(operationsTotal.WithLabelValues("metrics_test", "put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(operationsTotal.WithLabelValues("metrics_test", "get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(operationsTotal.WithLabelValues("metrics_test", "get", "not_found")))
}
