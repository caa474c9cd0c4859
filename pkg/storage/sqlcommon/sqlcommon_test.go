package sqlcommon

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hcengineering/platform-sub028/pkg/logger"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.Equal(t, "default", cfg.Workspace)
		require.Equal(t, 30*time.Second, cfg.ConnectTimeout)
		require.NotNil(t, cfg.Logger)
		require.False(t, cfg.ExportMetrics)
	})

	t.Run("options", func(t *testing.T) {
		log := logger.NewNoopLogger()
		cfg := NewConfig(
			WithWorkspace("ws1"),
			WithUsername("user"),
			WithPassword("secret"),
			WithLogger(log),
			WithMaxOpenConns(10),
			WithMaxIdleConns(5),
			WithConnMaxIdleTime(time.Minute),
			WithConnMaxLifetime(time.Hour),
			WithMetrics(),
		)
		require.Equal(t, "ws1", cfg.Workspace)
		require.Equal(t, "user", cfg.Username)
		require.Equal(t, "secret", cfg.Password)
		require.Same(t, log, cfg.Logger)
		require.Equal(t, 10, cfg.MaxOpenConns)
		require.Equal(t, 5, cfg.MaxIdleConns)
		require.Equal(t, time.Minute, cfg.ConnMaxIdleTime)
		require.Equal(t, time.Hour, cfg.ConnMaxLifetime)
		require.True(t, cfg.ExportMetrics)
	})
}

func TestEncodeAttributes(t *testing.T) {
	t.Run("nil_map_encodes_to_empty_object", func(t *testing.T) {
		data, err := encodeAttributes(nil)
		require.NoError(t, err)
		require.JSONEq(t, `{}`, string(data))
	})

	t.Run("round_trippable_values", func(t *testing.T) {
		data, err := encodeAttributes(map[string]any{"title": "x", "count": float64(2)})
		require.NoError(t, err)
		require.JSONEq(t, `{"title":"x","count":2}`, string(data))
	})
}

func TestHeaderColumn(t *testing.T) {
	tests := []struct {
		field  string
		column string
		ok     bool
	}{
		{field: "_id", column: "id", ok: true},
		{field: "space", column: "space", ok: true},
		{field: "modifiedBy", column: "modified_by", ok: true},
		{field: "_class", ok: false},
		{field: "title", ok: false},
	}
	for _, test := range tests {
		t.Run(test.field, func(t *testing.T) {
			column, ok := headerColumn(test.field)
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.column, column)
		})
	}
}

func TestHandleSQLError(t *testing.T) {
	require.NoError(t, handleSQLError(nil))
	require.NoError(t, handleSQLError(sql.ErrNoRows))

	// Cancellation passes through unwrapped so callers can match it.
	require.ErrorIs(t, handleSQLError(context.Canceled), context.Canceled)

	wrapped := handleSQLError(errors.New("syntax error"))
	require.ErrorContains(t, wrapped, "sql error")
}
