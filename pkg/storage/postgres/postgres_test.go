package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hcengineering/platform-sub028/pkg/storage/sqlcommon"
)

func TestInitDB(t *testing.T) {
	t.Run("open_is_lazy", func(t *testing.T) {
		// sql.Open does not dial, so a well-formed URI for an unreachable
		// host still yields a handle.
		db, err := initDB("postgres://localhost:5432/platform", sqlcommon.NewConfig())
		require.NoError(t, err)
		require.NoError(t, db.Close())
	})

	t.Run("credential_overwrite_requires_parseable_uri", func(t *testing.T) {
		_, err := initDB("postgres://local\x00host/db", sqlcommon.NewConfig(
			sqlcommon.WithUsername("user"),
		))
		require.ErrorContains(t, err, "parse postgres connection uri")
	})

	t.Run("pool_settings_applied", func(t *testing.T) {
		db, err := initDB("postgres://localhost:5432/platform", sqlcommon.NewConfig(
			sqlcommon.WithMaxOpenConns(7),
		))
		require.NoError(t, err)
		defer db.Close()
		require.Equal(t, 7, db.Stats().MaxOpenConnections)
	})
}
