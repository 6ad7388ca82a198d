package persistence

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunMigrationsAppliesSchemaInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS user_tokens").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, RunMigrations(context.Background(), mock, zap.NewNop()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsSkipsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_users.sql", "002_create_user_tokens.sql"}, names)

	for _, name := range names {
		content, err := migrationFiles.ReadFile("migrations/" + name)
		require.NoError(t, err)
		assert.NotEmpty(t, content)
	}
}
