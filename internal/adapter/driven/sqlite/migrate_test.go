package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, RunMigrations(db.Writer))

	version, dirty, err := SchemaVersion(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}
