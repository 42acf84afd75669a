package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (
	id INT
);

CREATE TABLE b (id INT);
INSERT INTO b VALUES (1)`

	stmts := SplitStatements(script)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.NotContains(t, stmts[0], ";")
	assert.Equal(t, "CREATE TABLE b (id INT)", stmts[1])
	assert.Equal(t, "INSERT INTO b VALUES (1)", stmts[2])
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	body, err := migrationFiles.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)

	stmts := SplitStatements(string(body))
	assert.Len(t, stmts, 11)
	for _, stmt := range stmts {
		assert.Contains(t, stmt, "CREATE TABLE")
	}
}
