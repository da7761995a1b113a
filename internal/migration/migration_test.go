package migration

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (id INT);\n\n  ;CREATE INDEX b ON a (id);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX b ON a (id)"}, stmts)
}

func TestApplyStatementsIsIdempotent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, ApplyStatements(conn))
	require.NoError(t, ApplyStatements(conn))

	for _, table := range []string{"issuers", "clients", "invoices", "invoice_items", "invoice_sequences", "follow_ups", "payment_events", "audit_logs"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}
