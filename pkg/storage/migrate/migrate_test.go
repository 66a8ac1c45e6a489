package migrate

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, func(context.Context, []Migration) error) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	run := func(ctx context.Context, migrations []Migration) error {
		return Run(ctx, db, "widgets", migrations)
	}
	return mock, run
}

func expectPreamble(mock sqlmock.Sqlmock, versions ...int) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"version"})
	for _, v := range versions {
		rows.AddRow(v)
	}
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WithArgs("widgets").
		WillReturnRows(rows)
}

func TestRunAppliesPendingMigrations(t *testing.T) {
	mock, run := newMock(t)
	migrations := []Migration{
		{Version: 1, Description: "create widgets", SQL: "CREATE TABLE widgets (id INT)"},
		{Version: 2, Description: "index widgets", SQL: "CREATE INDEX idx_widgets ON widgets(id)"},
	}

	expectPreamble(mock)
	for _, m := range migrations {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(m.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs("widgets", m.Version, m.Description).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	require.NoError(t, run(context.Background(), migrations))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSkipsAppliedVersions(t *testing.T) {
	mock, run := newMock(t)
	migrations := []Migration{
		{Version: 1, Description: "create widgets", SQL: "CREATE TABLE widgets (id INT)"},
		{Version: 2, Description: "index widgets", SQL: "CREATE INDEX idx_widgets ON widgets(id)"},
	}

	// Version 1 already recorded: only version 2 executes.
	expectPreamble(mock, 1)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE INDEX idx_widgets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("widgets", 2, "index widgets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, run(context.Background(), migrations))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunIsIdempotentWhenAllApplied(t *testing.T) {
	mock, run := newMock(t)
	migrations := []Migration{
		{Version: 1, Description: "create widgets", SQL: "CREATE TABLE widgets (id INT)"},
	}

	// Second boot: nothing pending, no transaction opened.
	expectPreamble(mock, 1)

	require.NoError(t, run(context.Background(), migrations))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRollsBackFailedMigration(t *testing.T) {
	mock, run := newMock(t)
	migrations := []Migration{
		{Version: 1, Description: "create widgets", SQL: "CREATE TABLE widgets (id INT)"},
	}

	expectPreamble(mock)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE widgets").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := run(context.Background(), migrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widgets migration 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
