package identity

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewStore(db), mock, db
}

func TestStoreGet(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("scoped principal", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "role", "status", "organization_id", "created_at"}).
			AddRow("u-1", "employee", "active", "org-1", now)

		mock.ExpectQuery(`SELECT id, role, status, organization_id, created_at`).
			WithArgs("u-1").
			WillReturnRows(rows)

		p, err := store.Get(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "u-1", p.ID())
		assert.Equal(t, RoleEmployee, p.Role())

		orgID, ok := p.OrganizationID()
		require.True(t, ok)
		assert.Equal(t, "org-1", orgID)
	})

	t.Run("super admin has null organization", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "role", "status", "organization_id", "created_at"}).
			AddRow("sa-1", "super_admin", "active", nil, time.Now())

		mock.ExpectQuery(`SELECT id, role, status, organization_id, created_at`).
			WithArgs("sa-1").
			WillReturnRows(rows)

		p, err := store.Get(ctx, "sa-1")
		require.NoError(t, err)
		assert.True(t, p.IsSuperAdmin())
		_, ok := p.OrganizationID()
		assert.False(t, ok)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, role, status, organization_id, created_at`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreProvision(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO principals`).
		WithArgs(sqlmock.AnyArg(), "customer", "active", "org-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	p, err := store.Provision(context.Background(), "org-1", RoleCustomer)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID())
	assert.Equal(t, RoleCustomer, p.Role())

	require.NoError(t, mock.ExpectationsWereMet())
}

type fakeEmployeeLimiter struct {
	orgs []string
	err  error
}

func (f *fakeEmployeeLimiter) CheckEmployeeLimit(_ context.Context, orgID string) error {
	f.orgs = append(f.orgs, orgID)
	return f.err
}

func TestStoreProvisionConsultsEmployeeLimit(t *testing.T) {
	t.Run("staff blocked at the plan limit", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		limiter := &fakeEmployeeLimiter{err: fmt.Errorf("plan limit exceeded for employees")}
		store.SetEmployeeLimiter(limiter)

		// No INSERT expectation: a blocked provision must not reach the table.
		_, err := store.Provision(context.Background(), "org-1", RoleEmployee)
		require.Error(t, err)
		assert.Equal(t, []string{"org-1"}, limiter.orgs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("staff allowed under the limit", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		limiter := &fakeEmployeeLimiter{}
		store.SetEmployeeLimiter(limiter)

		mock.ExpectExec(`INSERT INTO principals`).
			WithArgs(sqlmock.AnyArg(), "admin", "active", "org-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		_, err := store.Provision(context.Background(), "org-1", RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, []string{"org-1"}, limiter.orgs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("customers bypass the employee limit", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		limiter := &fakeEmployeeLimiter{err: fmt.Errorf("plan limit exceeded for employees")}
		store.SetEmployeeLimiter(limiter)

		mock.ExpectExec(`INSERT INTO principals`).
			WithArgs(sqlmock.AnyArg(), "customer", "active", "org-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		_, err := store.Provision(context.Background(), "org-1", RoleCustomer)
		require.NoError(t, err)
		assert.Empty(t, limiter.orgs)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStoreProvisionRejectsSuperAdmin(t *testing.T) {
	store, _, db := newMockStore(t)
	defer db.Close()

	_, err := store.Provision(context.Background(), "org-1", RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestStoreBootstrapSuperAdmin(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("creates when absent", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, role, status, organization_id, created_at`).
			WithArgs("super_admin").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO principals`).
			WithArgs(sqlmock.AnyArg(), "super_admin", "active", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		p, err := store.BootstrapSuperAdmin(ctx)
		require.NoError(t, err)
		assert.True(t, p.IsSuperAdmin())
	})

	t.Run("idempotent when present", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "role", "status", "organization_id", "created_at"}).
			AddRow("sa-1", "super_admin", "active", nil, time.Now())
		mock.ExpectQuery(`SELECT id, role, status, organization_id, created_at`).
			WithArgs("super_admin").
			WillReturnRows(rows)

		p, err := store.BootstrapSuperAdmin(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sa-1", p.ID())
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSetStatus(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE principals SET status`).
		WithArgs("suspended", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SetStatus(context.Background(), "u-1", StatusSuspended))

	mock.ExpectExec(`UPDATE principals SET status`).
		WithArgs("suspended", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetStatus(context.Background(), "missing", StatusSuspended)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSuspendAllForOrganization(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE principals`).
		WithArgs("suspended", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.SuspendAllForOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateRole(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	err := store.UpdateRole(context.Background(), "u-1", RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrInvalidRole)

	mock.ExpectExec(`UPDATE principals`).
		WithArgs("admin", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateRole(context.Background(), "u-1", RoleAdmin))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListForOrganization(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "role", "status", "organization_id", "created_at"}).
		AddRow("u-1", "admin", "active", "org-1", time.Now()).
		AddRow("u-2", "employee", "suspended", "org-1", time.Now())

	mock.ExpectQuery(`SELECT id, role, status, organization_id, created_at`).
		WithArgs("org-1").
		WillReturnRows(rows)

	principals, err := store.ListForOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, principals, 2)
	assert.Equal(t, RoleAdmin, principals[0].Role())
	assert.False(t, principals[1].IsActive())

	mock.ExpectQuery(`SELECT id, role, status, organization_id, created_at`).
		WithArgs("org-2").
		WillReturnError(fmt.Errorf("database connection error"))

	_, err = store.ListForOrganization(context.Background(), "org-2")
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
