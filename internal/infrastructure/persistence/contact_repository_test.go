package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/contacts"
	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/domain/shared"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

type scopeContract struct {
	descriptors []extension.Descriptor
}

func (c *scopeContract) Name() string        { return "test_scopes" }
func (c *scopeContract) DisplayName() string { return "Test Scopes" }
func (c *scopeContract) Descriptors() []extension.Descriptor {
	return c.descriptors
}

func builtRegistry(t *testing.T, descriptors ...extension.Descriptor) *extension.Registry {
	registry := extension.NewRegistry()
	require.NoError(t, registry.RegisterTarget(contacts.EntityContact))
	if len(descriptors) > 0 {
		require.NoError(t, registry.Register(&scopeContract{descriptors: descriptors}))
	}
	require.NoError(t, registry.Build())
	return registry
}

func TestGormContactRepositoryFindByID(t *testing.T) {
	t.Run("returns contact when found", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE id = \$1`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "email", "is_company", "version"}).
				AddRow(id, int64(42), "Acme Corp", "sales@acme.test", true, 1))

		repo := NewGormContactRepository(db, builtRegistry(t))
		contact, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)

		assert.Equal(t, "Acme Corp", contact.Name)
		assert.Equal(t, int64(42), contact.OrganizationID)
		assert.True(t, contact.IsCompany)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to not found", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE id = \$1`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		repo := NewGormContactRepository(db, builtRegistry(t))
		_, err := repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormContactRepositoryFindAll(t *testing.T) {
	t.Run("native scope filters companies", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "contacts" WHERE is_company = \$1`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE is_company = \$1 ORDER BY name`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "is_company"}).
				AddRow(uuid.New(), int64(42), "Acme Corp", true))

		repo := NewGormContactRepository(db, builtRegistry(t))
		result, total, err := repo.FindAll(context.Background(), contacts.ListFilter{Scope: "companies"})
		require.NoError(t, err)

		assert.Equal(t, int64(1), total)
		require.Len(t, result, 1)
		assert.Equal(t, "Acme Corp", result[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("extension scope resolves through registry", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		registry := builtRegistry(t, extension.Descriptor{
			Target: contacts.EntityContact,
			Scopes: map[string]extension.ScopePredicate{
				"flagged": func(db *gorm.DB) *gorm.DB {
					return db.Where("(extensions ->> 'flagged')::boolean = ?", true)
				},
			},
		})

		mock.ExpectQuery(`SELECT count\(\*\) FROM "contacts" WHERE \(extensions ->> 'flagged'\)::boolean = \$1`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE \(extensions ->> 'flagged'\)::boolean = \$1 ORDER BY name`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		repo := NewGormContactRepository(db, registry)
		result, total, err := repo.FindAll(context.Background(), contacts.ListFilter{Scope: "flagged"})
		require.NoError(t, err)

		assert.Equal(t, int64(0), total)
		assert.Empty(t, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown scope is rejected", func(t *testing.T) {
		db, _, mockDB := setupMockDB(t)
		defer mockDB.Close()

		repo := NewGormContactRepository(db, builtRegistry(t))
		_, _, err := repo.FindAll(context.Background(), contacts.ListFilter{Scope: "nonexistent"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNKNOWN_SCOPE", domainErr.Code)
	})

	t.Run("search matches name and email", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "contacts" WHERE name ILIKE \$1 OR email ILIKE \$2`).
			WithArgs("%acme%", "%acme%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE name ILIKE \$1 OR email ILIKE \$2 ORDER BY name`).
			WithArgs("%acme%", "%acme%").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		repo := NewGormContactRepository(db, builtRegistry(t))
		_, _, err := repo.FindAll(context.Background(), contacts.ListFilter{Search: "acme"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("paginates with limit and offset", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "contacts"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
		mock.ExpectQuery(`SELECT \* FROM "contacts" ORDER BY name LIMIT \$1 OFFSET \$2`).
			WithArgs(10, 20).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		repo := NewGormContactRepository(db, builtRegistry(t))
		_, total, err := repo.FindAll(context.Background(), contacts.ListFilter{Limit: 10, Offset: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormContactRepositoryDelete(t *testing.T) {
	t.Run("deletes existing contact", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectExec(`DELETE FROM "contacts" WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewGormContactRepository(db, builtRegistry(t))
		require.NoError(t, repo.Delete(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invisible contact reads as missing", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectExec(`DELETE FROM "contacts" WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewGormContactRepository(db, builtRegistry(t))
		err := repo.Delete(context.Background(), id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
