package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/infrastructure/sessionctx"
)

const setConfigPattern = `SELECT set_config\(\$1, \$2, false\), set_config\(\$3, \$4, false\), set_config\(\$5, \$6, false\)`

func securityRouter(propagator *sessionctx.Propagator, db *gorm.DB, principal identity.Principal, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(PrincipalKey, principal)
		c.Next()
	})
	router.Use(SecurityContext(propagator, db))
	router.GET("/data", handler)
	return router
}

func TestSecurityContextEnabled(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(setConfigPattern).
		WithArgs("app.organization_id", "42", "app.partner_id", "0", "app.is_platform_admin", "false").
		WillReturnRows(sqlmock.NewRows([]string{"set_config", "set_config", "set_config"}).AddRow("", "", ""))
	mock.ExpectQuery(`SELECT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(setConfigPattern).
		WithArgs("app.organization_id", "0", "app.partner_id", "0", "app.is_platform_admin", "false").
		WillReturnRows(sqlmock.NewRows([]string{"set_config", "set_config", "set_config"}).AddRow("", "", ""))
	mock.ExpectCommit()

	propagator := sessionctx.NewPropagator(true)
	principal := identity.Principal{UserID: uuid.New(), OrganizationID: 42}

	router := securityRouter(propagator, db, principal, func(c *gin.Context) {
		tx, ok := sessionctx.DBFromContext(c.Request.Context())
		require.True(t, ok)

		var one int
		require.NoError(t, tx.Raw("SELECT 1").Scan(&one).Error)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityContextDisabledSkipsTransaction(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	propagator := sessionctx.NewPropagator(false)
	principal := identity.Principal{UserID: uuid.New(), OrganizationID: 42}

	router := securityRouter(propagator, db, principal, func(c *gin.Context) {
		conn, ok := sessionctx.DBFromContext(c.Request.Context())
		require.True(t, ok)

		var one int
		require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityContextEstablishFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(setConfigPattern).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	propagator := sessionctx.NewPropagator(true)
	principal := identity.Principal{UserID: uuid.New(), OrganizationID: 42}

	reached := false
	router := securityRouter(propagator, db, principal, func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.False(t, reached)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "CONTEXT_PROPAGATION_FAILED")
	assert.NoError(t, mock.ExpectationsWereMet())
}
