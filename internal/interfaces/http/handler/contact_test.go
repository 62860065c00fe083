package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizsuite/backend/internal/application/access"
	appcontact "github.com/bizsuite/backend/internal/application/contact"
	"github.com/bizsuite/backend/internal/domain/contacts"
	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/cache"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
)

type fakeContactRepo struct {
	contacts map[uuid.UUID]*contacts.Contact
	lastList contacts.ListFilter
	listErr  error
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: make(map[uuid.UUID]*contacts.Contact)}
}

func (r *fakeContactRepo) FindByID(_ context.Context, id uuid.UUID) (*contacts.Contact, error) {
	if c, ok := r.contacts[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeContactRepo) FindAll(_ context.Context, filter contacts.ListFilter) ([]*contacts.Contact, int64, error) {
	r.lastList = filter
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	all := make([]*contacts.Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		all = append(all, c)
	}
	return all, int64(len(all)), nil
}

func (r *fakeContactRepo) Save(_ context.Context, c *contacts.Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.contacts[c.ID] = c
	return nil
}

func (r *fakeContactRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.contacts[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.contacts, id)
	return nil
}

type stubGroupRepo struct{}

func (stubGroupRepo) FindByID(context.Context, uuid.UUID) (*identity.PermissionGroup, error) {
	return nil, shared.ErrNotFound
}

func (stubGroupRepo) FindByIDs(context.Context, []uuid.UUID) ([]*identity.PermissionGroup, error) {
	return nil, nil
}

func (stubGroupRepo) FindByCode(context.Context, string) (*identity.PermissionGroup, error) {
	return nil, shared.ErrNotFound
}

func (stubGroupRepo) FindAll(context.Context) ([]*identity.PermissionGroup, error) { return nil, nil }
func (stubGroupRepo) Save(context.Context, *identity.PermissionGroup) error        { return nil }
func (stubGroupRepo) Delete(context.Context, uuid.UUID) error                      { return nil }

func builtRegistry(t *testing.T) *extension.Registry {
	t.Helper()
	registry := extension.NewRegistry()
	require.NoError(t, registry.RegisterTarget(contacts.EntityContact))
	require.NoError(t, registry.Build())
	return registry
}

// contactRouter mounts the contact handler behind a middleware that
// injects a platform admin principal, standing in for the JWT layer.
func contactRouter(t *testing.T, repo contacts.Repository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := builtRegistry(t)
	svc := appcontact.NewContactService(repo, registry, nil, zap.NewNop())
	permissions := access.NewPermissionService(stubGroupRepo{}, cache.NewInMemoryGroupCache(), zap.NewNop())
	h := NewContactHandler(svc, permissions)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		principal := identity.Principal{
			UserID:          uuid.New(),
			Username:        "admin",
			OrganizationID:  42,
			IsPlatformAdmin: true,
		}
		c.Set(middleware.PrincipalKey, principal)
		ctx, _ := logger.WithTenancy(c.Request.Context(), logger.FromContext(c.Request.Context()), 42, 0, true)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	api := engine.Group("/api/v1")
	h.RegisterRoutes(api)
	return engine
}

func mustContact(t *testing.T, name string) *contacts.Contact {
	t.Helper()
	contact, err := contacts.NewContact(42, name)
	require.NoError(t, err)
	return contact
}

func decodeBody(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(body.Bytes(), &payload))
	return payload
}

func TestContactHandlerCreate(t *testing.T) {
	t.Run("creates a contact", func(t *testing.T) {
		repo := newFakeContactRepo()
		engine := contactRouter(t, repo)

		body := `{"name": "Acme Corp", "isCompany": true, "email": "info@acme.test"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		payload := decodeBody(t, rec.Body)
		data := payload["data"].(map[string]any)
		assert.Equal(t, "Acme Corp", data["name"])
		assert.Equal(t, float64(42), data["organization_id"])
		require.Len(t, repo.contacts, 1)
	})

	t.Run("rejects a body without a name", func(t *testing.T) {
		engine := contactRouter(t, newFakeContactRepo())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps undeclared extension fields to 400", func(t *testing.T) {
		engine := contactRouter(t, newFakeContactRepo())

		body := `{"name": "Acme", "extensions": {"no_such_field": 1}}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		payload := decodeBody(t, rec.Body)
		errInfo := payload["error"].(map[string]any)
		assert.Equal(t, "UNKNOWN_EXTENSION_FIELD", errInfo["code"])
	})
}

func TestContactHandlerGet(t *testing.T) {
	t.Run("returns an existing contact", func(t *testing.T) {
		repo := newFakeContactRepo()
		contact := mustContact(t, "Acme Corp")
		require.NoError(t, repo.Save(context.Background(), contact))
		engine := contactRouter(t, repo)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts/"+contact.ID.String(), nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		payload := decodeBody(t, rec.Body)
		data := payload["data"].(map[string]any)
		assert.Equal(t, "Acme Corp", data["name"])
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		engine := contactRouter(t, newFakeContactRepo())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		payload := decodeBody(t, rec.Body)
		errInfo := payload["error"].(map[string]any)
		assert.Equal(t, "NOT_FOUND", errInfo["code"])
	})

	t.Run("malformed id maps to 400", func(t *testing.T) {
		engine := contactRouter(t, newFakeContactRepo())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestContactHandlerList(t *testing.T) {
	t.Run("passes scope and pagination to the repository", func(t *testing.T) {
		repo := newFakeContactRepo()
		require.NoError(t, repo.Save(context.Background(), mustContact(t, "Acme Corp")))
		engine := contactRouter(t, repo)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts?scope=companies&page=3&page_size=10", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "companies", repo.lastList.Scope)
		assert.Equal(t, 10, repo.lastList.Limit)
		assert.Equal(t, 20, repo.lastList.Offset)

		payload := decodeBody(t, rec.Body)
		meta := payload["meta"].(map[string]any)
		assert.Equal(t, float64(1), meta["total"])
		assert.Equal(t, float64(3), meta["page"])
	})

	t.Run("unknown scope maps to 400", func(t *testing.T) {
		repo := newFakeContactRepo()
		repo.listErr = shared.NewDomainError("UNKNOWN_SCOPE", "unknown scope")
		engine := contactRouter(t, repo)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts?scope=bogus", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		payload := decodeBody(t, rec.Body)
		errInfo := payload["error"].(map[string]any)
		assert.Equal(t, "UNKNOWN_SCOPE", errInfo["code"])
	})
}

func TestContactHandlerDelete(t *testing.T) {
	repo := newFakeContactRepo()
	contact := mustContact(t, "Acme Corp")
	require.NoError(t, repo.Save(context.Background(), contact))
	engine := contactRouter(t, repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/contacts/"+contact.ID.String(), nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.contacts)
}
