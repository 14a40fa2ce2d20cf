package adminapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/sigvault/sigvault/fingerprint"
	"github.com/sigvault/sigvault/storage"
	"github.com/sigvault/sigvault/storage/model"
)

const testSharedSecret = "host-platform-shared-secret"

type testAPI struct {
	app      *fiber.App
	backends model.Backends
}

func newTestAPI(t *testing.T, opts *Options) *testAPI {
	t.Helper()
	if opts == nil {
		opts = &Options{SharedSecret: testSharedSecret}
	}
	store, err := storage.NewStorage(
		storage.Config{
			Driver:  storage.DriverSQLite,
			DataDir: t.TempDir(),
			UsersHash: storage.Argon2idParams{
				Time:        1,
				MemoryKiB:   1024,
				Parallelism: 1,
				KeyLen:      16,
				SaltLen:     8,
			},
		},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	app := fiber.New()
	backends := store.Backends()
	require.NoError(t, Register(app.Group("/api/v1/admin"), backends, opts))
	return &testAPI{
		app:      app,
		backends: backends,
	}
}

// do sends an admin request authenticated with the shared secret or, if
// given, with the username and password in auth
func (a *testAPI) do(t *testing.T, method, path string, body any, auth ...string) (int, []byte) {
	t.Helper()
	authorization := "Bearer " + testSharedSecret
	if len(auth) == 2 {
		authorization = "Basic " + base64.StdEncoding.EncodeToString([]byte(auth[0]+":"+auth[1]))
	}
	return a.request(t, method, path, body, authorization)
}

func (a *testAPI) anonymous(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	return a.request(t, method, path, body, "")
}

func (a *testAPI) request(t *testing.T, method, path string, body any, authorization string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	res, err := a.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, data
}

func (a *testAPI) sign(t *testing.T, pageID, content string, accounts ...string) fingerprint.Fingerprint {
	t.Helper()
	fp := fingerprint.Compute(pageID, "T", content)
	for _, account := range accounts {
		_, err := a.backends.Signatures.PutSignature(context.Background(), fp, pageID, account)
		require.NoError(t, err)
	}
	return fp
}

func TestMacroConfig(t *testing.T) {
	api := newTestAPI(t, nil)
	path := "/api/v1/admin/pages/p1/macros/m1/config"

	status, _ := api.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(t, http.MethodPut, path, `{"signers": 5}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := api.do(
		t, http.MethodPut, path,
		`{"title":"T","content":"C","signers":"u1, u2","inheritPermission":"view","maxSigners":"2"}`,
	)
	require.Equal(t, http.StatusOK, status, string(body))
	var res macroConfigResponse
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, fingerprint.Compute("p1", "T", "C").String(), res.Fingerprint)
	assert.Equal(t, []string{"u1", "u2"}, res.Config.Signers)
	assert.True(t, res.Config.InheritViewers)
	require.NotNil(t, res.Config.MaxSignatures)
	assert.Equal(t, 2, *res.Config.MaxSignatures)

	status, body = api.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, status)
	res = macroConfigResponse{}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "m1", res.MacroID)
	assert.Equal(t, []string{"u1", "u2"}, res.Config.Signers)

	status, _ = api.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = api.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

type wrappingMacroStore struct {
	model.MacroConfigStore
}

func (wrappingMacroStore) Get(_ context.Context, pageID, macroID string) (datatypes.JSON, error) {
	return nil, fmt.Errorf("loading %s/%s: %w", pageID, macroID, model.NotFoundError("gone"))
}

func TestMacroConfigWrappedNotFound(t *testing.T) {
	app := fiber.New()
	require.NoError(
		t, Register(
			app.Group("/api/v1/admin"), model.Backends{MacroConfigs: wrappingMacroStore{}},
			&Options{SharedSecret: testSharedSecret},
		),
	)
	api := &testAPI{app: app}
	status, _ := api.do(t, http.MethodGet, "/api/v1/admin/pages/p1/macros/m1/config", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPageLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	ctx := context.Background()
	api.sign(t, "p1", "v1", "u1", "u2")
	api.sign(t, "p1", "v2", "u1")
	other := api.sign(t, "p2", "v1", "u1")
	require.NoError(t, api.backends.MacroConfigs.Set(ctx, "p1", "m1", datatypes.JSON(`{"title":"T"}`)))

	status, body := api.do(t, http.MethodGet, "/api/v1/admin/pages/p1/contracts", nil)
	require.Equal(t, http.StatusOK, status)
	var contracts []model.ContractSummary
	require.NoError(t, json.Unmarshal(body, &contracts))
	require.Len(t, contracts, 2)
	counts := []int64{contracts[0].SignatureCount, contracts[1].SignatureCount}
	assert.ElementsMatch(t, []int64{2, 1}, counts)

	var count countResponse
	status, body = api.do(t, http.MethodPost, "/api/v1/admin/pages/p1/trash", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &count))
	assert.Equal(t, int64(2), count.Count)

	status, body = api.do(t, http.MethodPost, "/api/v1/admin/pages/p1/trash", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &count))
	assert.Equal(t, int64(0), count.Count)

	status, body = api.do(t, http.MethodPost, "/api/v1/admin/pages/p1/restore", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &count))
	assert.Equal(t, int64(2), count.Count)

	status, body = api.do(t, http.MethodDelete, "/api/v1/admin/pages/p1", nil)
	require.Equal(t, http.StatusOK, status)
	var purged purgeResponse
	require.NoError(t, json.Unmarshal(body, &purged))
	assert.Equal(t, int64(2), purged.Contracts)
	assert.Equal(t, int64(1), purged.MacroConfigs)

	raw, err := api.backends.MacroConfigs.Get(ctx, "p1", "m1")
	require.NoError(t, err)
	assert.Nil(t, raw)
	entity, err := api.backends.Signatures.GetSignature(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, entity, "other pages must not be touched")
}

func TestCleanup(t *testing.T) {
	api := newTestAPI(t, &Options{UsersEnabled: true, RetentionDays: 7, SharedSecret: testSharedSecret})
	api.sign(t, "p1", "v1", "u1")
	api.sign(t, "p1", "v2", "u1")
	_, err := api.backends.Signatures.SetDeleted(context.Background(), "p1")
	require.NoError(t, err)

	status, _ := api.do(t, http.MethodPost, "/api/v1/admin/cleanup?retention_days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = api.do(t, http.MethodPost, "/api/v1/admin/cleanup?retention_days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = api.do(t, http.MethodPost, "/api/v1/admin/cleanup?retention_days=200000", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var count countResponse
	// default retention of 7 days keeps the just deleted contracts
	status, body := api.do(t, http.MethodPost, "/api/v1/admin/cleanup", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &count))
	assert.Equal(t, int64(0), count.Count)

	time.Sleep(10 * time.Millisecond)
	status, body = api.do(t, http.MethodPost, "/api/v1/admin/cleanup?retention_days=0", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &count))
	assert.Equal(t, int64(2), count.Count)
}

func TestUsersAndAuth(t *testing.T) {
	api := newTestAPI(t, &Options{UsersEnabled: true, SharedSecret: testSharedSecret})

	status, _ := api.anonymous(t, http.MethodGet, "/api/v1/admin/users", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.request(t, http.MethodGet, "/api/v1/admin/users", nil, "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, body := api.do(t, http.MethodGet, "/api/v1/admin/users", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, _ = api.do(t, http.MethodPost, "/api/v1/admin/users", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(
		t, http.MethodPost, "/api/v1/admin/users",
		map[string]string{"username": "admin", "password": "s3cret", "displayName": "Admin"},
	)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.NotContains(t, string(body), "s3cret")

	status, _ = api.anonymous(t, http.MethodGet, "/api/v1/admin/users", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(t, http.MethodGet, "/api/v1/admin/users", nil, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(t, http.MethodGet, "/api/v1/admin/users/admin", nil, "admin", "s3cret")
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(
		t, http.MethodPost, "/api/v1/admin/users",
		map[string]string{"username": "admin", "password": "other"}, "admin", "s3cret",
	)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(t, http.MethodGet, "/api/v1/admin/users/nobody", nil, "admin", "s3cret")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do(
		t, http.MethodPut, "/api/v1/admin/users/admin",
		map[string]string{"displayName": "Root"}, "admin", "s3cret",
	)
	require.Equal(t, http.StatusOK, status)
	var u model.User
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "Root", u.DisplayName)

	// openapi stays reachable
	status, _ = api.anonymous(t, http.MethodGet, "/api/v1/admin/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(t, http.MethodDelete, "/api/v1/admin/users/admin", nil, "admin", "s3cret")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = api.anonymous(t, http.MethodGet, "/api/v1/admin/users", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestNoCredentialsConfigured(t *testing.T) {
	api := newTestAPI(t, &Options{UsersEnabled: true})
	path := "/api/v1/admin/pages/p1/macros/m1/config"

	status, _ := api.anonymous(t, http.MethodPut, path, `{"title":"T","content":"C"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(t, http.MethodPut, path, `{"title":"T","content":"C"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.anonymous(t, http.MethodPost, "/api/v1/admin/users", map[string]string{"username": "a", "password": "b"})
	assert.Equal(t, http.StatusUnauthorized, status)

	raw, err := api.backends.MacroConfigs.Get(context.Background(), "p1", "m1")
	require.NoError(t, err)
	assert.Nil(t, raw)

	_, err = api.backends.Users.Create("admin", "s3cret", "")
	require.NoError(t, err)
	status, _ = api.do(t, http.MethodPut, path, `{"title":"T","content":"C"}`, "admin", "s3cret")
	assert.Equal(t, http.StatusOK, status)
}

func TestUsersDisabled(t *testing.T) {
	api := newTestAPI(t, &Options{UsersEnabled: false, SharedSecret: testSharedSecret})
	status, _ := api.do(t, http.MethodGet, "/api/v1/admin/users", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdaptServerURLPort(t *testing.T) {
	tests := []struct {
		in   string
		port int
		want string
	}{
		{"https://sig.example", 8443, "https://sig.example:8443"},
		{"https://sig.example:443/base", 9000, "https://sig.example:9000/base"},
		{"", 9000, ""},
		{"https://sig.example", 0, "https://sig.example"},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, adaptServerURLPort(test.in, test.port))
	}
}
