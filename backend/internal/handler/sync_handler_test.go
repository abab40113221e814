package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"sync-service/backend/internal/mutation"
	"sync-service/backend/internal/mysqldb"
	"sync-service/backend/internal/mysqldb/dbtest"
	"sync-service/backend/internal/syncservice"
)

func newRouter(svc SyncService, userID uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := func(c *gin.Context) {
		if userID != 0 {
			c.Set("userId", userID)
		}
		c.Next()
	}
	h := NewSyncHandler(svc)
	r.POST("/sync/push", auth, h.Push())
	r.POST("/sync/pull", auth, h.Pull())
	r.GET("/healthz", Healthz)
	return r
}

func do(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body.Code
}

func realService(t *testing.T, missing ...uint64) *syncservice.Service {
	versions := mysqldb.NewVersionStore()
	return syncservice.NewService(syncservice.Options{
		Stores:     dbtest.Stores(t, missing...),
		Versions:   versions,
		Clients:    mysqldb.NewClientRegistry(),
		Changes:    mysqldb.NewChangeReader(),
		Dispatcher: mutation.NewDispatcher(versions, mysqldb.NewTombstoneLog()),
	})
}

func TestPushPull_RoundTrip(t *testing.T) {
	r := newRouter(realService(t), 1)

	w := do(r, "/sync/push", `{"client_group_id":"g1","mutations":[
		{"id":1,"client_id":"c1","name":"createNote","args":{"id":"n1","name":"first"},"timestamp":1710000000000},
		{"id":2,"client_id":"c1","name":"createTag","args":{"id":"t1","name":"swing","color":"#abc"},"timestamp":1710000000001}]}`)
	assert.Equal(t, w.Code, http.StatusOK)
	assert.Equal(t, w.Body.String(), "{}")

	w = do(r, "/sync/pull", `{"client_group_id":"g1","cookie":null}`)
	assert.Equal(t, w.Code, http.StatusOK)
	var resp syncservice.PullResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode pull: %v", err)
	}
	assert.Equal(t, resp.Cookie, uint64(1))
	assert.Equal(t, resp.LastMutationIDChanges["c1"], uint64(2))
	if len(resp.Patch) != 3 || resp.Patch[0].Op != syncservice.OpClear {
		t.Fatalf("patch = %+v", resp.Patch)
	}

	var raw map[string]json.RawMessage
	_ = json.Unmarshal(w.Body.Bytes(), &raw)
	for _, k := range []string{"cookie", "last_mutation_id_changes", "patch"} {
		if _, ok := raw[k]; !ok {
			t.Fatalf("pull response missing %q: %s", k, w.Body.String())
		}
	}
}

func TestPush_Errors(t *testing.T) {
	r := newRouter(realService(t, 9), 1)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{"client_group_id":`, 400, "BAD_REQUEST"},
		{"missing group", `{"mutations":[]}`, 400, "BAD_REQUEST"},
		{"missing client id", `{"client_group_id":"g1","mutations":[{"id":1,"name":"createNote","args":{}}]}`, 400, "BAD_REQUEST"},
		{"unknown mutation", `{"client_group_id":"g1","mutations":[{"id":1,"client_id":"c1","name":"frobulate","args":{}}]}`, 400, "UNKNOWN_MUTATION"},
		{"malformed args", `{"client_group_id":"g1","mutations":[{"id":1,"client_id":"c1","name":"createNote","args":{"name":42}}]}`, 400, "MALFORMED_ARGUMENTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, "/sync/push", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			assert.Equal(t, errorCode(t, w), tt.code)
		})
	}

	// frobulate 之后什么都没写进去
	w := do(r, "/sync/pull", `{"client_group_id":"g1","cookie":0}`)
	assert.Equal(t, w.Code, http.StatusOK)
	var resp syncservice.PullResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, resp.Cookie, uint64(0))
	assert.Equal(t, len(resp.Patch), 0)
}

func TestTenantStoreMissing(t *testing.T) {
	r := newRouter(realService(t, 9), 9)
	w := do(r, "/sync/pull", `{"client_group_id":"g1"}`)
	assert.Equal(t, w.Code, http.StatusNotFound)
	assert.Equal(t, errorCode(t, w), "TENANT_STORE_NOT_FOUND")
}

type failingService struct{ err error }

func (f failingService) Push(ctx context.Context, userID uint64, req syncservice.PushRequest) (syncservice.PushResult, error) {
	return syncservice.PushResult{}, f.err
}

func (f failingService) Pull(ctx context.Context, userID uint64, req syncservice.PullRequest) (*syncservice.PullResponse, error) {
	return nil, f.err
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{syncservice.ErrUnauthorized, 401, "UNAUTHENTICATED"},
		{fmt.Errorf("%w: \"x\"", syncservice.ErrUnknownMutation), 400, "UNKNOWN_MUTATION"},
		{fmt.Errorf("%w: field \"name\"", syncservice.ErrMalformedArguments), 400, "MALFORMED_ARGUMENTS"},
		{syncservice.ErrTenantStoreNotFound, 404, "TENANT_STORE_NOT_FOUND"},
		{fmt.Errorf("%w: deadlock", syncservice.ErrStorage), 500, "STORAGE_ERROR"},
		{errors.New("anything else"), 500, "STORAGE_ERROR"},
	}
	for _, tt := range tests {
		r := newRouter(failingService{tt.err}, 1)
		for _, path := range []string{"/sync/push", "/sync/pull"} {
			w := do(r, path, `{"client_group_id":"g1"}`)
			if w.Code != tt.status {
				t.Fatalf("%s %v: status = %d, want %d", path, tt.err, w.Code, tt.status)
			}
			assert.Equal(t, errorCode(t, w), tt.code)
		}
	}
}

func TestMissingUser(t *testing.T) {
	r := newRouter(failingService{}, 0)
	w := do(r, "/sync/push", `{"client_group_id":"g1"}`)
	assert.Equal(t, w.Code, http.StatusUnauthorized)
}

func TestHealthz(t *testing.T) {
	r := newRouter(failingService{}, 0)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, w.Code, http.StatusOK)
}
