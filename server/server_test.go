package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Daskott/favdial/blobstore"
	"github.com/Daskott/favdial/favorites"
	"github.com/Daskott/favdial/recordstore"
	"github.com/Daskott/favdial/shared"
	"github.com/Daskott/favdial/work"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	manager *favorites.Manager
	blobs   *blobstore.Store
}

func newTestServer(t *testing.T) *testServer {
	dir := t.TempDir()

	slot, err := recordstore.NewFileSlot(filepath.Join(dir, "favorites.json"))
	require.NoError(t, err)
	blobs, err := blobstore.New(filepath.Join(dir, "avatars"), nil)
	require.NoError(t, err)

	manager, err := favorites.New(favorites.Options{Records: recordstore.New(slot, 0, nil), Blobs: blobs})
	require.NoError(t, err)
	require.NoError(t, manager.Load(context.Background()))

	ts := &testServer{Server: httptest.NewServer(New(manager, nil).Handler()), manager: manager, blobs: blobs}
	t.Cleanup(func() {
		ts.Close()
		manager.Close()
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body string) (int, ResponsePayload) {
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload := ResponsePayload{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func (ts *testServer) addFavorite(t *testing.T, body string) string {
	status, payload := ts.do(t, "POST", "/api/v1/favorites", body)
	require.Equal(t, http.StatusCreated, status, payload.Errors)
	return payload.Data.(map[string]interface{})["id"].(string)
}

func TestFavoritesAPI(t *testing.T) {
	ts := newTestServer(t)

	first := ts.addFavorite(t, `{"contactIdentifier": "A", "phoneNumber": "555-0100"}`)
	second := ts.addFavorite(t, `{"contactIdentifier": "A", "phoneNumber": "555-0100",
		"communicationMethod": "textMessage", "communicationApp": "whatsapp"}`)

	testCases := []struct {
		description    string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedData   interface{}
	}{
		{description: "target of native dialer", method: "GET", path: "/api/v1/favorites/" + first + "/target",
			expectedStatus: http.StatusOK, expectedData: map[string]interface{}{"target": "tel:555-0100"}},
		{description: "target of messaging app", method: "GET", path: "/api/v1/favorites/" + second + "/target",
			expectedStatus: http.StatusOK, expectedData: map[string]interface{}{"target": "whatsapp://send?phone=5550100"}},
		{description: "unknown favorite", method: "GET", path: "/api/v1/favorites/missing",
			expectedStatus: http.StatusNotFound},
		{description: "invalid favorite", method: "POST", path: "/api/v1/favorites",
			body: `{"contactIdentifier": "B"}`, expectedStatus: http.StatusBadRequest},
		{description: "unknown field", method: "POST", path: "/api/v1/favorites",
			body: `{"contactIdentifier": "B", "phoneNumber": "1", "nickname": "b"}`, expectedStatus: http.StatusBadRequest},
		{description: "move out of range", method: "PUT", path: "/api/v1/favorites/" + first + "/position",
			body: `{"index": 5}`, expectedStatus: http.StatusBadRequest},
		{description: "move without index", method: "PUT", path: "/api/v1/favorites/" + first + "/position",
			body: `{}`, expectedStatus: http.StatusBadRequest},
		{description: "move", method: "PUT", path: "/api/v1/favorites/" + second + "/position",
			body: `{"index": 0}`, expectedStatus: http.StatusOK},
		{description: "invalid routing", method: "PUT", path: "/api/v1/favorites/" + first + "/routing",
			body: `{"communicationMethod": "videoCall", "communicationApp": "pager"}`, expectedStatus: http.StatusBadRequest},
		{description: "routing", method: "PUT", path: "/api/v1/favorites/" + first + "/routing",
			body: `{"communicationMethod": "videoCall", "communicationApp": "facetime"}`, expectedStatus: http.StatusOK},
		{description: "rename", method: "PUT", path: "/api/v1/favorites/" + first + "/name",
			body: `{"displayName": "Mum"}`, expectedStatus: http.StatusOK},
		{description: "no avatar", method: "GET", path: "/api/v1/favorites/" + first + "/avatar",
			expectedStatus: http.StatusNotFound},
		{description: "health", method: "GET", path: "/health",
			expectedStatus: http.StatusOK, expectedData: map[string]interface{}{"state": "loaded"}},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			status, payload := ts.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.expectedStatus, status, payload.Errors)
			assert.Equal(t, status < 400, payload.Success)
			if tc.expectedData != nil {
				assert.Equal(t, tc.expectedData, payload.Data)
			}
		})
	}

	collection, err := ts.manager.List()
	require.NoError(t, err)
	require.Len(t, collection, 2)
	assert.Equal(t, second, collection[0].ID)
	assert.Equal(t, "Mum", collection[1].DisplayName)
	assert.Equal(t, "facetime://5550100", mustResolve(t, ts.manager, first))

	status, _ := ts.do(t, "DELETE", "/api/v1/favorites/"+first, "")
	assert.Equal(t, http.StatusOK, status)

	status, payload := ts.do(t, "GET", "/api/v1/favorites", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, payload.Data, 1)
}

func mustResolve(t *testing.T, manager *favorites.Manager, id string) string {
	target, err := manager.Resolve(id)
	require.NoError(t, err)
	return target
}

func TestAvatarAPI(t *testing.T) {
	ts := newTestServer(t)
	id := ts.addFavorite(t, `{"contactIdentifier": "A", "phoneNumber": "1"}`)
	avatarPath := "/api/v1/favorites/" + id + "/avatar"

	status, _ := ts.do(t, "PUT", avatarPath, "\xff\xd8jpeg")
	require.Equal(t, http.StatusOK, status)

	resp, err := ts.Client().Get(ts.URL + avatarPath)
	require.NoError(t, err)
	data, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "\xff\xd8jpeg", string(data))

	status, _ = ts.do(t, "PUT", avatarPath, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, "PUT", avatarPath, string(bytes.Repeat([]byte{1}, MAX_AVATAR_UPLOAD+1)))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, "DELETE", avatarPath, "")
	assert.Equal(t, http.StatusOK, status)

	keys, err := ts.blobs.ListKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRefreshAndGCAPI(t *testing.T) {
	ts := newTestServer(t)
	id := ts.addFavorite(t, `{"contactIdentifier": "A", "phoneNumber": "1", "displayName": "Ann"}`)

	// No directory configured: the refresh fails soft
	status, payload := ts.do(t, "POST", "/api/v1/favorites/"+id+"/refresh", "")
	require.Equal(t, http.StatusOK, status, payload.Errors)
	assert.Equal(t, false, payload.Data.(map[string]interface{})["directoryReached"])

	orphan, err := ts.blobs.Put([]byte("orphan"), "nobody")
	require.NoError(t, err)

	status, payload = ts.do(t, "POST", "/api/v1/gc", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{orphan}, payload.Data.(map[string]interface{})["deleted"])
}

func TestServiceUnavailableBeforeLoad(t *testing.T) {
	dir := t.TempDir()
	slot, err := recordstore.NewFileSlot(filepath.Join(dir, "favorites.json"))
	require.NoError(t, err)
	blobs, err := blobstore.New(filepath.Join(dir, "avatars"), nil)
	require.NoError(t, err)

	manager, err := favorites.New(favorites.Options{Records: recordstore.New(slot, 0, nil), Blobs: blobs})
	require.NoError(t, err)
	defer manager.Close()

	rec := httptest.NewRecorder()
	New(manager, nil).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/favorites", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestPeriodicGCSweep(t *testing.T) {
	ts := newTestServer(t)

	orphan, err := ts.blobs.Put([]byte("orphan"), "nobody")
	require.NoError(t, err)

	adapter := work.NewWorkerAdapter("UTC", 1, nil)
	opts := Options{
		Config:  &shared.Config{Store: shared.StoreConfig{GCSchedule: "*/1 * * * * *"}},
		Manager: ts.manager,
		Adapter: adapter,
	}
	require.NoError(t, registerJobs(opts))

	adapter.Start()
	defer adapter.Stop()

	assert.Eventually(t, func() bool { return !ts.blobs.Exists(orphan) }, 5*time.Second, 50*time.Millisecond)
}

func TestRegisterJobsRejectsBadSchedule(t *testing.T) {
	opts := Options{
		Config:  &shared.Config{Store: shared.StoreConfig{GCSchedule: "every now and then"}},
		Adapter: work.NewWorkerAdapter("UTC", 1, nil),
	}
	assert.Error(t, registerJobs(opts))
}
