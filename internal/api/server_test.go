package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TrackFast/internal/auth"
	"github.com/dharsanguruparan/TrackFast/internal/model"
	"github.com/dharsanguruparan/TrackFast/internal/service"
	"github.com/dharsanguruparan/TrackFast/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	admins  *service.AdminService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	parcels := storage.NewParcelStore()
	adminStore := storage.NewAdminStore()
	tokens := auth.NewTokens([]byte("api-test-secret"), time.Hour)
	authSvc := service.NewAuthService(adminStore, tokens, nil)
	admins := service.NewAdminService(adminStore)
	svc := Services{
		Parcels: service.NewParcelService(parcels, nil, nil),
		Support: service.NewSupportService(storage.NewMessageStore(), parcels, authSvc, nil),
		Auth:    authSvc,
		Admins:  admins,
	}
	ctx := context.Background()
	if _, _, err := admins.Seed(ctx, "root@trackfast.com", "rootpw", model.RoleSuperadmin); err != nil {
		t.Fatalf("seed superadmin: %v", err)
	}
	if _, _, err := admins.Seed(ctx, "ops@trackfast.com", "opspw", model.RoleAdmin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return &testServer{t: t, handler: New(":0", []string{"*"}, svc).Handler(), admins: admins}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(email, password string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/admin/login", "", map[string]string{"email": email, "password": password})
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body)
	}
	var res struct {
		Token string `json:"token"`
		Role  string `json:"role"`
		Email string `json:"email"`
	}
	decode(ts.t, rec, &res)
	if res.Token == "" || res.Email != email {
		ts.t.Fatalf("login response %s", rec.Body)
	}
	return res.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body)
	}
	var body struct {
		Message string `json:"message"`
	}
	decode(t, rec, &body)
	if body.Message != msg {
		t.Fatalf("message = %q, want %q", body.Message, msg)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["ok"] != true || body["message"] != "TrackFast API running" {
		t.Fatalf("health body %v", body)
	}
}

func TestParcelFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("ops@trackfast.com", "opspw")

	rec := ts.do(http.MethodPost, "/api/parcels", token, map[string]string{
		"sender": "A", "receiver": "B", "origin": "NY", "destination": "LA", "status": "Order Received",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", rec.Code, rec.Body)
	}
	var created model.Parcel
	decode(t, rec, &created)

	rec = ts.do(http.MethodPut, "/api/parcels/"+created.ID+"/status", token, map[string]string{"status": "Dispatched", "location": "NJ"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update = %d body %s", rec.Code, rec.Body)
	}

	rec = ts.do(http.MethodPut, "/api/parcels/"+created.ID+"/state", token, map[string]string{"state": "paused", "pauseMessage": "customs hold"})
	if rec.Code != http.StatusOK {
		t.Fatalf("pause = %d body %s", rec.Code, rec.Body)
	}

	rec = ts.do(http.MethodGet, "/api/parcels/"+created.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("track = %d body %s", rec.Code, rec.Body)
	}
	var tracked map[string]any
	decode(t, rec, &tracked)
	if tracked["paused"] != true || tracked["pauseMessage"] != "customs hold" || tracked["pauseLocation"] != "NJ" {
		t.Fatalf("tracked = %v", tracked)
	}
	if timeline, _ := tracked["timeline"].([]any); len(timeline) != 2 {
		t.Fatalf("timeline = %v", tracked["timeline"])
	}

	expectMessage(t, ts.do(http.MethodGet, "/api/parcels/%20"+created.ID, "", nil), http.StatusNotFound, "Parcel not found")
	expectMessage(t, ts.do(http.MethodPut, "/api/parcels/%20"+created.ID+"/status", token, map[string]string{"status": "Shipped", "location": "NJ"}), http.StatusNotFound, "Parcel not found")

	rec = ts.do(http.MethodGet, "/api/parcels", token, nil)
	var list []model.Parcel
	decode(t, rec, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list = %s", rec.Body)
	}

	rec = ts.do(http.MethodGet, "/api/parcels/"+created.ID+"/archive", token, nil)
	expectMessage(t, rec, http.StatusServiceUnavailable, "Parcel archive is not configured")

	rec = ts.do(http.MethodDelete, "/api/parcels/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d body %s", rec.Code, rec.Body)
	}
	var deleted struct {
		Message string       `json:"message"`
		Deleted model.Parcel `json:"deleted"`
	}
	decode(t, rec, &deleted)
	if deleted.Message != "Parcel deleted" || deleted.Deleted.ID != created.ID {
		t.Fatalf("delete body %s", rec.Body)
	}

	expectMessage(t, ts.do(http.MethodGet, "/api/parcels/"+created.ID, "", nil), http.StatusNotFound, "Parcel not found")
	expectMessage(t, ts.do(http.MethodDelete, "/api/parcels/"+created.ID, token, nil), http.StatusNotFound, "Parcel not found")
}

func TestParcelValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("ops@trackfast.com", "opspw")

	rec := ts.do(http.MethodPost, "/api/parcels", token, map[string]string{"sender": "A"})
	expectMessage(t, rec, http.StatusBadRequest, "Missing required fields (sender, receiver, origin, destination, status)")

	rec = ts.do(http.MethodPut, "/api/parcels/TRK-00000000/status", token, map[string]string{"status": "Dispatched"})
	expectMessage(t, rec, http.StatusBadRequest, "Status and location are required")

	rec = ts.do(http.MethodPut, "/api/parcels/TRK-00000000/state", token, map[string]string{"state": "frozen"})
	expectMessage(t, rec, http.StatusBadRequest, "Invalid state")

	rec = ts.do(http.MethodPut, "/api/parcels/TRK-00000000/state", token, nil)
	expectMessage(t, rec, http.StatusBadRequest, "Invalid state")

	req := httptest.NewRequest(http.MethodPost, "/api/parcels", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	raw := httptest.NewRecorder()
	ts.handler.ServeHTTP(raw, req)
	expectMessage(t, raw, http.StatusBadRequest, "Invalid JSON body")
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	expectMessage(t, ts.do(http.MethodGet, "/api/parcels", "", nil), http.StatusUnauthorized, "No token provided")
	expectMessage(t, ts.do(http.MethodGet, "/api/parcels", "garbage", nil), http.StatusUnauthorized, "Invalid/Expired token")
	expectMessage(t, ts.do(http.MethodPost, "/api/admin/login", "", map[string]string{"email": "ops@trackfast.com", "password": "wrong"}), http.StatusUnauthorized, "Invalid credentials")
	expectMessage(t, ts.do(http.MethodPost, "/api/admin/login", "", map[string]string{"email": "nobody@trackfast.com", "password": "wrong"}), http.StatusUnauthorized, "Invalid credentials")
	expectMessage(t, ts.do(http.MethodPost, "/api/admin/login", "", map[string]string{}), http.StatusBadRequest, "Email and password are required")
}

func TestListScopedToCreator(t *testing.T) {
	ts := newTestServer(t)
	root := ts.login("root@trackfast.com", "rootpw")
	ops := ts.login("ops@trackfast.com", "opspw")
	body := map[string]string{"sender": "A", "receiver": "B", "origin": "NY", "destination": "LA", "status": "Order Received"}
	for _, tok := range []string{root, ops, ops} {
		if rec := ts.do(http.MethodPost, "/api/parcels", tok, body); rec.Code != http.StatusCreated {
			t.Fatalf("create = %d", rec.Code)
		}
	}
	var mine, all []model.Parcel
	decode(t, ts.do(http.MethodGet, "/api/parcels", ops, nil), &mine)
	decode(t, ts.do(http.MethodGet, "/api/parcels", root, nil), &all)
	if len(mine) != 2 || len(all) != 3 {
		t.Fatalf("admin sees %d, superadmin sees %d", len(mine), len(all))
	}
}

func TestAdminManagement(t *testing.T) {
	ts := newTestServer(t)
	root := ts.login("root@trackfast.com", "rootpw")
	ops := ts.login("ops@trackfast.com", "opspw")

	expectMessage(t, ts.do(http.MethodGet, "/api/admins", ops, nil), http.StatusForbidden, "Superadmin access required")

	rec := ts.do(http.MethodPost, "/api/admins", root, map[string]string{"email": "new@trackfast.com", "password": "newpw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create admin = %d body %s", rec.Code, rec.Body)
	}
	var created map[string]any
	decode(t, rec, &created)
	if _, leaked := created["passwordHash"]; leaked {
		t.Fatalf("password hash leaked: %v", created)
	}
	id, _ := created["_id"].(string)
	if id == "" || created["role"] != "admin" {
		t.Fatalf("created admin %v", created)
	}

	expectMessage(t, ts.do(http.MethodPost, "/api/admins", root, map[string]string{"email": "new@trackfast.com", "password": "x"}), http.StatusBadRequest, "Admin already exists")

	var admins []map[string]any
	decode(t, ts.do(http.MethodGet, "/api/admins", root, nil), &admins)
	if len(admins) != 3 {
		t.Fatalf("admins = %v", admins)
	}

	long := strings.Repeat("p", 100)
	expectMessage(t, ts.do(http.MethodPost, "/api/admins", root, map[string]string{"email": "long@trackfast.com", "password": long}), http.StatusBadRequest, "Password must be at most 72 bytes")
	expectMessage(t, ts.do(http.MethodPut, "/api/admins/"+id+"/password", root, map[string]string{"password": long}), http.StatusBadRequest, "Password must be at most 72 bytes")
	expectMessage(t, ts.do(http.MethodPut, "/api/admins/"+id+"/password", root, map[string]string{"password": "changed"}), http.StatusOK, "Password updated")
	ts.login("new@trackfast.com", "changed")

	var self struct {
		AdminID string `json:"_id"`
	}
	for _, a := range admins {
		if a["email"] == "root@trackfast.com" {
			self.AdminID, _ = a["_id"].(string)
		}
	}
	expectMessage(t, ts.do(http.MethodDelete, "/api/admins/"+self.AdminID, root, nil), http.StatusBadRequest, "You cannot delete your own account")
	expectMessage(t, ts.do(http.MethodDelete, "/api/admins/"+id, root, nil), http.StatusOK, "Admin deleted")
	expectMessage(t, ts.do(http.MethodDelete, "/api/admins/"+id, root, nil), http.StatusNotFound, "Admin not found")
}

func TestSupportMessages(t *testing.T) {
	ts := newTestServer(t)
	ops := ts.login("ops@trackfast.com", "opspw")
	rec := ts.do(http.MethodPost, "/api/parcels", ops, map[string]string{"sender": "A", "receiver": "B", "origin": "NY", "destination": "LA", "status": "Order Received"})
	var p model.Parcel
	decode(t, rec, &p)

	rec = ts.do(http.MethodPost, "/api/support/messages", "", map[string]string{"parcelId": p.ID, "sender": "user", "content": "Hello?"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("user post = %d body %s", rec.Code, rec.Body)
	}
	rec = ts.do(http.MethodPost, "/api/support/messages", "", map[string]string{"parcelId": p.ID, "sender": "admin", "content": "Hi", "token": ops})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin post = %d body %s", rec.Code, rec.Body)
	}
	rec = ts.do(http.MethodPost, "/api/support/messages", ops, map[string]string{"parcelId": p.ID, "sender": "admin", "content": "Header token"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin post with header = %d body %s", rec.Code, rec.Body)
	}
	expectMessage(t, ts.do(http.MethodPost, "/api/support/messages", "", map[string]string{"parcelId": p.ID, "sender": "admin", "content": "spoof"}), http.StatusUnauthorized, "No token provided")
	expectMessage(t, ts.do(http.MethodPost, "/api/support/messages", "", map[string]string{"parcelId": "TRK-FFFFFFFF", "sender": "user", "content": "x"}), http.StatusNotFound, "Parcel not found")

	var msgs []model.Message
	decode(t, ts.do(http.MethodGet, "/api/support/messages/"+p.ID, "", nil), &msgs)
	if len(msgs) != 3 || msgs[0].Sender != model.SenderUser || msgs[1].AdminID == "" {
		t.Fatalf("messages = %+v", msgs)
	}

	rec = ts.do(http.MethodGet, "/api/support/messages/TRK-UNKNOWN", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("unknown parcel chat = %d %s", rec.Code, rec.Body)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	expectMessage(t, ts.do(http.MethodGet, "/api/nothing", "", nil), http.StatusNotFound, "Not found")
}

type slowParcelStore struct {
	*storage.ParcelStore
	entered  chan struct{}
	once     sync.Once
	finished atomic.Bool
}

func (s *slowParcelStore) Get(ctx context.Context, id string) (*model.Parcel, error) {
	s.once.Do(func() { close(s.entered) })
	time.Sleep(300 * time.Millisecond)
	s.finished.Store(true)
	return s.ParcelStore.Get(ctx, id)
}

func TestServeDrainsInFlightRequests(t *testing.T) {
	store := &slowParcelStore{ParcelStore: storage.NewParcelStore(), entered: make(chan struct{})}
	adminStore := storage.NewAdminStore()
	authSvc := service.NewAuthService(adminStore, auth.NewTokens([]byte("api-test-secret"), time.Hour), nil)
	srv := New("127.0.0.1:0", nil, Services{
		Parcels: service.NewParcelService(store, nil, nil),
		Support: service.NewSupportService(storage.NewMessageStore(), store, authSvc, nil),
		Auth:    authSvc,
		Admins:  service.NewAdminService(adminStore),
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/parcels/TRK-1")
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("request never reached the store")
	}
	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("serve did not return")
	}
	if !store.finished.Load() {
		t.Fatalf("serve returned before the in-flight request finished")
	}
	if code := <-status; code != http.StatusNotFound {
		t.Fatalf("in-flight request status = %d, want 404", code)
	}
}
