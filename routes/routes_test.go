package routes

import (
	"SmartDentist/config"
	"SmartDentist/repositories/repotest"
	"SmartDentist/services"
	"SmartDentist/storage"
	"SmartDentist/utils"
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

type testServer struct {
	router *gin.Engine
	store  *repotest.Store
	fs     afero.Fs
	deps   Dependencies
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repotest.NewStore()
	fs := afero.NewMemMapFs()
	cfg := &config.AppConfig{
		Env:         "test",
		TokenFormat: config.TokenFormatJWT,
		TokenSecret: "test-secret",
		MediaURL:    "/media/",
		CORSOrigins: []string{"http://localhost:3000"},
		Session:     config.DefaultSessionConfig(),
	}
	deps := Dependencies{
		Config:   cfg,
		Codec:    utils.NewJWTCodec(cfg.TokenSecret),
		Revoked:  repotest.NewBlacklist(),
		Locker:   repotest.NewLocker(),
		Accounts: store.Accounts(),
		Patients: store.Patients(),
		Cases:    store.Cases(),
		Library:  store.Library(),
		Archives: storage.NewArchiveStore(fs),
		CaseOptions: []services.CaseServiceOption{
			services.WithSleep(func(time.Duration) {}),
		},
	}
	return &testServer{router: NewRouter(deps), store: store, fs: fs, deps: deps}
}

// seedSuperAdmin creates a superadmin outside of HTTP, the way the CLI does.
func (s *testServer) seedSuperAdmin(t *testing.T) {
	t.Helper()
	svc := services.NewAccountService(s.deps.Accounts, s.deps.Locker)
	_, err := svc.RegisterSuperAdmin(context.Background(), services.Registration{
		Email: "root@example.com", Name: "Root", Surname: "Admin",
		Password: "rootpass", Password2: "rootpass",
	})
	if err != nil {
		t.Fatalf("seed superadmin: %v", err)
	}
}

// client keeps cookies between requests like a browser and can send a
// bearer token instead.
type client struct {
	t       *testing.T
	server  *testServer
	cookies map[string]*http.Cookie
	bearer  string
	csrf    bool
}

func (s *testServer) client(t *testing.T) *client {
	return &client{t: t, server: s, cookies: map[string]*http.Cookie{}, csrf: true}
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	if c.csrf {
		if token, ok := c.cookies["csrftoken"]; ok {
			req.Header.Set("X-CSRFToken", token.Value)
		}
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	w := httptest.NewRecorder()
	c.server.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return w
}

func (c *client) json(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *client) upload(path, filename string, data []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		c.t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		c.t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		c.t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req)
}

func (c *client) login(email, password string) map[string]interface{} {
	c.t.Helper()
	w := c.json(http.MethodPost, "/api/login/", map[string]string{"email": email, "password": password})
	if w.Code != http.StatusOK {
		c.t.Fatalf("login %s: expected 200, got %d: %s", email, w.Code, w.Body.String())
	}
	return decode(c.t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func archive(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := f.Write([]byte(name)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func registerWorker(t *testing.T, c *client, email string) {
	t.Helper()
	w := c.json(http.MethodPost, "/api/register/worker/", map[string]string{
		"email": email, "name": "Alice", "surname": "Smith",
		"password": "secret1", "password2": "secret1",
		"work": "City Clinic", "position": "Dentist",
	})
	expectStatus(t, w, http.StatusCreated)
}

func TestRegisterLoginProfile(t *testing.T) {
	server := newTestServer(t)
	browser := server.client(t)

	w := browser.json(http.MethodPost, "/api/register/worker/", map[string]string{
		"email": "alice@example.com", "name": "Alice", "surname": "Smith",
		"password": "secret1", "password2": "secret1",
	})
	expectStatus(t, w, http.StatusCreated)
	if body := decode(t, w); body["email"] != "alice@example.com" || body["name"] != "Alice" {
		t.Errorf("unexpected registration body %v", body)
	}

	duplicate := browser.json(http.MethodPost, "/api/register/worker/", map[string]string{
		"email": "alice@example.com", "name": "Alice", "surname": "Smith",
		"password": "secret1", "password2": "secret1",
	})
	expectStatus(t, duplicate, http.StatusBadRequest)

	tokens := browser.login("alice@example.com", "secret1")
	if tokens["access_token"] == "" || tokens["refresh_token"] == "" {
		t.Errorf("expected tokens in login body, got %v", tokens)
	}
	for _, name := range []string{"access_token", "refresh_token", "user_role", "csrftoken"} {
		if _, ok := browser.cookies[name]; !ok {
			t.Errorf("expected %s cookie after login", name)
		}
	}
	if role := browser.cookies["user_role"].Value; role != "worker" {
		t.Errorf("expected worker role cookie, got %q", role)
	}

	profile := browser.json(http.MethodGet, "/api/account/profile/", nil)
	expectStatus(t, profile, http.StatusOK)
	body := decode(t, profile)
	if body["name"] != "Alice" || body["surname"] != "Smith" || body["patronymic"] != "" {
		t.Errorf("unexpected profile %v", body)
	}

	me := decode(t, browser.json(http.MethodGet, "/api/account/me/", nil))
	if me["role"] != "WORKER" || me["is_staff"] != false {
		t.Errorf("unexpected current user %v", me)
	}
}

func TestLoginFailures(t *testing.T) {
	server := newTestServer(t)
	browser := server.client(t)
	registerWorker(t, browser, "alice@example.com")

	expectStatus(t, browser.json(http.MethodPost, "/api/login/", map[string]string{"email": "alice@example.com"}), http.StatusBadRequest)
	expectStatus(t, browser.json(http.MethodPost, "/api/login/", map[string]string{"email": "alice@example.com", "password": "wrong!"}), http.StatusUnauthorized)
	if len(browser.cookies) != 0 {
		t.Errorf("failed logins must not set cookies, got %v", browser.cookies)
	}
}

func TestAnonymousIsRejected(t *testing.T) {
	server := newTestServer(t)
	anonymous := server.client(t)

	for _, path := range []string{"/api/patients/", "/api/cases/", "/api/library/", "/api/account/me/", "/api/workers/"} {
		if w := anonymous.json(http.MethodGet, path, nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: expected 401, got %d", path, w.Code)
		}
	}
	expectStatus(t, anonymous.json(http.MethodGet, "/healthz", nil), http.StatusOK)
}

func TestPatientCaseUploadFlow(t *testing.T) {
	server := newTestServer(t)
	server.seedSuperAdmin(t)

	admin := server.client(t)
	admin.bearer = admin.login("root@example.com", "rootpass")["access_token"].(string)
	admin.cookies = map[string]*http.Cookie{}

	entry := admin.json(http.MethodPost, "/api/library/", map[string]interface{}{
		"name": "Standard 4.1x10", "diameter": "4.1", "length": "10",
		"thread_pitch": "0.8", "thread_depth": "0.35", "bone_density": "850",
		"max_axial_load": "400", "max_lateral_load": "120", "surface_area": "160.5",
		"stress_image": "library/stress.png",
	})
	expectStatus(t, entry, http.StatusCreated)
	if url := decode(t, entry)["stress_image_url"]; url != "http://example.com/media/library/stress.png" {
		t.Errorf("unexpected stress image url %v", url)
	}

	patient := admin.json(http.MethodPost, "/api/patients/", map[string]interface{}{
		"name": "Ivan", "surname": "Petrov", "birth_date": "01.02.1980", "gender": 0,
	})
	expectStatus(t, patient, http.StatusCreated)
	patientBody := decode(t, patient)
	if patientBody["birth_date"] != "01.02.1980" {
		t.Errorf("unexpected birth date %v", patientBody["birth_date"])
	}
	patientID := uint(patientBody["id"].(float64))

	created := admin.json(http.MethodPost, "/api/cases/create/", map[string]interface{}{
		"patient": patientID, "diagnosis": "missing molar",
	})
	expectStatus(t, created, http.StatusCreated)
	caseBody := decode(t, created)
	if caseBody["status"] != "OPEN" {
		t.Errorf("expected OPEN case, got %v", caseBody["status"])
	}
	caseID := uint(caseBody["id"].(float64))
	casePath := "/api/cases/" + itoa(caseID)

	expectStatus(t, admin.json(http.MethodPost, casePath+"/process/", nil), http.StatusConflict)
	expectStatus(t, admin.upload(casePath+"/upload-dicom/", "scan.zip", []byte("not a zip")), http.StatusBadRequest)

	uploaded := admin.upload(casePath+"/upload-dicom/", "scan.zip", archive(t, "one.dcm", "two.dcm", ".DS_Store"))
	expectStatus(t, uploaded, http.StatusOK)
	detail := decode(t, uploaded)
	if detail["dicom_files_count"] != float64(2) {
		t.Errorf("expected 2 dicom files, got %v", detail["dicom_files_count"])
	}
	if uploads, _ := detail["uploads"].([]interface{}); len(uploads) != 1 {
		t.Errorf("expected one upload in history, got %v", detail["uploads"])
	}
	if detail["status"] != "CALCULATED" || detail["patient_name"] != "Petrov Ivan" {
		t.Errorf("unexpected detail %v", detail)
	}
	files := detail["dicom_files"].([]interface{})
	if !strings.HasPrefix(files[0].(string), "http://example.com/media/dicom/") {
		t.Errorf("expected absolute media urls, got %v", files)
	}
	calculation := detail["calculation"].(map[string]interface{})
	if calculation["is_calculated"] != true {
		t.Errorf("expected a calculated implant, got %v", calculation)
	}
	implant := calculation["implant"].(map[string]interface{})
	if implant["library"].(map[string]interface{})["name"] != "Standard 4.1x10" {
		t.Errorf("unexpected implant %v", implant)
	}

	history := admin.json(http.MethodGet, "/api/patients/"+itoa(patientID)+"/cases/", nil)
	expectStatus(t, history, http.StatusOK)
	var cases []map[string]interface{}
	if err := json.Unmarshal(history.Body.Bytes(), &cases); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(cases) != 1 {
		t.Errorf("expected one case in history, got %d", len(cases))
	}

	fetched := admin.json(http.MethodGet, "/api/patients/"+itoa(patientID)+"/cases/"+itoa(caseID)+"/", nil)
	expectStatus(t, fetched, http.StatusOK)
	if decode(t, fetched)["dicom_files_count"] != float64(2) {
		t.Error("detail endpoint must list the stored files")
	}
	expectStatus(t, admin.json(http.MethodGet, "/api/patients/999/cases/"+itoa(caseID)+"/", nil), http.StatusNotFound)

	processed := admin.json(http.MethodPost, casePath+"/process/", nil)
	expectStatus(t, processed, http.StatusOK)
	if decode(t, processed)["is_calculated"] != true {
		t.Error("expected reprocessing to keep a calculated result")
	}
	if len(server.store.Uploads()) != 1 {
		t.Errorf("expected exactly one recorded upload, got %d", len(server.store.Uploads()))
	}
}

func TestUploadWithEmptyLibrary(t *testing.T) {
	server := newTestServer(t)
	registerWorker(t, server.client(t), "alice@example.com")
	worker := server.client(t)
	worker.bearer = worker.login("alice@example.com", "secret1")["access_token"].(string)
	worker.cookies = map[string]*http.Cookie{}

	patient := decode(t, worker.json(http.MethodPost, "/api/patients/", map[string]interface{}{
		"name": "Ivan", "surname": "Petrov", "birth_date": "1980-02-01", "gender": 0,
	}))
	created := decode(t, worker.json(http.MethodPost, "/api/cases/create/", map[string]interface{}{
		"patient": patient["id"],
	}))
	caseID := uint(created["id"].(float64))

	w := worker.upload("/api/cases/"+itoa(caseID)+"/upload-dicom/", "scan.zip", archive(t, "one.dcm"))
	expectStatus(t, w, http.StatusInternalServerError)

	stored, _ := server.store.Cases().GetByID(context.Background(), caseID)
	if stored.Status != "ARCHIVE_RECEIVED" {
		t.Errorf("the archive must stay recorded, got status %s", stored.Status)
	}
	if _, ok := server.store.Implant(caseID); ok {
		t.Error("no implant must be created without a catalog")
	}

	expectStatus(t, worker.json(http.MethodPost, "/api/library/", map[string]interface{}{"name": "x"}), http.StatusForbidden)
}

func TestCSRFAndLogout(t *testing.T) {
	server := newTestServer(t)
	registerWorker(t, server.client(t), "alice@example.com")

	browser := server.client(t)
	browser.login("alice@example.com", "secret1")
	patient := map[string]interface{}{"name": "Ivan", "surname": "Petrov", "birth_date": "01.02.1980", "gender": 1}

	browser.csrf = false
	expectStatus(t, browser.json(http.MethodPost, "/api/patients/", patient), http.StatusForbidden)

	browser.csrf = true
	expectStatus(t, browser.json(http.MethodPost, "/api/patients/", patient), http.StatusCreated)

	browser.csrf = false
	logout := browser.json(http.MethodPost, "/api/logout/", nil)
	expectStatus(t, logout, http.StatusOK)
	if decode(t, logout)["detail"] != "Logged out successfully" {
		t.Errorf("unexpected logout body %s", logout.Body.String())
	}
	for _, name := range []string{"access_token", "refresh_token", "user_role", "csrftoken"} {
		if _, ok := browser.cookies[name]; ok {
			t.Errorf("expected %s to be cleared on logout", name)
		}
	}

	expectStatus(t, browser.json(http.MethodGet, "/api/patients/", nil), http.StatusUnauthorized)
	expectStatus(t, server.client(t).json(http.MethodPost, "/api/logout/", nil), http.StatusOK)
}

func TestRefreshRotation(t *testing.T) {
	server := newTestServer(t)
	registerWorker(t, server.client(t), "alice@example.com")

	browser := server.client(t)
	browser.login("alice@example.com", "secret1")
	oldRefresh := browser.cookies["refresh_token"].Value

	refreshed := browser.json(http.MethodPost, "/api/refresh_token/", nil)
	expectStatus(t, refreshed, http.StatusOK)
	if browser.cookies["refresh_token"].Value == oldRefresh {
		t.Error("expected a rotated refresh cookie")
	}
	if refreshed.Header().Get("X-CSRFToken") == "" {
		t.Error("expected the CSRF token to be echoed")
	}
	expectStatus(t, browser.json(http.MethodGet, "/api/account/me/", nil), http.StatusOK)

	replay := server.client(t)
	replay.cookies["refresh_token"] = &http.Cookie{Name: "refresh_token", Value: oldRefresh}
	replay.cookies["csrftoken"] = browser.cookies["csrftoken"]
	expectStatus(t, replay.json(http.MethodPost, "/api/refresh_token/", nil), http.StatusUnauthorized)

	expectStatus(t, server.client(t).json(http.MethodPost, "/api/refresh_token/", nil), http.StatusUnauthorized)
}

func TestRefreshAfterDeactivation(t *testing.T) {
	server := newTestServer(t)
	registerWorker(t, server.client(t), "alice@example.com")

	browser := server.client(t)
	browser.login("alice@example.com", "secret1")

	account, err := server.store.Accounts().GetByEmail(context.Background(), "alice@example.com")
	if err != nil || account == nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if err := server.store.Accounts().Deactivate(context.Background(), account.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	expectStatus(t, browser.json(http.MethodPost, "/api/refresh_token/", nil), http.StatusUnauthorized)
	expectStatus(t, browser.json(http.MethodGet, "/api/account/me/", nil), http.StatusUnauthorized)
}

func TestAdminRegistrationRequiresSuperAdmin(t *testing.T) {
	server := newTestServer(t)
	server.seedSuperAdmin(t)
	registerWorker(t, server.client(t), "alice@example.com")

	input := map[string]string{
		"email": "admin@example.com", "name": "Adam", "surname": "Admin",
		"password": "secret1", "password2": "secret1",
	}

	expectStatus(t, server.client(t).json(http.MethodPost, "/api/register/admin/", input), http.StatusUnauthorized)

	worker := server.client(t)
	worker.login("alice@example.com", "secret1")
	expectStatus(t, worker.json(http.MethodPost, "/api/register/admin/", input), http.StatusForbidden)

	root := server.client(t)
	root.login("root@example.com", "rootpass")
	expectStatus(t, root.json(http.MethodPost, "/api/register/admin/", input), http.StatusCreated)

	workers := root.json(http.MethodGet, "/api/workers/", nil)
	expectStatus(t, workers, http.StatusOK)
	var profiles []map[string]interface{}
	if err := json.Unmarshal(workers.Body.Bytes(), &profiles); err != nil {
		t.Fatalf("decode workers: %v", err)
	}
	if len(profiles) != 1 || profiles[0]["position"] != "Dentist" {
		t.Errorf("unexpected worker profiles %v", profiles)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
