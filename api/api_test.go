package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/scheduler"
	"github.com/cloudfinch-harshad/rampart/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) SendMessage(ctx context.Context, messagetext string, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, messagetext)
	return nil
}

func (r *recordingNotifier) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	require.NoError(t, database.InitDb(filepath.Join(t.TempDir(), "rampart.db")))
	require.NoError(t, database.UpgradeDB())
	t.Cleanup(func() { database.CloseDb() })

	store, err := session.OpenPudgeStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Defaults()
	cfg.Session.LoginLimiterCalls = 0
	s := &Server{
		Sessions: session.NewManager(store, session.DatabaseUsers{}, cfg.Session),
		Notifier: &recordingNotifier{},
		Config:   func() config.MainConfig { return cfg },
		Now:      func() time.Time { return testNow },
	}
	return s, NewRouter(s)
}

type result struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
	Raw    string
}

func call(t *testing.T, h http.Handler, method, path, token string, body interface{}) result {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	res := result{Code: w.Code, Header: w.Header(), Raw: w.Body.String()}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.Body), w.Body.String())
	}
	return res
}

func register(t *testing.T, h http.Handler, company, email string) string {
	t.Helper()
	res := call(t, h, http.MethodPost, "/api/register-company", "", session.RegisterInput{
		CompanyName:     company,
		FirstName:       "Ada",
		LastName:        "Admin",
		Email:           email,
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	token, _ := res.Body["jwtToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func addVendor(t *testing.T, h http.Handler, token, name, deadline string) map[string]interface{} {
	t.Helper()
	res := call(t, h, http.MethodPost, "/api/save-brsr-vendor", token, VendorInput{
		VendorName:    name,
		VendorEmail:   strings.ToLower(name) + "@vendor.test",
		ContactName:   "Contact " + name,
		ContactNumber: "9876543210",
		DeadlineDate:  deadline,
	})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	return res.Body["vendorData"].(map[string]interface{})
}

func TestAuthFlow(t *testing.T) {
	_, h := newTestServer(t)

	res := call(t, h, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "2", res.Body["dbVersion"])

	res = call(t, h, http.MethodGet, "/api/get-user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, false, res.Body["success"])

	token := register(t, h, "Acme Industries", "Ada@Acme.test")

	res = call(t, h, http.MethodGet, "/api/get-user", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	data := res.Body["data"].(map[string]interface{})
	assert.Equal(t, "ada@acme.test", data["email"])
	assert.Equal(t, "Acme Industries", data["companyName"])
	assert.Equal(t, "ADMIN", data["role"])

	res = call(t, h, http.MethodPost, "/api/login", "", session.LoginInput{Email: "ada@acme.test", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Invalid email or password", res.Body["message"])

	res = call(t, h, http.MethodPost, "/api/login", "", session.LoginInput{Email: "ADA@acme.test", Password: "Str0ng!pass"})
	require.Equal(t, http.StatusOK, res.Code)
	login := res.Body["jwtToken"].(string)
	assert.NotEqual(t, token, login)
	assert.Contains(t, res.Header.Get("Set-Cookie"), "authToken="+login)

	res = call(t, h, http.MethodPost, "/api/logout", login, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = call(t, h, http.MethodGet, "/api/get-user", login, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// the first session is still valid
	res = call(t, h, http.MethodGet, "/api/get-user", token, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRegister_Errors(t *testing.T) {
	_, h := newTestServer(t)

	res := call(t, h, http.MethodPost, "/api/register-company", "", session.RegisterInput{
		CompanyName: "Acme", FirstName: "Ada", LastName: "Admin", Email: "not-an-email", Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Please enter a valid email address", res.Body["message"])
	assert.Len(t, res.Body["errors"], 1)

	register(t, h, "Acme", "ada@acme.test")
	res = call(t, h, http.MethodPost, "/api/register-company", "", session.RegisterInput{
		CompanyName: "Other", FirstName: "Ada", LastName: "Admin", Email: "ADA@acme.test", Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass",
	})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = call(t, h, http.MethodPost, "/api/register-company", "", session.RegisterInput{
		CompanyName: "Globex", FirstName: "Gil", LastName: "Admin", Email: "gil@globex.test", Password: "Str0ng!pass",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Please confirm your password", res.Body["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	res = call(t, h, http.MethodPost, "/api/forgot-password", "", session.ForgotPasswordInput{Email: "nobody@acme.test"})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Password reset instructions sent to your email", res.Body["message"])
}

func TestVendors(t *testing.T) {
	_, h := newTestServer(t)
	token := register(t, h, "Acme", "ada@acme.test")

	res := call(t, h, http.MethodPost, "/api/save-brsr-vendor", token, VendorInput{
		VendorName: "Short", VendorEmail: "short@vendor.test", ContactName: "S", ContactNumber: "123",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Contact number must be at least 10 digits", res.Body["message"])

	globex := addVendor(t, h, token, "Globex", "2025-06-01")
	addVendor(t, h, token, "Initech", "2025-08-01")
	addVendor(t, h, token, "Umbrella", "2025-09-01")
	assert.Equal(t, database.StatusPending, globex["completionStatus"])
	assert.Len(t, globex["accessCode"], 6)
	assert.Equal(t, "2025-2026", globex["fy"])

	res = call(t, h, http.MethodPost, "/api/filter-brsr-vendors", token, FilterVendorsInput{PageStart: 0, PageSize: 2, SortField: "vendorName"})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, float64(3), res.Body["total"])
	list := res.Body["filterBrsrVendorResponseList"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "Globex", list[0].(map[string]interface{})["vendorName"])

	res = call(t, h, http.MethodPost, "/api/filter-brsr-vendors", token, FilterVendorsInput{SearchKey: "initech"})
	assert.Equal(t, float64(1), res.Body["total"])

	res = call(t, h, http.MethodPost, "/api/filter-brsr-vendors", token, FilterVendorsInput{SortField: "password"})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	// update keeps the access code
	res = call(t, h, http.MethodPost, "/api/save-brsr-vendor", token, VendorInput{
		VendorID: globex["id"].(string), VendorName: "Globex Corp", VendorEmail: "globex@vendor.test",
		ContactName: "Hank", ContactNumber: "9876543210",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	updated := res.Body["vendorData"].(map[string]interface{})
	assert.Equal(t, "Globex Corp", updated["vendorName"])
	assert.Equal(t, globex["accessCode"], updated["accessCode"])
	assert.Equal(t, "2025-06-01", updated["deadlineDate"])

	// access code lookup works without a session
	res = call(t, h, http.MethodPost, "/api/get-brsr-vendor", "", vendorRef{AccessCode: globex["accessCode"].(string)})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Globex Corp", res.Body["vendorData"].(map[string]interface{})["vendorName"])
	res = call(t, h, http.MethodPost, "/api/get-brsr-vendor", "", vendorRef{AccessCode: "000000"})
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Nil(t, res.Body["vendorData"])

	res = call(t, h, http.MethodPost, "/api/delete-brsr-vendor", token, vendorRef{VendorID: globex["id"].(string)})
	assert.Equal(t, http.StatusOK, res.Code)
	res = call(t, h, http.MethodPost, "/api/delete-brsr-vendor", token, vendorRef{VendorID: globex["id"].(string)})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestVendorTableEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	token := register(t, h, "Acme", "ada@acme.test")
	addVendor(t, h, token, "Globex", "2025-06-01")
	addVendor(t, h, token, "Initech", "2025-08-01")
	addVendor(t, h, token, "Umbrella", "2025-09-01")

	res := call(t, h, http.MethodGet, "/api/vendors/table?filter.deadline=overdue", token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	view := res.Body["table"].(map[string]interface{})
	items := view["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Globex", items[0].(map[string]interface{})["vendorName"])
	assert.Equal(t, float64(1), view["totalSelectedFilters"])
	assert.Equal(t, true, view["showClearAll"])

	res = call(t, h, http.MethodGet, "/api/vendors/table?search=UMBR&pageSize=1", token, nil)
	view = res.Body["table"].(map[string]interface{})
	assert.Len(t, view["items"], 1)
	assert.Equal(t, "UMBR", view["search"].(map[string]interface{})["term"])

	res = call(t, h, http.MethodGet, "/api/vendors/table?pageSize=2&page=2&sortField=vendorName&sortDirection=desc", token, nil)
	view = res.Body["table"].(map[string]interface{})
	items = view["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Globex", items[0].(map[string]interface{})["vendorName"])
	pagination := view["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(2), pagination["totalPages"])

	res = call(t, h, http.MethodGet, "/api/vendors/table?search=nothing-matches", token, nil)
	view = res.Body["table"].(map[string]interface{})
	assert.Equal(t, true, view["empty"])
	assert.Equal(t, "No results found matching your filters.", view["emptyMessage"])

	res = call(t, h, http.MethodGet, "/api/vendors/export", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Header.Get("Content-Disposition"), "vendors_2025-2026.csv")
	records, err := csv.NewReader(strings.NewReader(res.Raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Vendor Name", records[0][0])
	assert.Equal(t, "Pending", records[1][6])
}

func TestCompanyIsolation(t *testing.T) {
	_, h := newTestServer(t)
	acme := register(t, h, "Acme", "ada@acme.test")
	other := register(t, h, "Other", "bob@other.test")
	v := addVendor(t, h, acme, "Globex", "2025-06-01")

	res := call(t, h, http.MethodPost, "/api/delete-brsr-vendor", other, vendorRef{VendorID: v["id"].(string)})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = call(t, h, http.MethodPost, "/api/filter-brsr-vendors", other, FilterVendorsInput{})
	assert.Equal(t, float64(0), res.Body["total"])

	res = call(t, h, http.MethodPost, "/api/get-brsr-compliance", other, ComplianceInput{VendorID: v["id"].(string)})
	assert.Equal(t, http.StatusNotFound, res.Code)

	// a vendor id without session is not enough
	res = call(t, h, http.MethodPost, "/api/get-brsr-compliance", "", ComplianceInput{VendorID: v["id"].(string)})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestBrsrCompliance(t *testing.T) {
	_, h := newTestServer(t)
	token := register(t, h, "Acme", "ada@acme.test")
	v := addVendor(t, h, token, "Globex", "2025-06-01")
	code := v["accessCode"].(string)

	res := call(t, h, http.MethodPost, "/api/get-brsr-items", "", ComplianceInput{AccessCode: code})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, "Globex", res.Body["vendorName"])
	assert.Equal(t, "Acme", res.Body["organizationName"])
	assert.Equal(t, float64(0), res.Body["completionPercentage"])
	assert.Nil(t, res.Body["submittedDate"])
	sections := res.Body["getBrsrSectionResponseList"].([]interface{})
	require.Len(t, sections, 4)
	total := 0
	for _, s := range sections {
		total += len(s.(map[string]interface{})["getBrsrItemResponseList"].([]interface{}))
	}
	assert.Equal(t, 19, total)

	res = call(t, h, http.MethodPost, "/api/save-brsr-item", "", SaveBrsrItemInput{BrsrMasterID: "1-01", AccessCode: code, Response: "Acme Ltd, CIN L12345", Notes: "from annual report"})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.NotEmpty(t, res.Body["brsrItemId"])
	assert.Equal(t, database.StatusInProgress, res.Body["completionStatus"])

	res = call(t, h, http.MethodPost, "/api/get-brsr-compliance", token, ComplianceInput{VendorID: v["id"].(string)})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, float64(5), res.Body["completionPercentage"])
	first := res.Body["getBrsrSectionResponseList"].([]interface{})[0].(map[string]interface{})
	item := first["getBrsrItemResponseList"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Acme Ltd, CIN L12345", item["response"])
	assert.Equal(t, v["id"], item["vendorId"])

	res = call(t, h, http.MethodPost, "/api/save-brsr-item", "", SaveBrsrItemInput{BrsrMasterID: "9-99", AccessCode: code, Response: "x"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = call(t, h, http.MethodPost, "/api/save-brsr-item", "", SaveBrsrItemInput{BrsrMasterID: "1-01", Response: "x"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = call(t, h, http.MethodPost, "/api/save-brsr-item", "", SaveBrsrItemInput{BrsrMasterID: "1-01", AccessCode: "000001", Response: "x"})
	assert.Equal(t, http.StatusNotFound, res.Code)

	// empty questionnaire needs a session
	res = call(t, h, http.MethodPost, "/api/get-brsr-compliance", "", ComplianceInput{})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	res = call(t, h, http.MethodPost, "/api/get-brsr-compliance", token, ComplianceInput{})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Nil(t, res.Body["vendorId"])
}

func TestSendInvitation(t *testing.T) {
	s, h := newTestServer(t)
	n := s.Notifier.(*recordingNotifier)
	sch, err := scheduler.InitScheduler(scheduler.Deps{
		Scheduler: config.SchedulerConfig{Disabled: true, Workers: 1, QueueSize: 10},
		Notifier:  n,
	})
	require.NoError(t, err)
	t.Cleanup(sch.Stop)
	s.Scheduler = sch

	token := register(t, h, "Acme", "ada@acme.test")
	v := addVendor(t, h, token, "Globex", "2025-06-01")

	res := call(t, h, http.MethodPost, "/api/send-brsr-invitation", token, vendorRef{VendorID: v["id"].(string)})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.NotEmpty(t, res.Body["jobId"])

	require.Eventually(t, func() bool {
		vendor, err := database.GetVendor(v["id"].(string))
		return err == nil && vendor.InvitedAt.Valid
	}, 2*time.Second, 10*time.Millisecond)
	messages := n.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Acme invites Globex")
	assert.Contains(t, messages[0], v["accessCode"].(string))

	res = call(t, h, http.MethodGet, "/api/scheduler/jobs", token, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = call(t, h, http.MethodPost, "/api/send-brsr-invitation", token, vendorRef{VendorID: "missing"})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestCorsConfig(t *testing.T) {
	cc := corsConfig([]string{"http://localhost:3000", "localhost"})
	assert.Equal(t, []string{"http://localhost:3000"}, cc.AllowOrigins)
	assert.True(t, cc.AllowCredentials)

	cc = corsConfig(nil)
	assert.True(t, cc.AllowAllOrigins)
	assert.False(t, cc.AllowCredentials)
}
