package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"productsapi/app"
	"productsapi/config"
)

const apiKey = "test-api-key"

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Port: "0",
		Database: config.DatabaseConfig{
			Type:       "sqlite",
			SQLitePath: filepath.Join(dir, "api.db"),
		},
		Auth:              config.AuthConfig{JWTSecret: "test-secret", APIKey: apiKey},
		Upload:            config.UploadConfig{Backend: config.UploadLocal, Dir: filepath.Join(dir, "uploads"), MaxBytes: 1 << 20},
		Logger:            config.LoggerConfig{Mode: "development"},
		OwnerScoping:      config.ScopingEnabled,
		ScopedDelete:      true,
		EnableDiagnostics: false,
		CurrencyMajor:     "Dollars",
		CurrencyMinor:     "Cents",
	}
}

func newServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	a, err := app.NewApplication(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(a))
	t.Cleanup(func() {
		srv.Close()
		a.Close()
	})
	return srv
}

type client struct {
	t   *testing.T
	srv *httptest.Server
}

func (c client) call(method, path, bearer string, body string) (int, map[string]interface{}, string) {
	c.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	var out map[string]interface{}
	json.Unmarshal(raw, &out)
	return resp.StatusCode, out, string(raw)
}

func (c client) register(email string) string {
	c.t.Helper()
	status, body, raw := c.call(http.MethodPost, "/api/auth/register", "",
		`{"email":"`+email+`","password":"pw123456","name":"Tester"}`)
	require.Equal(c.t, http.StatusCreated, status, raw)
	return body["token"].(string)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	c := client{t, newServer(t, testConfig(t))}

	status, body, _ := c.call(http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["status"])

	status, body, _ = c.call(http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Endpoint not found", body["error"])

	// diagnostics are off by default
	status, _, _ = c.call(http.MethodPost, "/api/test-connection", apiKey, `{}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPreflight(t *testing.T) {
	srv := newServer(t, testConfig(t))
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/products", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestProductFlow(t *testing.T) {
	c := client{t, newServer(t, testConfig(t))}
	alice := c.register("alice@example.com")
	bob := c.register("bob@example.com")

	status, body, _ := c.call(http.MethodGet, "/api/products", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access token required", body["error"])

	status, body, raw := c.call(http.MethodPost, "/api/products", alice, `{"id":"p1","name":"Widget","price":9.99,"quantity":5}`)
	require.Equal(t, http.StatusCreated, status, raw)
	product := body["product"].(map[string]interface{})
	assert.Equal(t, float64(5), product["quantity"])
	assert.Equal(t, "9.99", product["price_out"])

	status, _, _ = c.call(http.MethodPost, "/api/products", alice, `{"id":"p1","name":"Again"}`)
	assert.Equal(t, http.StatusConflict, status)

	_, _, raw = c.call(http.MethodGet, "/api/products", bob, "")
	assert.JSONEq(t, `[]`, raw)
	status, _, _ = c.call(http.MethodGet, "/api/products/p1", bob, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _, _ = c.call(http.MethodPut, "/api/products/p1/stock", alice, `{"quantity":2,"operation":"subtract"}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body, raw = c.call(http.MethodPut, "/api/products/p1/stock", apiKey, `{"quantity":2,"operation":"subtract"}`)
	require.Equal(t, http.StatusOK, status, raw)
	assert.Equal(t, float64(5), body["oldQuantity"])
	assert.Equal(t, float64(3), body["newQuantity"])

	status, _, raw = c.call(http.MethodGet, "/api/products/search/widg", apiKey, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, raw, `"id":"p1"`)

	status, _, _ = c.call(http.MethodDelete, "/api/products/p1", bob, "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _, _ = c.call(http.MethodDelete, "/api/products/p1", alice, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthFlow(t *testing.T) {
	c := client{t, newServer(t, testConfig(t))}
	c.register("ana@example.com")

	status, body, _ := c.call(http.MethodPost, "/api/auth/login", "", `{"email":"ana@example.com","password":"pw123456"}`)
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)

	status, _, raw := c.call(http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, raw, `"email":"ana@example.com"`)
	assert.NotContains(t, raw, "password")

	i := strings.LastIndex(token, ".") + 1
	c0 := byte('A')
	if token[i] == 'A' {
		c0 = 'B'
	}
	tampered := token[:i] + string(c0) + token[i+1:]
	status, body, _ = c.call(http.MethodGet, "/api/auth/me", tampered, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body["error"])

	status, body, _ = c.call(http.MethodPost, "/api/auth/register", "", `{"email":"ana@example.com","password":"x","name":"Ana"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User already exists", body["error"])

	status, body, _ = c.call(http.MethodPost, "/api/auth/register", "", `{"email":"Ana@Example.COM","password":"x","name":"Ana"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User already exists", body["error"])

	status, _, _ = c.call(http.MethodPost, "/api/auth/login", "", `{"email":"ANA@example.com","password":"pw123456"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestSaleFlow(t *testing.T) {
	c := client{t, newServer(t, testConfig(t))}
	sale := `{"id":"s1","timestamp":"2024-03-01T10:30:00Z","items":[{"productId":"p1","name":"Widget","quantity":2,"price":4.5}],"totalAmount":9,"paymentMethod":"cash"}`

	status, _, _ := c.call(http.MethodPost, "/api/sales", "", sale)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body, raw := c.call(http.MethodPost, "/api/sales", apiKey, sale)
	require.Equal(t, http.StatusCreated, status, raw)
	assert.Equal(t, "s1", body["saleId"])

	status, body, raw = c.call(http.MethodGet, "/api/sales/s1", apiKey, "")
	require.Equal(t, http.StatusOK, status, raw)
	items, err := json.Marshal(body["items"])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"productId":"p1","name":"Widget","quantity":2,"price":4.5}]`, string(items))
	assert.Equal(t, "9", body["total_amount"])

	_, _, raw = c.call(http.MethodGet, "/api/sales?startDate=2024-03-01&endDate=2024-03-02", apiKey, "")
	assert.Contains(t, raw, `"id":"s1"`)

	status, body, _ = c.call(http.MethodGet, "/api/sales/summary", apiKey, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["totalSales"])
}

func TestUploadIsServed(t *testing.T) {
	srv := newServer(t, testConfig(t))
	png := []byte{
		0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
		0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="dot.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	part.Write(png)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, out)

	got, err := srv.Client().Get(srv.URL + out["url"].(string))
	require.NoError(t, err)
	defer got.Body.Close()
	served, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, png, served)
}

func TestUnscopedDeleteUsesAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScopedDelete = false
	c := client{t, newServer(t, cfg)}
	alice := c.register("alice@example.com")

	status, _, raw := c.call(http.MethodPost, "/api/products", alice, `{"id":"p1","name":"Widget"}`)
	require.Equal(t, http.StatusCreated, status, raw)

	status, _, _ = c.call(http.MethodDelete, "/api/products/p1", alice, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _, _ = c.call(http.MethodDelete, "/api/products/p1", apiKey, "")
	assert.Equal(t, http.StatusOK, status)
}
