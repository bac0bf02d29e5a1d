package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyWorldPL/IVshop/internal/auth"
	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/service"
)

type fakeConsole struct {
	mu    sync.Mutex
	sent  []string
	fails bool
}

func (c *fakeConsole) Send(_ context.Context, _ models.ConsoleTarget, commands []string, player string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fails {
		return errors.New("connection refused")
	}
	for _, cmd := range commands {
		c.sent = append(c.sent, strings.ReplaceAll(cmd, "{player}", player))
	}
	return nil
}

func (c *fakeConsole) Probe(context.Context, models.ConsoleTarget) (bool, error) {
	return true, nil
}

func (c *fakeConsole) Execute(context.Context, models.ConsoleTarget, string) (string, error) {
	return "ok", nil
}

type onlineStatus struct{}

func (onlineStatus) Status(context.Context, string) (*models.ServerStatus, error) {
	return &models.ServerStatus{Online: true, Version: "1.20.4", PlayersOnline: 1, PlayersMax: 20}, nil
}

type acceptCaptcha struct{}

func (acceptCaptcha) Verify(_ context.Context, token string) (bool, error) {
	return token != "", nil
}

type fakeLogin struct{}

func (fakeLogin) AuthCodeURL(state string) string {
	return "https://discord.test/authorize?state=" + url.QueryEscape(state)
}

func (fakeLogin) Exchange(_ context.Context, code string) (*auth.User, error) {
	if code != "good" {
		return nil, errors.New("invalid_grant")
	}
	return &auth.User{ID: "100", Username: "owner"}, nil
}

type testAPI struct {
	handler http.Handler
	tokens  *auth.TokenIssuer
	console *fakeConsole
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.New(database.Options{Driver: "sqlite", Path: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	servers := database.NewServerRepository(db)
	products := database.NewProductRepository(db)
	operators := database.NewOperatorRepository(db)
	vouchers := database.NewVoucherRepository(db)
	purchases := database.NewPurchaseRepository(db)
	links := database.NewLinkRepository(db)

	console := &fakeConsole{}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	deps := Dependencies{
		Registry:    service.NewRegistryService(servers, console, onlineStatus{}, logger),
		Catalog:     service.NewCatalogService(products, operators, vouchers, purchases, links, acceptCaptcha{}, logger),
		Storefront:  service.NewStorefrontService(servers, products, operators, purchases, links, logger),
		Fulfillment: service.NewFulfillmentService(vouchers, console, logger),
		Tokens:      tokens,
		Login:       fakeLogin{},
	}
	return &testAPI{handler: NewRouter(deps, opts, logger), tokens: tokens, console: console}
}

func (a *testAPI) token(t *testing.T, userID string) string {
	t.Helper()
	raw, err := a.tokens.Issue(&auth.User{ID: userID, Username: "user" + userID})
	require.NoError(t, err)
	return raw
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// registerShop registers a server owned by user 100 with one online operator,
// one product and one voucher, and returns the server id.
func (a *testAPI) registerShop(t *testing.T, code string) string {
	t.Helper()
	owner := a.token(t, "100")

	rec := a.do(t, http.MethodPost, "/api/v1/servers", owner, models.RegisterServerRequest{
		Name: "Alpha", IP: "127.0.0.1", RCONPassword: "secret", RCONPort: 25575,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	serverID := decode(t, rec)["server"].(map[string]interface{})["id"].(string)
	base := "/api/v1/servers/" + serverID

	rec = a.do(t, http.MethodPost, base+"/operators", owner, models.AddOperatorRequest{
		Type: models.OperatorLvlupOther, Name: "LVLup", APIKey: "key",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, base+"/products", owner, models.ProductRequest{
		Captcha: "token", Name: "VIP", Description: "VIP rank", Commands: "give {player} diamond 1", LvlupOtherPrice: "5",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	productID := decode(t, rec)["product"].(map[string]interface{})["id"].(string)

	rec = a.do(t, http.MethodPost, base+"/vouchers", owner, models.GenerateVoucherRequest{ProductID: productID, VoucherCode: code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return serverID
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, Options{})

	rec := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = api.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ivshop_http_requests_total")
}

func TestOpenAPISpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openapi: 3.0.3\n"), 0o644))
	api := newTestAPI(t, Options{OpenAPIPath: path})

	rec := api.do(t, http.MethodGet, "/api/openapi.yaml", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "openapi: 3.0.3")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t, Options{})

	rec := api.do(t, http.MethodGet, "/api/v1/servers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/servers", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	api := newTestAPI(t, Options{})

	rec := api.do(t, http.MethodGet, "/api/v1/auth/login", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	state := cookies[0].Value
	assert.Contains(t, rec.Header().Get("Location"), "state="+state)

	callback := func(state, code string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?state="+state+"&code="+code, nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, callback("other", "good").Code)
	assert.Equal(t, http.StatusUnauthorized, callback(state, "bad").Code)

	rec = callback(state, "good")
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)

	rec = api.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", decode(t, rec)["id"])
}

func TestServerAdministration(t *testing.T) {
	api := newTestAPI(t, Options{})
	serverID := api.registerShop(t, "ADMIN1")
	owner := api.token(t, "100")

	rec := api.do(t, http.MethodGet, "/api/v1/servers", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = api.do(t, http.MethodGet, "/api/v1/servers/"+serverID+"/panel", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	panel := decode(t, rec)
	assert.EqualValues(t, 1, panel["product_count"])

	stranger := api.token(t, "999")
	rec = api.do(t, http.MethodGet, "/api/v1/servers/"+serverID+"/panel", stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/servers/"+serverID+"/website", owner, models.CustomizeWebsiteRequest{
		Admins: "999", Domain: "sklep.example.pl",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/v1/servers/"+serverID+"/panel", stranger, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/servers/"+serverID+"/rcon/test", owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/servers", owner, map[string]string{"server_name": "x"})
	assert.Equal(t, http.StatusLengthRequired, rec.Code)
	assert.Equal(t, "Uzupełnij informacje o serwerze.", decode(t, rec)["message"])
}

func TestRegisterServer_IgnoresContainerID(t *testing.T) {
	api := newTestAPI(t, Options{})
	owner := api.token(t, "100")

	rec := api.do(t, http.MethodPost, "/api/v1/servers", owner, map[string]interface{}{
		"server_name": "Alpha", "server_ip": "127.0.0.1", "rcon_password": "secret", "rcon_port": 25575,
		"container_id": "victim-mc",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	server := decode(t, rec)["server"].(map[string]interface{})
	assert.NotContains(t, server, "container_id")
}

func TestStorefrontAndRedeem(t *testing.T) {
	api := newTestAPI(t, Options{})
	serverID := api.registerShop(t, "SHOP01")

	rec := api.do(t, http.MethodGet, "/api/v1/shop/"+serverID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"api_key"`)

	rec = api.do(t, http.MethodGet, "/api/v1/shop/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	redeem := models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "SHOP01", ServerID: serverID}
	rec = api.do(t, http.MethodPost, "/api/v1/vouchers/redeem", "", redeem)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Voucher został wykorzystany.", decode(t, rec)["message"])
	assert.Equal(t, []string{"give Steve diamond 1"}, api.console.sent)

	rec = api.do(t, http.MethodPost, "/api/v1/vouchers/redeem", "", redeem)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Niepoprawny kod", decode(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/api/v1/vouchers/redeem", "", models.RedeemRequest{PlayerNick: "a!", VoucherCode: "X", ServerID: serverID})
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/vouchers/redeem", "", models.RedeemRequest{PlayerNick: "Steve"})
	assert.Equal(t, http.StatusLengthRequired, rec.Code)
}

func TestRedeem_ConsoleDownKeepsVoucher(t *testing.T) {
	api := newTestAPI(t, Options{})
	serverID := api.registerShop(t, "DOWN01")
	api.console.fails = true

	redeem := models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "DOWN01", ServerID: serverID}
	rec := api.do(t, http.MethodPost, "/api/v1/vouchers/redeem", "", redeem)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Wystąpił błąd podczas łączenia się do rcon.", decode(t, rec)["message"])

	api.console.fails = false
	rec = api.do(t, http.MethodPost, "/api/v1/vouchers/redeem", "", redeem)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedeem_RateLimited(t *testing.T) {
	api := newTestAPI(t, Options{RedeemRateLimit: 2})

	body := models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "NOPE", ServerID: "x"}
	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/api/v1/vouchers/redeem", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := api.do(t, http.MethodPost, "/api/v1/vouchers/redeem", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["message"])
}

func TestResolveDomain(t *testing.T) {
	api := newTestAPI(t, Options{})
	serverID := api.registerShop(t, "DOM001")
	owner := api.token(t, "100")

	rec := api.do(t, http.MethodPut, "/api/v1/servers/"+serverID+"/website", owner, models.CustomizeWebsiteRequest{Domain: "Sklep.Example.pl"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/shop/domain/sklep.example.pl", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, serverID, decode(t, rec)["server_id"])

	rec = api.do(t, http.MethodGet, "/api/v1/shop/domain/unknown.pl", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
