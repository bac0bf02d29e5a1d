package service

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CrazyWorldPL/IVshop/internal/apperr"
	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// env bundles repositories over one in-memory database.
type env struct {
	db        *database.DB
	servers   *database.ServerRepository
	products  *database.ProductRepository
	operators *database.OperatorRepository
	vouchers  *database.VoucherRepository
	purchases *database.PurchaseRepository
	links     *database.LinkRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.New(database.Options{Driver: "sqlite", Path: ":memory:"}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &env{
		db:        db,
		servers:   database.NewServerRepository(db),
		products:  database.NewProductRepository(db),
		operators: database.NewOperatorRepository(db),
		vouchers:  database.NewVoucherRepository(db),
		purchases: database.NewPurchaseRepository(db),
		links:     database.NewLinkRepository(db),
	}
}

// seed creates a server at addr with one product and returns both.
func (e *env) seed(t *testing.T, addr, commands string) (*models.Server, *models.Product) {
	t.Helper()
	ctx := context.Background()

	host, port := splitAddr(t, addr)
	server := &models.Server{Name: "alpha", IP: host, RCONPort: port, RCONPassword: "secret", OwnerID: "100"}
	require.NoError(t, e.servers.Create(ctx, server))

	product := &models.Product{ServerID: server.ID, Name: "VIP", Description: "VIP rank", Commands: commands}
	require.NoError(t, e.products.Create(ctx, product))
	return server, product
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func (e *env) voucher(t *testing.T, productID, code string) *models.Voucher {
	t.Helper()
	v := &models.Voucher{ProductID: productID, Code: code}
	require.NoError(t, e.vouchers.Create(context.Background(), v))
	return v
}

type sendCall struct {
	Target   models.ConsoleTarget
	Commands []string
	Player   string
}

// fakeConsole records calls and answers with configured results.
type fakeConsole struct {
	mu       sync.Mutex
	sends    []sendCall
	executed []string
	probes   int

	sendErr  error
	probeOK  bool
	probeErr error
	output   string
	delay    time.Duration
}

func (c *fakeConsole) Send(_ context.Context, target models.ConsoleTarget, commands []string, player string) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, sendCall{Target: target, Commands: commands, Player: player})
	return c.sendErr
}

func (c *fakeConsole) Probe(context.Context, models.ConsoleTarget) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes++
	return c.probeOK, c.probeErr
}

func (c *fakeConsole) Execute(_ context.Context, _ models.ConsoleTarget, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executed = append(c.executed, command)
	return c.output, c.sendErr
}

func (c *fakeConsole) sendCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func (c *fakeConsole) setSendErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

type fakeStatus struct {
	status *models.ServerStatus
	err    error
	calls  int
}

func (s *fakeStatus) Status(context.Context, string) (*models.ServerStatus, error) {
	s.calls++
	return s.status, s.err
}

type fakeCaptcha struct {
	ok  bool
	err error
}

func (c fakeCaptcha) Verify(context.Context, string) (bool, error) {
	return c.ok, c.err
}

// requireAppErr asserts err is an *apperr.Error of kind with HTTP code.
func requireAppErr(t *testing.T, err error, kind apperr.Kind, code int) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperr.IsKind(err, kind), "want kind %s, got %v", kind, err)
	appErr := apperr.As(err)
	require.Equal(t, code, appErr.Code)
	return appErr
}
