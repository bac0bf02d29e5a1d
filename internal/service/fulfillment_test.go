package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyWorldPL/IVshop/internal/apperr"
	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/rcon"
	"github.com/CrazyWorldPL/IVshop/internal/rcon/rcontest"
)

func TestValidPlayerNick(t *testing.T) {
	tests := map[string]bool{
		"ab":                false,
		"abc":               true,
		"Steve_01":          true,
		"this-name!":        false,
		"Notch":             true,
		"sixteen_chars_ok":  true,
		"seventeen_chars_x": false,
		"":                  false,
		"spa ce":            false,
		"Stéve":             false,
		" Steve":            false,
	}
	for nick, want := range tests {
		assert.Equal(t, want, ValidPlayerNick(nick), nick)
	}
}

func TestRedeem_DeliversOverRCONAndConsumesVoucher(t *testing.T) {
	srv := rcontest.NewServer("secret")
	defer srv.Close()

	e := newEnv(t)
	server, product := e.seed(t, srv.Addr(), "lp user {player} parent add vip; give {player} diamond 1")
	v := e.voucher(t, product.ID, "ABC123")

	svc := NewFulfillmentService(e.vouchers, NewRCONConsole(rcon.NewClient(time.Second)), testLogger())
	ctx := context.Background()

	redemption, err := svc.Redeem(ctx, models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "ABC123", ServerID: server.ID})
	require.NoError(t, err)
	assert.Equal(t, v.ID, redemption.VoucherID)
	assert.Equal(t, []string{"lp user Steve parent add vip", "give Steve diamond 1"}, srv.Commands())

	got, err := e.vouchers.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUsed, got.Status)
	assert.Equal(t, "Steve", got.Player)
}

func TestRedeem_SecondAttemptIsNotFound(t *testing.T) {
	e := newEnv(t)
	server, product := e.seed(t, "127.0.0.1:25575", "say {player}")
	e.voucher(t, product.ID, "ONCE")

	console := &fakeConsole{}
	svc := NewFulfillmentService(e.vouchers, console, testLogger())
	req := models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "ONCE", ServerID: server.ID}

	_, err := svc.Redeem(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), req)
	requireAppErr(t, err, apperr.KindNotFound, http.StatusUnauthorized)
	assert.Equal(t, 1, console.sendCount())
}

func TestRedeem_CodeOfAnotherServerIsNotFound(t *testing.T) {
	e := newEnv(t)
	_, product := e.seed(t, "127.0.0.1:25575", "say {player}")
	e.voucher(t, product.ID, "SHARED")
	other, _ := e.seed(t, "127.0.0.1:25576", "say other")

	console := &fakeConsole{}
	svc := NewFulfillmentService(e.vouchers, console, testLogger())

	_, err := svc.Redeem(context.Background(), models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "SHARED", ServerID: other.ID})
	requireAppErr(t, err, apperr.KindNotFound, http.StatusUnauthorized)
	assert.Zero(t, console.sendCount())
}

func TestRedeem_ValidationBeforeLookup(t *testing.T) {
	console := &fakeConsole{}
	store := &countingStore{}
	svc := NewFulfillmentService(store, console, testLogger())
	ctx := context.Background()

	_, err := svc.Redeem(ctx, models.RedeemRequest{PlayerNick: "Steve", ServerID: "srv"})
	requireAppErr(t, err, apperr.KindValidation, http.StatusLengthRequired)

	_, err = svc.Redeem(ctx, models.RedeemRequest{PlayerNick: "ab", VoucherCode: "X", ServerID: "srv"})
	requireAppErr(t, err, apperr.KindValidation, http.StatusNotAcceptable)

	_, err = svc.Redeem(ctx, models.RedeemRequest{PlayerNick: "this-name!", VoucherCode: "X", ServerID: "srv"})
	requireAppErr(t, err, apperr.KindValidation, http.StatusNotAcceptable)

	assert.Zero(t, store.lookups)
	assert.Zero(t, console.sendCount())
}

func TestRedeem_UnreachableConsoleKeepsVoucherRedeemable(t *testing.T) {
	e := newEnv(t)
	server, product := e.seed(t, "127.0.0.1:25575", "say {player}")
	v := e.voucher(t, product.ID, "RETRY")

	console := &fakeConsole{sendErr: &rcon.ConnectivityError{Addr: "127.0.0.1:25575", Op: "dial", Err: errors.New("connection refused")}}
	svc := NewFulfillmentService(e.vouchers, console, testLogger())
	req := models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "RETRY", ServerID: server.ID}
	ctx := context.Background()

	_, err := svc.Redeem(ctx, req)
	appErr := requireAppErr(t, err, apperr.KindConnectivity, http.StatusUnauthorized)
	assert.Equal(t, "Wystąpił błąd podczas łączenia się do rcon.", appErr.Message)

	got, err := e.vouchers.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUnused, got.Status)

	console.setSendErr(nil)
	_, err = svc.Redeem(ctx, req)
	require.NoError(t, err)
}

func TestRedeem_RealUnreachableHost(t *testing.T) {
	srv := rcontest.NewServer("secret")
	addr := srv.Addr()
	srv.Close()

	e := newEnv(t)
	server, product := e.seed(t, addr, "say {player}")
	v := e.voucher(t, product.ID, "DOWN")

	svc := NewFulfillmentService(e.vouchers, NewRCONConsole(rcon.NewClient(200*time.Millisecond)), testLogger())

	_, err := svc.Redeem(context.Background(), models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "DOWN", ServerID: server.ID})
	requireAppErr(t, err, apperr.KindConnectivity, http.StatusUnauthorized)

	got, err := e.vouchers.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUnused, got.Status)
}

func TestRedeem_ConcurrentSameCodeDispatchesOnce(t *testing.T) {
	e := newEnv(t)
	server, product := e.seed(t, "127.0.0.1:25575", "say {player}")
	e.voucher(t, product.ID, "RACE")

	console := &fakeConsole{delay: 20 * time.Millisecond}
	svc := NewFulfillmentService(e.vouchers, console, testLogger())

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "RACE", ServerID: server.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.IsKind(err, apperr.KindNotFound), apperr.IsKind(err, apperr.KindConflict):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, rejected)
	assert.Equal(t, 1, console.sendCount())
}

func TestRedeem_LostCompareAndSwapIsConflict(t *testing.T) {
	e := newEnv(t)
	server, product := e.seed(t, "127.0.0.1:25575", "say {player}")
	e.voucher(t, product.ID, "CAS")

	store := &commitOverride{voucherStore: e.vouchers, err: database.ErrVoucherUsed}
	svc := NewFulfillmentService(store, &fakeConsole{}, testLogger())

	_, err := svc.Redeem(context.Background(), models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "CAS", ServerID: server.ID})
	requireAppErr(t, err, apperr.KindConflict, http.StatusConflict)
}

// A storage failure after delivery leaves the voucher unused: the commands
// have run but the code can be redeemed again. This documents the gap.
func TestRedeem_CommitFailureAfterDispatchLeavesVoucherReusable(t *testing.T) {
	e := newEnv(t)
	server, product := e.seed(t, "127.0.0.1:25575", "say {player}")
	v := e.voucher(t, product.ID, "GAP")

	console := &fakeConsole{}
	failing := &commitOverride{voucherStore: e.vouchers, err: errors.New("disk I/O error")}
	req := models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "GAP", ServerID: server.ID}
	ctx := context.Background()

	_, err := NewFulfillmentService(failing, console, testLogger()).Redeem(ctx, req)
	requireAppErr(t, err, apperr.KindInternal, http.StatusInternalServerError)
	assert.Equal(t, 1, console.sendCount(), "commands were delivered before the commit failed")

	got, err := e.vouchers.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUnused, got.Status)

	_, err = NewFulfillmentService(e.vouchers, console, testLogger()).Redeem(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, console.sendCount(), "the same voucher was fulfilled twice")
}

func TestRedeem_ClientCancelAfterDispatchStillConsumesVoucher(t *testing.T) {
	e := newEnv(t)
	server, product := e.seed(t, "127.0.0.1:25575", "say {player}")
	v := e.voucher(t, product.ID, "HANGUP")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	console := &cancelAfterSend{fakeConsole: &fakeConsole{}, cancel: cancel}
	svc := NewFulfillmentService(e.vouchers, console, testLogger())
	req := models.RedeemRequest{PlayerNick: "Steve", VoucherCode: "HANGUP", ServerID: server.ID}

	_, err := svc.Redeem(ctx, req)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	got, err := e.vouchers.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUsed, got.Status)
	assert.Equal(t, "Steve", got.Player)

	_, err = svc.Redeem(context.Background(), req)
	requireAppErr(t, err, apperr.KindNotFound, http.StatusUnauthorized)
	assert.Equal(t, 1, console.sendCount())
}

// cancelAfterSend cancels the request context once commands were delivered,
// like a client closing its connection mid-request.
type cancelAfterSend struct {
	*fakeConsole
	cancel context.CancelFunc
}

func (c *cancelAfterSend) Send(ctx context.Context, target models.ConsoleTarget, commands []string, player string) error {
	err := c.fakeConsole.Send(ctx, target, commands, player)
	c.cancel()
	return err
}

type countingStore struct {
	lookups int
}

func (s *countingStore) FindRedeemable(context.Context, string, string) (*models.Redemption, error) {
	s.lookups++
	return nil, database.ErrNotFound
}

func (s *countingStore) MarkUsed(context.Context, string, string) error {
	return nil
}

// commitOverride delegates lookups and fails every commit with err.
type commitOverride struct {
	voucherStore
	err error
}

func (s *commitOverride) MarkUsed(context.Context, string, string) error {
	return s.err
}
