package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/CrazyWorldPL/IVshop/internal/apperr"
	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/metrics"
	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// commitTimeout bounds the voucher commit, which runs detached from the
// request once commands were delivered.
const commitTimeout = 10 * time.Second

var playerNickPattern = regexp.MustCompile(`^\w{3,16}$`)

// ValidPlayerNick reports whether nick is 3 to 16 word characters.
func ValidPlayerNick(nick string) bool {
	return playerNickPattern.MatchString(nick)
}

var (
	ErrMissingRedeemData = apperr.Validation(http.StatusLengthRequired, "Uzupełnij dane.")
	ErrInvalidNick       = apperr.Validation(http.StatusNotAcceptable, "Niepoprawny format nicku.")
	ErrInvalidCode       = apperr.NotFound(http.StatusUnauthorized, "Niepoprawny kod")
	ErrRedeemRCON        = apperr.Connectivity(http.StatusUnauthorized, "Wystąpił błąd podczas łączenia się do rcon.", nil)
	ErrVoucherTaken      = apperr.Conflict("Voucher został już wykorzystany.")
)

// voucherStore is the slice of the voucher repository redemption needs.
type voucherStore interface {
	FindRedeemable(ctx context.Context, code, serverID string) (*models.Redemption, error)
	MarkUsed(ctx context.Context, id, player string) error
}

// FulfillmentService redeems vouchers: validate, look up, dispatch, commit.
type FulfillmentService struct {
	vouchers voucherStore
	console  Console
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(vouchers voucherStore, console Console, logger *slog.Logger) *FulfillmentService {
	return &FulfillmentService{
		vouchers: vouchers,
		console:  console,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// Redeem fulfils one voucher for player on serverID. The voucher is marked
// used only after every command was delivered.
//
// If the commit fails after delivery the commands have already run and the
// voucher stays redeemable. That window is not closed here.
func (s *FulfillmentService) Redeem(ctx context.Context, req models.RedeemRequest) (*models.Redemption, error) {
	req.PlayerNick = strings.TrimSpace(req.PlayerNick)
	req.VoucherCode = strings.TrimSpace(req.VoucherCode)

	if req.PlayerNick == "" || req.VoucherCode == "" || req.ServerID == "" {
		metrics.RecordRedemption(metrics.ResultInvalid)
		return nil, ErrMissingRedeemData
	}
	if !ValidPlayerNick(req.PlayerNick) {
		metrics.RecordRedemption(metrics.ResultInvalid)
		return nil, ErrInvalidNick
	}

	// Held across lookup, dispatch and commit so one process never delivers
	// the same voucher twice.
	unlock := s.locks.Lock(req.ServerID + "\x00" + req.VoucherCode)
	defer unlock()

	redemption, err := s.vouchers.FindRedeemable(ctx, req.VoucherCode, req.ServerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.RecordRedemption(metrics.ResultNotFound)
			return nil, ErrInvalidCode
		}
		s.logger.ErrorContext(ctx, "Voucher lookup failed", "server_id", req.ServerID, "error", err)
		metrics.RecordRedemption(metrics.ResultError)
		return nil, apperr.Internal(err)
	}

	logger := s.logger.With("server_id", req.ServerID, "voucher_id", redemption.VoucherID, "player", req.PlayerNick)

	start := time.Now()
	err = s.console.Send(ctx, redemption.Target(), redemption.CommandList(), req.PlayerNick)
	if err != nil {
		metrics.RecordDispatch(metrics.ResultConnectivity, time.Since(start))
		metrics.RecordRedemption(metrics.ResultConnectivity)
		logger.WarnContext(ctx, "Voucher commands not delivered", "error", err)
		return nil, ErrRedeemRCON.Wrap(err)
	}
	metrics.RecordDispatch(metrics.ResultSuccess, time.Since(start))

	// The commands already ran; a client hanging up must not undo the commit.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := s.vouchers.MarkUsed(commitCtx, redemption.VoucherID, req.PlayerNick); err != nil {
		if errors.Is(err, database.ErrVoucherUsed) {
			// Another process committed first; our delivery was a duplicate.
			logger.ErrorContext(ctx, "Voucher consumed concurrently after dispatch")
			metrics.RecordRedemption(metrics.ResultConflict)
			return nil, ErrVoucherTaken
		}
		logger.ErrorContext(ctx, "Commands delivered but voucher not marked used", "error", err)
		metrics.RecordRedemption(metrics.ResultError)
		return nil, apperr.Internal(err)
	}

	logger.InfoContext(ctx, "Voucher redeemed", "product_id", redemption.ProductID)
	metrics.RecordRedemption(metrics.ResultSuccess)
	return redemption, nil
}
