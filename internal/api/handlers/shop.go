package handlers

import (
	"log/slog"
	"net/http"

	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/service"
)

// ShopHandler serves the public storefront and voucher redemption.
type ShopHandler struct {
	storefront  *service.StorefrontService
	fulfillment *service.FulfillmentService
	logger      *slog.Logger
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(storefront *service.StorefrontService, fulfillment *service.FulfillmentService, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{
		storefront:  storefront,
		fulfillment: fulfillment,
		logger:      logger,
	}
}

// Shop handles GET /api/v1/shop/{id}
func (h *ShopHandler) Shop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.storefront.Shop(r.Context(), r.PathValue("id"))
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, shop)
}

// ResolveDomain handles GET /api/v1/shop/domain/{domain}
func (h *ShopHandler) ResolveDomain(w http.ResponseWriter, r *http.Request) {
	id, err := h.storefront.ResolveDomain(r.Context(), r.PathValue("domain"))
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"server_id": id})
}

// Redeem handles POST /api/v1/vouchers/redeem
func (h *ShopHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req models.RedeemRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	redemption, err := h.fulfillment.Redeem(r.Context(), req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Voucher redeemed over HTTP", "voucher_id", redemption.VoucherID, "server_id", redemption.ServerID)
	respondMessage(w, "Voucher został wykorzystany.")
}
