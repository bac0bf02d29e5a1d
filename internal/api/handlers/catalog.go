package handlers

import (
	"log/slog"
	"net/http"

	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/service"
)

// CatalogHandler manages products, payment operators, vouchers and links of a server.
type CatalogHandler struct {
	serverAccess
	catalog *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(registry *service.RegistryService, catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		serverAccess: serverAccess{registry: registry, logger: logger},
		catalog:      catalog,
	}
}

// AddProduct handles POST /api/v1/servers/{id}/products
func (h *CatalogHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}
	var req models.ProductRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.AddProduct(r.Context(), server.ID, req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondResult(w, "Dodano produkt.", "product", product)
}

// EditProduct handles PUT /api/v1/servers/{id}/products/{productId}
func (h *CatalogHandler) EditProduct(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}
	var req models.ProductRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.EditProduct(r.Context(), server.ID, r.PathValue("productId"), req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondResult(w, "Zapisano zmiany.", "product", product)
}

// DeleteProduct handles DELETE /api/v1/servers/{id}/products/{productId}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), server.ID, r.PathValue("productId")); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddOperator handles POST /api/v1/servers/{id}/operators
func (h *CatalogHandler) AddOperator(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}
	var req models.AddOperatorRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	op, err := h.catalog.AddOperator(r.Context(), server.ID, req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondResult(w, "Zapisano ustawienia", "operator", op)
}

// DeleteOperator handles DELETE /api/v1/servers/{id}/operators/{operatorId}
func (h *CatalogHandler) DeleteOperator(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteOperator(r.Context(), server.ID, r.PathValue("operatorId")); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateVoucher handles POST /api/v1/servers/{id}/vouchers
func (h *CatalogHandler) GenerateVoucher(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}
	var req models.GenerateVoucherRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	voucher, err := h.catalog.GenerateVoucher(r.Context(), server.ID, req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondResult(w, "Voucher został wygenerowany. Znajdziesz go w liście voucherów.", "voucher", voucher)
}

// ListVouchers handles GET /api/v1/servers/{id}/vouchers
func (h *CatalogHandler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}

	vouchers, err := h.catalog.ListVouchers(r.Context(), server.ID)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, vouchers)
}

// AddLink handles POST /api/v1/servers/{id}/links
func (h *CatalogHandler) AddLink(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}
	var req models.AddLinkRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	link, err := h.catalog.AddLink(r.Context(), server.ID, req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondResult(w, "Dodano link.", "link", link)
}

// DeleteLink handles DELETE /api/v1/servers/{id}/links/{linkId}
func (h *CatalogHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteLink(r.Context(), server.ID, r.PathValue("linkId")); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
