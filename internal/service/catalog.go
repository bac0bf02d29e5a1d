package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/CrazyWorldPL/IVshop/internal/apperr"
	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/models"
)

const (
	voucherCodeLength   = 6
	voucherCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	voucherCodeAttempts = 5

	minOnlinePrice = 1.00
	maxOnlinePrice = 999.99
)

var (
	ErrMissingCaptcha     = apperr.Validation(http.StatusLengthRequired, "Uzupełnij recaptche.")
	ErrMissingProductData = apperr.Validation(http.StatusLengthRequired, "Uzupełnij informacje o produkcie.")
	ErrNoOperators        = apperr.Validation(http.StatusLengthRequired, "Aby dodać produkt wybierz operatora płatności.")
	ErrPriceTooLow        = apperr.Validation(http.StatusUnauthorized, "Minimalna cena wynosi 1 PLN.")
	ErrPriceTooHigh       = apperr.Validation(http.StatusUnauthorized, "Maksymalna cena wynosi 999.99 PLN.")
	ErrProductNotFound    = apperr.NotFound(http.StatusNotFound, "Taki produkt nie istnieje.")
	ErrProductUnknown     = apperr.NotFound(http.StatusUnauthorized, "Taki produkt nie istnieje.")

	ErrOperatorType        = apperr.NotFound(http.StatusNotFound, "Taki operator nie został znaleziony.")
	ErrMissingOperatorData = apperr.Validation(http.StatusLengthRequired, "Uzupełnij informacje o operatorze.")
	ErrOperatorExists      = apperr.Conflict("Dodałeś już takiego operatora.")
	ErrOperatorNotFound    = apperr.NotFound(http.StatusNotFound, "Nie znaleziono takiego operatora.")

	ErrVoucherCodeExists = apperr.Conflict("Taki kod vouchera już istnieje.")

	ErrMissingLinkData = apperr.Validation(http.StatusLengthRequired, "Uzupełnij dane.")
	ErrLinkNotFound    = apperr.NotFound(http.StatusNotFound, "Link o takim id nie istnieje.")
)

// CatalogService manages what a server sells: products, payment operators,
// vouchers and storefront links.
type CatalogService struct {
	products  *database.ProductRepository
	operators *database.OperatorRepository
	vouchers  *database.VoucherRepository
	purchases *database.PurchaseRepository
	links     *database.LinkRepository
	captcha   CaptchaVerifier
	codeLocks *keyedMutex
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	products *database.ProductRepository,
	operators *database.OperatorRepository,
	vouchers *database.VoucherRepository,
	purchases *database.PurchaseRepository,
	links *database.LinkRepository,
	captcha CaptchaVerifier,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:  products,
		operators: operators,
		vouchers:  vouchers,
		purchases: purchases,
		links:     links,
		captcha:   captcha,
		codeLocks: newKeyedMutex(),
		logger:    logger,
	}
}

// AddProduct creates a product after the captcha check.
func (s *CatalogService) AddProduct(ctx context.Context, serverID string, req models.ProductRequest) (*models.Product, error) {
	if req.Captcha == "" {
		return nil, ErrMissingCaptcha
	}
	ok, err := s.captcha.Verify(ctx, req.Captcha)
	if err != nil {
		s.logger.WarnContext(ctx, "Captcha verification failed", "error", err)
		return nil, ErrMissingCaptcha.Wrap(err)
	}
	if !ok {
		return nil, ErrMissingCaptcha
	}

	product, err := s.buildProduct(ctx, serverID, req)
	if err != nil {
		return nil, err
	}
	product.ServerID = serverID
	if err := s.products.Create(ctx, product); err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "Product added", "server_id", serverID, "product_id", product.ID)
	return product, nil
}

// EditProduct replaces a product's fields under a row lock.
func (s *CatalogService) EditProduct(ctx context.Context, serverID, productID string, req models.ProductRequest) (*models.Product, error) {
	if _, err := s.products.FindByID(ctx, serverID, productID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Internal(err)
	}
	fields, err := s.buildProduct(ctx, serverID, req)
	if err != nil {
		return nil, err
	}

	product, err := s.products.Update(ctx, serverID, productID, func(p *models.Product) error {
		p.Name = fields.Name
		p.Description = fields.Description
		p.Image = fields.Image
		p.Commands = fields.Commands
		p.LvlupOtherPrice = fields.LvlupOtherPrice
		p.LvlupSMSNumber = fields.LvlupSMSNumber
		p.MicroSMSNumber = fields.MicroSMSNumber
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "Product edited", "server_id", serverID, "product_id", productID)
	return product, nil
}

// DeleteProduct soft-deletes a product; its vouchers stop being redeemable.
func (s *CatalogService) DeleteProduct(ctx context.Context, serverID, productID string) error {
	if err := s.products.Delete(ctx, serverID, productID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrProductUnknown
		}
		return apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "Product deleted", "server_id", serverID, "product_id", productID)
	return nil
}

// buildProduct validates req against the server's operators. Each configured
// operator type needs its price field.
func (s *CatalogService) buildProduct(ctx context.Context, serverID string, req models.ProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" || description == "" || len(models.SplitCommands(req.Commands)) == 0 {
		return nil, ErrMissingProductData
	}

	ops, err := s.operators.ListByServer(ctx, serverID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(ops) == 0 {
		return nil, ErrNoOperators
	}

	lvlupSMS := optional(req.LvlupSMSNumber)
	microSMS := optional(req.MicroSMSNumber)
	var onlinePrice *float64
	if raw := strings.TrimSpace(req.LvlupOtherPrice); raw != "" {
		price, err := ParsePrice(raw)
		if err != nil {
			return nil, err
		}
		onlinePrice = &price
	}

	for _, op := range ops {
		switch op.Type {
		case models.OperatorLvlupSMS:
			if lvlupSMS == nil {
				return nil, ErrMissingProductData
			}
		case models.OperatorLvlupOther:
			if onlinePrice == nil {
				return nil, ErrMissingProductData
			}
		case models.OperatorMicroSMS:
			if microSMS == nil {
				return nil, ErrMissingProductData
			}
		}
	}

	return &models.Product{
		Name:            name,
		Description:     description,
		Image:           strings.TrimSpace(req.Image),
		Commands:        req.Commands,
		LvlupOtherPrice: onlinePrice,
		LvlupSMSNumber:  lvlupSMS,
		MicroSMSNumber:  microSMS,
	}, nil
}

// ParsePrice parses an online price, rounds it to grosze and checks the
// allowed range.
func ParsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ErrMissingProductData
	}
	price = math.Round(price*100) / 100
	if price < minOnlinePrice {
		return 0, ErrPriceTooLow
	}
	if price > maxOnlinePrice {
		return 0, ErrPriceTooHigh
	}
	return price, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// AddOperator configures a payment operator. Each type may be added once per server.
func (s *CatalogService) AddOperator(ctx context.Context, serverID string, req models.AddOperatorRequest) (*models.PaymentOperator, error) {
	if !req.Type.Valid() {
		return nil, ErrOperatorType
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrMissingOperatorData
	}

	exists, err := s.operators.ExistsForType(ctx, serverID, req.Type)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, ErrOperatorExists
	}

	creds := req.Credentials()
	if err := creds.Validate(req.Type); err != nil {
		return nil, ErrMissingOperatorData.Wrap(err)
	}

	op := &models.PaymentOperator{
		ServerID:    serverID,
		Type:        req.Type,
		Name:        name,
		Credentials: creds,
	}
	if err := s.operators.Create(ctx, op); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrOperatorExists
		}
		return nil, apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "Payment operator added", "server_id", serverID, "type", op.Type)
	return op, nil
}

// DeleteOperator removes a payment operator of the server.
func (s *CatalogService) DeleteOperator(ctx context.Context, serverID, operatorID string) error {
	if err := s.operators.Delete(ctx, serverID, operatorID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrOperatorNotFound
		}
		return apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "Payment operator removed", "server_id", serverID, "operator_id", operatorID)
	return nil
}

// GenerateVoucher creates an unused voucher for a product of the server.
// An empty code is replaced with a random one.
func (s *CatalogService) GenerateVoucher(ctx context.Context, serverID string, req models.GenerateVoucherRequest) (*models.Voucher, error) {
	if _, err := s.products.FindByID(ctx, serverID, req.ProductID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrProductUnknown
		}
		return nil, apperr.Internal(err)
	}

	// Codes are unique per server, which the schema cannot express.
	unlock := s.codeLocks.Lock(serverID)
	defer unlock()

	code := strings.TrimSpace(req.VoucherCode)
	if code != "" {
		exists, err := s.vouchers.CodeExistsOnServer(ctx, serverID, code)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if exists {
			return nil, ErrVoucherCodeExists
		}
	} else {
		var err error
		if code, err = s.uniqueCode(ctx, serverID); err != nil {
			return nil, err
		}
	}

	voucher := &models.Voucher{ProductID: req.ProductID, Code: code}
	if err := s.vouchers.Create(ctx, voucher); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrVoucherCodeExists
		}
		return nil, apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "Voucher generated", "server_id", serverID, "product_id", req.ProductID, "voucher_id", voucher.ID)
	return voucher, nil
}

func (s *CatalogService) uniqueCode(ctx context.Context, serverID string) (string, error) {
	for range voucherCodeAttempts {
		code, err := RandomCode(voucherCodeLength)
		if err != nil {
			return "", apperr.Internal(err)
		}
		exists, err := s.vouchers.CodeExistsOnServer(ctx, serverID, code)
		if err != nil {
			return "", apperr.Internal(err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperr.Internal(fmt.Errorf("no free voucher code after %d attempts", voucherCodeAttempts))
}

// RandomCode returns n characters drawn uniformly from [A-Za-z0-9].
func RandomCode(n int) (string, error) {
	const limit = 256 - 256%len(voucherCodeAlphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, voucherCodeAlphabet[int(b)%len(voucherCodeAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// ListVouchers returns every voucher of the server's products.
func (s *CatalogService) ListVouchers(ctx context.Context, serverID string) ([]*models.Voucher, error) {
	vouchers, err := s.vouchers.ListByServer(ctx, serverID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return vouchers, nil
}

// AddLink adds a storefront navigation link.
func (s *CatalogService) AddLink(ctx context.Context, serverID string, req models.AddLinkRequest) (*models.NavbarLink, error) {
	name, url := strings.TrimSpace(req.Name), strings.TrimSpace(req.URL)
	if name == "" || url == "" {
		return nil, ErrMissingLinkData
	}
	link := &models.NavbarLink{ServerID: serverID, Name: name, URL: url}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, apperr.Internal(err)
	}
	return link, nil
}

// DeleteLink removes a storefront navigation link.
func (s *CatalogService) DeleteLink(ctx context.Context, serverID, linkID string) error {
	if linkID == "" {
		return ErrMissingLinkData
	}
	if err := s.links.Delete(ctx, serverID, linkID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrLinkNotFound
		}
		return apperr.Internal(err)
	}
	return nil
}

// Panel is the admin overview of one server.
type Panel struct {
	Server          *models.Server            `json:"server"`
	ProductCount    int64                     `json:"product_count"`
	PurchaseCount   int64                     `json:"purchase_count"`
	Purchases       []*models.Purchase        `json:"purchases"`
	Products        []*models.Product         `json:"products"`
	Sales           []database.ProductSales   `json:"sales"`
	Vouchers        []*models.Voucher         `json:"vouchers"`
	Operators       []*models.PaymentOperator `json:"operators"`
	AssignedTypes   []models.OperatorType     `json:"assigned_operator_types"`
	NavigationLinks []*models.NavbarLink      `json:"navigation_links"`
}

// Panel assembles the admin overview of server.
func (s *CatalogService) Panel(ctx context.Context, server *models.Server) (*Panel, error) {
	panel := &Panel{Server: server}
	var err error

	if panel.ProductCount, err = s.products.CountByServer(ctx, server.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	if panel.PurchaseCount, err = s.purchases.CountFulfilled(ctx, server.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	if panel.Purchases, err = s.purchases.ListByServer(ctx, server.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	if panel.Products, err = s.products.ListByServer(ctx, server.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	if panel.Sales, err = s.purchases.SalesByProduct(ctx, server.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	if panel.Vouchers, err = s.vouchers.ListByServer(ctx, server.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	if panel.Operators, err = s.operators.ListByServer(ctx, server.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	if panel.NavigationLinks, err = s.links.ListByServer(ctx, server.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	for _, op := range panel.Operators {
		panel.AssignedTypes = append(panel.AssignedTypes, op.Type)
	}
	return panel, nil
}
