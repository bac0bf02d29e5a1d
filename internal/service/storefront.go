package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CrazyWorldPL/IVshop/internal/apperr"
	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/models"
)

const storefrontPurchaseLimit = 5

var (
	ErrShopNotFound   = apperr.NotFound(http.StatusNotFound, "Nie znaleziono sklepu.")
	ErrDomainNotFound = apperr.NotFound(http.StatusNotFound, "Nie znaleziono sklepu dla tej domeny.")
)

// Storefront is the public view of a server's shop.
type Storefront struct {
	Server    StorefrontServer     `json:"server"`
	Products  []*models.Product    `json:"products"`
	Purchases []*models.Purchase   `json:"purchases"`
	Operators []StorefrontPayment  `json:"payment_operators"`
	Links     []*models.NavbarLink `json:"navigation_links"`
}

// StorefrontServer is the display configuration of a server.
type StorefrontServer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IP        string `json:"ip"`
	Logo      string `json:"logo"`
	OwnCSS    string `json:"own_css"`
	ShopStyle string `json:"shop_style"`
	Online    bool   `json:"online"`
	Version   string `json:"version"`
	Players   string `json:"players"`
}

// StorefrontPayment names an enabled payment method without its credentials.
type StorefrontPayment struct {
	Type models.OperatorType `json:"operator_type"`
	Name string              `json:"operator_name"`
}

// StorefrontService serves the public shop pages.
type StorefrontService struct {
	servers   *database.ServerRepository
	products  *database.ProductRepository
	operators *database.OperatorRepository
	purchases *database.PurchaseRepository
	links     *database.LinkRepository
	logger    *slog.Logger
}

// NewStorefrontService creates a new storefront service
func NewStorefrontService(
	servers *database.ServerRepository,
	products *database.ProductRepository,
	operators *database.OperatorRepository,
	purchases *database.PurchaseRepository,
	links *database.LinkRepository,
	logger *slog.Logger,
) *StorefrontService {
	return &StorefrontService{
		servers:   servers,
		products:  products,
		operators: operators,
		purchases: purchases,
		links:     links,
		logger:    logger,
	}
}

// Shop assembles the storefront of serverID.
func (s *StorefrontService) Shop(ctx context.Context, serverID string) (*Storefront, error) {
	server, err := s.servers.FindByID(ctx, serverID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, apperr.Internal(err)
	}

	shop := &Storefront{
		Server: StorefrontServer{
			ID:        server.ID,
			Name:      server.Name,
			IP:        server.IP,
			Logo:      server.Logo,
			OwnCSS:    server.OwnCSS,
			ShopStyle: server.ShopStyle,
			Online:    server.Online,
			Version:   server.Version,
			Players:   server.Players,
		},
	}

	if shop.Products, err = s.products.ListByServer(ctx, serverID); err != nil {
		return nil, apperr.Internal(err)
	}
	if shop.Purchases, err = s.purchases.RecentFulfilled(ctx, serverID, storefrontPurchaseLimit); err != nil {
		return nil, apperr.Internal(err)
	}
	if shop.Links, err = s.links.ListByServer(ctx, serverID); err != nil {
		return nil, apperr.Internal(err)
	}
	ops, err := s.operators.ListByServer(ctx, serverID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, op := range ops {
		shop.Operators = append(shop.Operators, StorefrontPayment{Type: op.Type, Name: op.Name})
	}
	return shop, nil
}

// ResolveDomain returns the id of the server whose shop is served on domain.
func (s *StorefrontService) ResolveDomain(ctx context.Context, domain string) (string, error) {
	server, err := s.servers.FindByDomain(ctx, strings.ToLower(strings.TrimSpace(domain)))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", ErrDomainNotFound
		}
		return "", apperr.Internal(err)
	}
	return server.ID, nil
}
