package commands

import (
	"fmt"
	"os"

	"github.com/CrazyWorldPL/IVshop/internal/api/handlers"
	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/rcon"
	"github.com/CrazyWorldPL/IVshop/internal/service"
)

// app wires repositories and services from cfg.
type app struct {
	db      *database.DB
	docker  *service.DockerService
	servers *database.ServerRepository
	status  *service.MCStatusClient

	registry    *service.RegistryService
	catalog     *service.CatalogService
	storefront  *service.StorefrontService
	fulfillment *service.FulfillmentService
}

func newApp() (*app, error) {
	db, err := database.New(database.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseDSN,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &app{db: db}

	var dockerConsole service.Console
	if cfg.DockerEnabled {
		a.docker, err = service.NewDockerService(logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize Docker service: %w", err)
		}
		dockerConsole = service.NewDockerConsole(a.docker, logger)
		logger.Info("Docker service initialized")
	}
	console := service.NewConsoleRouter(service.NewRCONConsole(rcon.NewClient(cfg.RCONTimeout)), dockerConsole, logger)

	a.servers = database.NewServerRepository(db)
	products := database.NewProductRepository(db)
	operators := database.NewOperatorRepository(db)
	vouchers := database.NewVoucherRepository(db)
	purchases := database.NewPurchaseRepository(db)
	links := database.NewLinkRepository(db)

	a.status = service.NewMCStatusClient(cfg.StatusAPIURL, cfg.StatusCacheTTL, logger)
	captcha := service.NewRecaptchaVerifier(cfg.RecaptchaSecret, logger)

	a.registry = service.NewRegistryService(a.servers, console, a.status, logger)
	a.catalog = service.NewCatalogService(products, operators, vouchers, purchases, links, captcha, logger)
	a.storefront = service.NewStorefrontService(a.servers, products, operators, purchases, links, logger)
	a.fulfillment = service.NewFulfillmentService(vouchers, console, logger)
	return a, nil
}

// logSource returns the container log streamer, or nil without Docker.
func (a *app) logSource() handlers.LogSource {
	if a.docker == nil {
		return nil
	}
	return a.docker
}

func (a *app) Close() {
	if a.docker != nil {
		a.docker.Close()
	}
	a.db.Close()
}

// mustApp is newApp for CLI commands, which exit on failure.
func mustApp() *app {
	a, err := newApp()
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}
	return a
}
