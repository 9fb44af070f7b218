// Package main seeds the database with a starting catalog: an admin
// user, the base chicken cuts, their subproducts and the public price
// ladder. Intended for fresh installations and local development.
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/auth"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/price"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres/auth_repo"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres/catalog_repo"
	"github.com/Essau-dev/PolleriaMontiel/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	if err := seedAdmin(ctx, txManager); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}
	if err := seedCatalog(ctx, txManager); err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}
	if err := seedPrices(ctx, txManager); err != nil {
		log.Fatalw("failed to seed prices", "error", err)
	}

	log.Info("seed complete")
}

func seedAdmin(ctx context.Context, txManager *postgres.TxManager) error {
	userRepo := auth_repo.NewUserRepo(txManager)

	username := envOr("SEED_ADMIN_USER", "admin")
	password := envOr("SEED_ADMIN_PASSWORD", "cambiame1")

	exists, err := userRepo.Exists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := auth.NewUser(username, string(hash), auth.RoleAdministrador)
	user.FullName = "Administrador"
	return userRepo.Create(ctx, user)
}

func seedCatalog(ctx context.Context, txManager *postgres.TxManager) error {
	productRepo := catalog_repo.NewProductRepo(txManager)
	subRepo := catalog_repo.NewSubproductRepo(txManager)
	products := product.NewService(productRepo, txManager)
	subproducts := product.NewSubproductService(subRepo, productRepo, txManager)

	cuts := []struct {
		code, name string
		subs       []string
	}{
		{"PECH", "Pechuga", []string{"Pechuga sin hueso", "Milanesa"}},
		{"PIER", "Pierna y muslo", []string{"Pierna", "Muslo"}},
		{"ALA", "Ala", nil},
		{"POLENT", "Pollo entero", []string{"Pollo partido"}},
		{"MENU", "Menudencia", []string{"Molleja", "Higado", "Pata"}},
	}

	for _, cut := range cuts {
		if _, err := products.GetByCode(ctx, cut.code); err == nil {
			continue
		}

		p := product.NewProduct(cut.code, cut.name, product.CategoryPollo)
		if err := products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %s: %w", cut.code, err)
		}

		for _, name := range cut.subs {
			sub := product.NewSubproduct(cut.code, name)
			if err := subproducts.Create(ctx, sub); err != nil {
				return fmt.Errorf("create subproduct %q: %w", name, err)
			}
		}
	}

	return nil
}

// seedPrices installs the public price ladder for every cut. Other
// tiers are managed from the back office.
func seedPrices(ctx context.Context, txManager *postgres.TxManager) error {
	priceRepo := catalog_repo.NewPriceRuleRepo(txManager)
	prices := price.NewService(priceRepo, txManager)

	ladder := []struct {
		code       string
		pricePerKg float64
	}{
		{"PECH", 145.00},
		{"PIER", 98.00},
		{"ALA", 92.00},
		{"POLENT", 85.00},
		{"MENU", 60.00},
	}

	for _, step := range ladder {
		item := product.ItemRef{Kind: product.KindProduct, ProductCode: step.code}

		existing, err := prices.ListForItem(ctx, item, domain.DefaultListFilter())
		if err != nil {
			return err
		}
		if existing.TotalCount > 0 {
			continue
		}

		rule := price.NewRule(item, customer.TierPublico, types.NewWeightFromFloat64(0), types.NewMoney(step.pricePerKg))
		if err := prices.Create(ctx, rule); err != nil {
			return fmt.Errorf("create price rule for %s: %w", step.code, err)
		}
	}

	return nil
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
