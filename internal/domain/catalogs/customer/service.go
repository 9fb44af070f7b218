package customer

import (
	"context"
	"fmt"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/tx"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
)

// Service provides business logic for the Customer catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Customer]
	repo      Repository
	addresses AddressRepository
	txManager tx.Manager
}

// NewService creates a new Customer service.
func NewService(repo Repository, addresses AddressRepository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "customer",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		addresses:      addresses,
		txManager:      txManager,
	}

	base.Hooks().OnBeforeCreate(svc.checkAliasUnique)
	base.Hooks().OnBeforeUpdate(svc.checkAliasUnique)

	return svc
}

// checkAliasUnique rejects a duplicate alias.
func (s *Service) checkAliasUnique(ctx context.Context, c *Customer) error {
	if c.Alias == nil || *c.Alias == "" {
		return nil
	}
	existing, err := s.repo.FindByAlias(ctx, *c.Alias)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("check alias: %w", err)
	}
	if existing.ID != c.ID {
		return apperror.NewDuplicate("customer", "alias", *c.Alias)
	}
	return nil
}

// TierFor returns the pricing tier for an optional customer reference.
// Orders without a customer price at the default tier.
func (s *Service) TierFor(ctx context.Context, customerID *id.ID) (Tier, error) {
	if customerID == nil || id.IsNil(*customerID) {
		return DefaultTier, nil
	}
	c, err := s.GetByID(ctx, *customerID)
	if err != nil {
		return "", err
	}
	return c.Tier, nil
}

// FindByTier retrieves customers in a tier.
func (s *Service) FindByTier(ctx context.Context, tier Tier, filter domain.ListFilter) (domain.ListResult[*Customer], error) {
	if !ValidTier(tier) {
		return domain.ListResult[*Customer]{}, apperror.NewValidation("invalid customer tier").
			WithDetail("value", string(tier))
	}
	return s.repo.FindByTier(ctx, tier, filter)
}

// --- Addresses ---

// AddAddress attaches a delivery address to an existing customer.
func (s *Service) AddAddress(ctx context.Context, addr *DeliveryAddress) error {
	if err := addr.Validate(ctx); err != nil {
		return err
	}

	exists, err := s.repo.Exists(ctx, addr.CustomerID)
	if err != nil {
		return fmt.Errorf("check customer: %w", err)
	}
	if !exists {
		return apperror.NewNotFound("customer", addr.CustomerID.String())
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.addresses.Create(ctx, addr)
	})
}

// GetAddress retrieves a delivery address.
func (s *Service) GetAddress(ctx context.Context, addrID id.ID) (*DeliveryAddress, error) {
	addr, err := s.addresses.GetByID(ctx, addrID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("address", addrID.String())
		}
		return nil, err
	}
	return addr, nil
}

// ListAddresses retrieves the customer's delivery addresses.
func (s *Service) ListAddresses(ctx context.Context, customerID id.ID, includeInactive bool) ([]*DeliveryAddress, error) {
	return s.addresses.ListByCustomer(ctx, customerID, includeInactive)
}

// DeactivateAddress marks an address unusable for new orders.
func (s *Service) DeactivateAddress(ctx context.Context, addrID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.addresses.SetActive(ctx, addrID, false)
	})
}
