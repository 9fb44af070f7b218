package product

import (
	"context"
	"fmt"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/tx"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
)

// Service provides business logic for the Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
	}

	base.Hooks().OnBeforeCreate(svc.checkCodeUnique)
	base.Hooks().OnBeforeDelete(svc.blockDeleteWhenReferenced)

	return svc
}

// checkCodeUnique rejects a duplicate business code.
func (s *Service) checkCodeUnique(ctx context.Context, p *Product) error {
	exists, err := s.repo.ExistsByCode(ctx, p.Code)
	if err != nil {
		return fmt.Errorf("check product code: %w", err)
	}
	if exists {
		return apperror.NewDuplicate("product", "code", p.Code)
	}
	return nil
}

// blockDeleteWhenReferenced turns deletion of a referenced product into
// an integrity failure. The caller is expected to deactivate instead.
func (s *Service) blockDeleteWhenReferenced(ctx context.Context, p *Product) error {
	referenced, err := s.repo.IsReferenced(ctx, p.Code)
	if err != nil {
		return fmt.Errorf("check product references: %w", err)
	}
	if referenced {
		return apperror.NewIntegrity("product", "product is referenced by price rules or orders, deactivate it instead").
			WithDetail("code", p.Code)
	}
	return nil
}

// Deactivate marks the product unusable for new lines, keeping history intact.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetActive(ctx, code, false)
	})
}

// Reactivate makes the product sellable again.
func (s *Service) Reactivate(ctx context.Context, code string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetActive(ctx, code, true)
	})
}

// FindByCategory retrieves active products in a category.
func (s *Service) FindByCategory(ctx context.Context, category Category, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	if !isValidCategory(category) {
		return domain.ListResult[*Product]{}, apperror.NewValidation("invalid product category").
			WithDetail("value", string(category))
	}
	return s.repo.FindByCategory(ctx, category, filter)
}

// --- Subproducts ---

// SubproductService provides business logic for the Subproduct catalog.
type SubproductService struct {
	repo        SubproductRepository
	productRepo Repository
	txManager   tx.Manager
}

// NewSubproductService creates a new Subproduct service.
func NewSubproductService(repo SubproductRepository, productRepo Repository, txManager tx.Manager) *SubproductService {
	return &SubproductService{
		repo:        repo,
		productRepo: productRepo,
		txManager:   txManager,
	}
}

// Create validates the parent product exists and inserts the subproduct.
func (s *SubproductService) Create(ctx context.Context, sub *Subproduct) error {
	if err := sub.Validate(ctx); err != nil {
		return err
	}

	parent, err := s.productRepo.GetByCode(ctx, sub.ProductCode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("product", sub.ProductCode)
		}
		return fmt.Errorf("resolve parent product: %w", err)
	}
	if !parent.Active {
		return apperror.NewValidation("parent product is inactive").
			WithDetail("productCode", sub.ProductCode)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, sub)
	})
}

// GetByID retrieves a subproduct.
func (s *SubproductService) GetByID(ctx context.Context, subID id.ID) (*Subproduct, error) {
	sub, err := s.repo.GetByID(ctx, subID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("subproduct", subID.String())
		}
		return nil, err
	}
	return sub, nil
}

// Update modifies a subproduct. The parent product cannot change.
func (s *SubproductService) Update(ctx context.Context, sub *Subproduct) error {
	if err := sub.Validate(ctx); err != nil {
		return err
	}

	current, err := s.repo.GetByID(ctx, sub.ID)
	if err != nil {
		return err
	}
	if current.ProductCode != sub.ProductCode {
		return apperror.NewValidation("subproduct cannot be moved to another product").
			WithDetail("productCode", sub.ProductCode)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, sub)
	})
}

// Delete removes a subproduct, or deactivates it when history references it.
func (s *SubproductService) Delete(ctx context.Context, subID id.ID) error {
	referenced, err := s.repo.IsReferenced(ctx, subID)
	if err != nil {
		return fmt.Errorf("check subproduct references: %w", err)
	}
	if referenced {
		return apperror.NewIntegrity("subproduct", "subproduct is referenced by price rules or orders, deactivate it instead").
			WithDetail("subproductId", subID.String())
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetActive(ctx, subID, false)
	})
}

// Deactivate marks the subproduct unusable for new lines.
func (s *SubproductService) Deactivate(ctx context.Context, subID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetActive(ctx, subID, false)
	})
}

// ListByProduct retrieves subproducts of a parent product.
func (s *SubproductService) ListByProduct(ctx context.Context, productCode string, includeInactive bool) ([]*Subproduct, error) {
	return s.repo.ListByProduct(ctx, productCode, includeInactive)
}

// --- Modifications ---

// ModificationService provides business logic for the Modification catalog.
type ModificationService struct {
	*domain.CatalogService[*Modification]
	repo      ModificationRepository
	txManager tx.Manager
}

// NewModificationService creates a new Modification service.
func NewModificationService(repo ModificationRepository, txManager tx.Manager) *ModificationService {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Modification]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "modification",
	})

	return &ModificationService{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
	}
}

// Link associates the modification with a product or subproduct.
func (s *ModificationService) Link(ctx context.Context, modID id.ID, item ItemRef) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if item.IsProduct() {
			return s.repo.LinkProduct(ctx, modID, item.ProductCode)
		}
		return s.repo.LinkSubproduct(ctx, modID, item.SubproductID)
	})
}

// Unlink removes an association.
func (s *ModificationService) Unlink(ctx context.Context, modID id.ID, item ItemRef) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if item.IsProduct() {
			return s.repo.UnlinkProduct(ctx, modID, item.ProductCode)
		}
		return s.repo.UnlinkSubproduct(ctx, modID, item.SubproductID)
	})
}

// IsLinkedTo reports whether the modification applies to the item.
func (s *ModificationService) IsLinkedTo(ctx context.Context, modID id.ID, item ItemRef) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, err
	}
	return s.repo.IsLinkedTo(ctx, modID, item)
}

// ListForItem retrieves modifications applicable to the item.
func (s *ModificationService) ListForItem(ctx context.Context, item ItemRef) ([]*Modification, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListForItem(ctx, item)
}
