// Package cart is the cart service: data access for a visitor's line items
// plus the merge-on-login engine. Every operation takes the owner identity
// explicitly; there is no ambient "current user".
package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/samantaanjo/go_storefront/internal/domain"
	"github.com/samantaanjo/go_storefront/internal/repository"
)

var ErrProductNotFound = errors.New("product not found")

type Service struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    Cache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewService(repo repository.CartRepository, products repository.ProductRepository, cache Cache) *Service {
	return &Service{
		repo:     repo,
		products: products,
		cache:    cache,
	}
}

func (s *Service) Items(ctx context.Context, owner string) ([]domain.CartItem, error) {
	// singleflight collapses concurrent cache misses for the same owner.
	v, err, _ := s.sfg.Do(owner, func() (interface{}, error) {
		items, err := s.cache.Get(ctx, owner)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cart cache get error: %v", err) // log cache error but continue
		}

		items, errGet := s.repo.Items(ctx, owner)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), owner, items); errSet != nil {
				log.Printf("cart cache set error: %v", errSet)
			}
		}()

		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.CartItem), nil
}

// AddItem records quantity of a product in the owner's cart. The unit price
// is looked up from the catalog now and stored on the row; later catalog
// price changes do not touch carts.
func (s *Service) AddItem(ctx context.Context, owner string, productID int64, quantity int) error {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	item := domain.CartItem{
		Owner:     owner,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.Price,
		AddedAt:   time.Now().UTC(),
	}
	if errAdd := s.repo.AddItem(ctx, item); errAdd != nil {
		log.Printf("repo add item error: %v", errAdd)
		return errAdd
	}

	s.Invalidate(owner)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, owner string, productID int64) error {
	if errRemove := s.repo.RemoveItem(ctx, owner, productID); errRemove != nil {
		if !errors.Is(errRemove, repository.ErrItemNotFound) {
			log.Printf("repo remove item error: %v", errRemove)
		}
		return errRemove
	}

	s.Invalidate(owner)
	return nil
}

func (s *Service) Clear(ctx context.Context, owner string) error {
	if errDelete := s.repo.DeleteCart(ctx, owner); errDelete != nil {
		log.Printf("repo delete cart error: %v", errDelete)
		return errDelete
	}

	s.Invalidate(owner)
	return nil
}

// MergeOnLogin reassigns every item owned by the anonymous identity to the
// authenticated one, summing quantities where the same product exists under
// both. The repository applies the merge as a single transaction; calling
// again with no anonymous items left is a no-op.
func (s *Service) MergeOnLogin(ctx context.Context, anonOwner, authOwner string) error {
	if errMerge := s.repo.MergeCarts(ctx, anonOwner, authOwner); errMerge != nil {
		log.Printf("repo merge carts error: %v", errMerge)
		return errMerge
	}

	s.Invalidate(anonOwner)
	s.Invalidate(authOwner)
	return nil
}

// Invalidate drops the cached cart for owner. Called after any mutation,
// including ones the checkout commit performs directly against the store.
func (s *Service) Invalidate(owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if errInvalidate := s.cache.Delete(ctx, owner); errInvalidate != nil {
		log.Printf("cart cache invalidate error: %v", errInvalidate)
	}
}
