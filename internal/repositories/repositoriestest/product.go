// Package repositoriestest provides in-memory repositories for tests.
package repositoriestest

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/google/uuid"
)

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// ProductRepository is an in-memory repositories.ProductRepository for tests.
type ProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewProductRepository creates an empty ProductRepository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetAll returns all products, oldest first.
func (r *ProductRepository) GetAll() ([]models.Product, error) {
	return r.Find(repositories.ProductFilter{})
}

// GetByID returns a product by its ID.
func (r *ProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, repositories.ErrNotFound)
	}
	return &product, nil
}

// Find returns the products matching filter, oldest first.
func (r *ProductRepository) Find(filter repositories.ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(filter.NameContains)
	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if needle != "" && !strings.Contains(strings.ToLower(p.ProductName), needle) {
			continue
		}
		if filter.CreatedFrom != nil && p.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.Stock != nil && p.Stock != *filter.Stock {
			continue
		}
		productList = append(productList, p)
	}
	sort.Slice(productList, func(i, j int) bool {
		return productList[i].CreatedAt.Before(productList[j].CreatedAt)
	})
	return productList, nil
}

// Create adds a new product.
func (r *ProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product.
func (r *ProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, repositories.ErrNotFound)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	r.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID.
func (r *ProductRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", id, repositories.ErrNotFound)
	}
	delete(r.products, id)
	return nil
}
