package repositories

import (
	"time"

	"etalase/internal/models"
)

// ProductFilter narrows a product listing. Nil/empty fields do not constrain the result.
type ProductFilter struct {
	NameContains string
	CreatedFrom  *time.Time
	Stock        *int
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Find(filter ProductFilter) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
}
