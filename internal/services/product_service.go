package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"etalase/internal/models"
	"etalase/internal/repositories"
)

// ImageLocator turns a stored image reference into a URL a browser can fetch.
type ImageLocator interface {
	URL(ref string) string
}

// ProductInput carries the raw fields of a create or update request.
// A nil pointer means the field was not sent.
type ProductInput struct {
	ProductName *string
	Description *string
	Price       *string
	Stock       *string
	Images      []string
}

// FilterParams carries the raw query parameters of a product search.
// Stock is nil when the parameter was not sent at all.
type FilterParams struct {
	ProductName string
	CreatedDate string
	Stock       *string
}

// ProductView is a product plus browser-fetchable URLs for its images.
type ProductView struct {
	models.Product
	ImageURLs []string `json:"imageUrls"`
}

var createdDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ProductService handles business logic related to products.
type ProductService struct {
	repo    repositories.ProductRepository
	locator ImageLocator
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, locator ImageLocator) *ProductService {
	return &ProductService{
		repo:    repo,
		locator: locator,
	}
}

// ListProducts returns every product with image URLs resolved.
func (s *ProductService) ListProducts() ([]ProductView, error) {
	products, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		urls := make([]string, 0, len(p.Images))
		for _, ref := range p.Images {
			urls = append(urls, s.locator.URL(ref))
		}
		views = append(views, ProductView{Product: p, ImageURLs: urls})
	}
	return views, nil
}

// CreateProduct validates input and stores a new product.
func (s *ProductService) CreateProduct(input ProductInput) (*models.Product, error) {
	if isBlank(input.ProductName) || isBlank(input.Description) || isBlank(input.Price) || input.Stock == nil {
		return nil, ErrMissingFields
	}
	if len(input.Images) == 0 {
		return nil, ErrNoImages
	}

	price, err := parsePrice(*input.Price)
	if err != nil {
		return nil, err
	}
	stock, err := parseStock(*input.Stock)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		ProductName: *input.ProductName,
		Description: *input.Description,
		Price:       price,
		Stock:       stock,
		Images:      models.ImageList(input.Images),
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct overwrites the fields present in input and replaces the image list.
// Fields left nil keep their stored value.
func (s *ProductService) UpdateProduct(id string, input ProductInput) (*models.Product, error) {
	if len(input.Images) == 0 {
		return nil, ErrNoImages
	}

	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	if input.ProductName != nil {
		product.ProductName = *input.ProductName
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		price, err := parsePrice(*input.Price)
		if err != nil {
			return nil, err
		}
		product.Price = price
	}
	if input.Stock != nil {
		stock, err := parseStock(*input.Stock)
		if err != nil {
			return nil, err
		}
		product.Stock = stock
	}
	product.Images = models.ImageList(input.Images)

	if err := s.repo.Update(product); err != nil {
		return nil, mapNotFound(err)
	}
	return product, nil
}

// DeleteProduct removes a product. Its image files are left in place.
func (s *ProductService) DeleteProduct(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return mapNotFound(err)
	}
	return nil
}

// FilterProducts returns products matching every supplied parameter.
// An empty result is reported as ErrNoMatches.
func (s *ProductService) FilterProducts(params FilterParams) ([]models.Product, error) {
	filter := repositories.ProductFilter{NameContains: params.ProductName}

	if params.CreatedDate != "" {
		from, err := parseCreatedDate(params.CreatedDate)
		if err != nil {
			return nil, err
		}
		filter.CreatedFrom = &from
	}
	if params.Stock != nil {
		stock, err := parseStock(*params.Stock)
		if err != nil {
			return nil, err
		}
		filter.Stock = &stock
	}

	products, err := s.repo.Find(filter)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoMatches
	}
	return products, nil
}

func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return price, nil
}

func parseStock(raw string) (int, error) {
	stock, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || stock < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStock, raw)
	}
	return stock, nil
}

func parseCreatedDate(raw string) (time.Time, error) {
	for _, layout := range createdDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func mapNotFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}
