package services_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"etalase/internal/models"
	"etalase/internal/repositories"
	"etalase/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validInput() services.ProductInput {
	return services.ProductInput{
		ProductName: strPtr("Laptop"),
		Description: strPtr("High performance laptop"),
		Price:       strPtr("1200.50"),
		Stock:       strPtr("0"),
		Images:      []string{"uploads/1.png"},
	}
}

func TestProductService_ListProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, prefixLocator("http://localhost:5000/"))

	mockRepo.On("GetAll").Return([]models.Product{
		{ID: "1", ProductName: "Product A", Images: models.ImageList{"uploads/a.png", "uploads/b.png"}},
		{ID: "2", ProductName: "Product B"},
	}, nil).Once()

	views, err := service.ListProducts()
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, []string{"http://localhost:5000/uploads/a.png", "http://localhost:5000/uploads/b.png"}, views[0].ImageURLs)
	assert.Equal(t, models.ImageList{"uploads/a.png", "uploads/b.png"}, views[0].Images)
	assert.Empty(t, views[1].ImageURLs)
	assert.NotNil(t, views[1].ImageURLs)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, prefixLocator(""))

	mockRepo.On("Create", mock.MatchedBy(func(p *models.Product) bool {
		return p.ProductName == "Laptop" && p.Price == 1200.50 && p.Stock == 0 && len(p.Images) == 1
	})).Return(nil).Once()

	product, err := service.CreateProduct(validInput())
	require.NoError(t, err)
	assert.Equal(t, "High performance laptop", product.Description)
	mockRepo.AssertExpectations(t)

	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Return(fmt.Errorf("database error")).Once()
	_, err = service.CreateProduct(validInput())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
}

func TestProductService_CreateProduct_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*services.ProductInput)
		want   error
	}{
		{"missing name", func(in *services.ProductInput) { in.ProductName = nil }, services.ErrMissingFields},
		{"blank description", func(in *services.ProductInput) { in.Description = strPtr("  ") }, services.ErrMissingFields},
		{"missing price", func(in *services.ProductInput) { in.Price = nil }, services.ErrMissingFields},
		{"missing stock", func(in *services.ProductInput) { in.Stock = nil }, services.ErrMissingFields},
		{"no images", func(in *services.ProductInput) { in.Images = nil }, services.ErrNoImages},
		{"price not a number", func(in *services.ProductInput) { in.Price = strPtr("cheap") }, services.ErrInvalidPrice},
		{"negative price", func(in *services.ProductInput) { in.Price = strPtr("-1") }, services.ErrInvalidPrice},
		{"fractional stock", func(in *services.ProductInput) { in.Stock = strPtr("1.5") }, services.ErrInvalidStock},
		{"empty stock", func(in *services.ProductInput) { in.Stock = strPtr("") }, services.ErrInvalidStock},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			service := services.NewProductService(mockRepo, prefixLocator(""))

			input := validInput()
			tc.modify(&input)
			_, err := service.CreateProduct(input)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything)
		})
	}
}

func TestProductService_UpdateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, prefixLocator(""))

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := &models.Product{
		ID: "1", ProductName: "Lamp", Description: "Warm light", Price: 20, Stock: 4,
		Images: models.ImageList{"uploads/old.png"}, CreatedAt: created,
	}
	mockRepo.On("GetByID", "1").Return(stored, nil).Once()
	mockRepo.On("Update", mock.AnythingOfType("*models.Product")).Return(nil).Once()

	product, err := service.UpdateProduct("1", services.ProductInput{
		Price:  strPtr("25"),
		Stock:  strPtr("0"),
		Images: []string{"uploads/new.png", "uploads/kept.png"},
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)

	assert.Equal(t, "Lamp", product.ProductName, "absent fields keep their value")
	assert.Equal(t, "Warm light", product.Description)
	assert.Equal(t, 25.0, product.Price)
	assert.Equal(t, 0, product.Stock)
	assert.Equal(t, models.ImageList{"uploads/new.png", "uploads/kept.png"}, product.Images)
	assert.Equal(t, created, product.CreatedAt)
}

func TestProductService_UpdateProduct_Rejections(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, prefixLocator(""))

	_, err := service.UpdateProduct("1", services.ProductInput{ProductName: strPtr("x")})
	assert.True(t, errors.Is(err, services.ErrNoImages))
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything)

	mockRepo.On("GetByID", "missing").Return(nil, fmt.Errorf("product with ID missing: %w", repositories.ErrNotFound)).Once()
	_, err = service.UpdateProduct("missing", services.ProductInput{Images: []string{"uploads/a.png"}})
	assert.True(t, errors.Is(err, services.ErrProductNotFound))

	mockRepo.On("GetByID", "1").Return(&models.Product{ID: "1", ProductName: "Lamp"}, nil).Once()
	_, err = service.UpdateProduct("1", services.ProductInput{Stock: strPtr("many"), Images: []string{"uploads/a.png"}})
	assert.True(t, errors.Is(err, services.ErrInvalidStock))
	mockRepo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestProductService_DeleteProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, prefixLocator(""))

	mockRepo.On("Delete", "1").Return(nil).Once()
	assert.NoError(t, service.DeleteProduct("1"))

	mockRepo.On("Delete", "99").Return(fmt.Errorf("product with ID 99: %w", repositories.ErrNotFound)).Once()
	err := service.DeleteProduct("99")
	assert.True(t, errors.Is(err, services.ErrProductNotFound))
	mockRepo.AssertExpectations(t)
}

func TestProductService_FilterProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, prefixLocator(""))

	match := []models.Product{{ID: "1", ProductName: "Keyboard", Stock: 0}}
	mockRepo.On("Find", mock.MatchedBy(func(f repositories.ProductFilter) bool {
		return f.NameContains == "key" &&
			f.CreatedFrom != nil && f.CreatedFrom.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) &&
			f.Stock != nil && *f.Stock == 0
	})).Return(match, nil).Once()

	products, err := service.FilterProducts(services.FilterParams{ProductName: "key", CreatedDate: "2024-01-15", Stock: strPtr("0")})
	require.NoError(t, err)
	assert.Equal(t, match, products)

	mockRepo.On("Find", repositories.ProductFilter{NameContains: "monitor"}).Return([]models.Product{}, nil).Once()
	_, err = service.FilterProducts(services.FilterParams{ProductName: "monitor"})
	assert.True(t, errors.Is(err, services.ErrNoMatches))
	mockRepo.AssertExpectations(t)
}

func TestProductService_FilterProducts_InvalidParams(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, prefixLocator(""))

	_, err := service.FilterProducts(services.FilterParams{CreatedDate: "15/01/2024"})
	assert.True(t, errors.Is(err, services.ErrInvalidDate))

	_, err = service.FilterProducts(services.FilterParams{Stock: strPtr("lots")})
	assert.True(t, errors.Is(err, services.ErrInvalidStock))

	_, err = service.FilterProducts(services.FilterParams{Stock: strPtr("")})
	assert.True(t, errors.Is(err, services.ErrInvalidStock), "an empty stock parameter is still validated")

	mockRepo.AssertNotCalled(t, "Find", mock.Anything)
}

func TestProductService_FilterProducts_DateLayouts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, prefixLocator(""))
	mockRepo.On("Find", mock.Anything).Return([]models.Product{{ID: "1"}}, nil)

	for _, raw := range []string{"2024-01-15", "2024-01-15T10:30:00", "2024-01-15T10:30:00Z", "2024-01-15T10:30:00+07:00"} {
		_, err := service.FilterProducts(services.FilterParams{CreatedDate: raw})
		assert.NoError(t, err, raw)
	}
}
