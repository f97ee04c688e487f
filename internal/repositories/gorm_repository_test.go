package repositories_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"etalase/internal/database"
	"etalase/internal/models"
	"etalase/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Each test gets its own named in-memory database shared across the pool's connections.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestGORMUserRepository_CreateAndLookup(t *testing.T) {
	repo := repositories.NewGORMUserRepository(openTestDB(t))

	user := &models.User{Username: "ana", Email: "ana@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(user))
	assert.NotEmpty(t, user.ID)

	byEmail, err := repo.GetByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", byID.Username)

	_, err = repo.GetByEmail("nobody@example.com")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestGORMUserRepository_UniqueEmail(t *testing.T) {
	repo := repositories.NewGORMUserRepository(openTestDB(t))

	require.NoError(t, repo.Create(&models.User{Username: "a", Email: "dup@example.com", PasswordHash: "x"}))
	err := repo.Create(&models.User{Username: "b", Email: "dup@example.com", PasswordHash: "y"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repositories.ErrDuplicateEmail))
}

func TestGORMProductRepository_CRUD(t *testing.T) {
	repo := repositories.NewGORMProductRepository(openTestDB(t))

	product := &models.Product{
		ProductName: "Laptop",
		Description: "High performance laptop",
		Price:       1200,
		Stock:       0,
		Images:      models.ImageList{"uploads/1.png", "uploads/2.png"},
	}
	require.NoError(t, repo.Create(product))
	assert.NotEmpty(t, product.ID)
	assert.False(t, product.CreatedAt.IsZero())

	got, err := repo.GetByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImageList{"uploads/1.png", "uploads/2.png"}, got.Images)
	assert.Equal(t, 0, got.Stock)

	got.ProductName = "Laptop Pro"
	got.Stock = 3
	got.Images = models.ImageList{"uploads/3.png"}
	require.NoError(t, repo.Update(got))

	updated, err := repo.GetByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", updated.ProductName)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, models.ImageList{"uploads/3.png"}, updated.Images)
	assert.WithinDuration(t, product.CreatedAt, updated.CreatedAt, time.Second)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(product.ID))
	err = repo.Delete(product.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	_, err = repo.GetByID(product.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestGORMProductRepository_UpdateMissing(t *testing.T) {
	repo := repositories.NewGORMProductRepository(openTestDB(t))

	err := repo.Update(&models.Product{ID: uuid.NewString(), ProductName: "ghost", Images: models.ImageList{"a"}})
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestGORMProductRepository_Find(t *testing.T) {
	db := openTestDB(t)
	repo := repositories.NewGORMProductRepository(db)

	old := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seed := []models.Product{
		{ProductName: "Mechanical Keyboard", Description: "d", Price: 75, Stock: 0, Images: models.ImageList{"a"}, CreatedAt: old},
		{ProductName: "Mouse", Description: "d", Price: 25, Stock: 50, Images: models.ImageList{"b"}, CreatedAt: recent},
		{ProductName: "keyboard_50%", Description: "d", Price: 10, Stock: 50, Images: models.ImageList{"c"}, CreatedAt: recent},
	}
	for i := range seed {
		require.NoError(t, repo.Create(&seed[i]))
	}

	byName, err := repo.Find(repositories.ProductFilter{NameContains: "KEYBOARD"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	literal, err := repo.Find(repositories.ProductFilter{NameContains: "50%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "keyboard_50%", literal[0].ProductName)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	byDate, err := repo.Find(repositories.ProductFilter{CreatedFrom: &from})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	zero := 0
	byStock, err := repo.Find(repositories.ProductFilter{Stock: &zero})
	require.NoError(t, err)
	require.Len(t, byStock, 1)
	assert.Equal(t, "Mechanical Keyboard", byStock[0].ProductName)

	fifty := 50
	combined, err := repo.Find(repositories.ProductFilter{NameContains: "mouse", Stock: &fifty, CreatedFrom: &from})
	require.NoError(t, err)
	assert.Len(t, combined, 1)

	none, err := repo.Find(repositories.ProductFilter{NameContains: "monitor"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
