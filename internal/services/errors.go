package services

import "errors"

// Authentication errors.
var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Product errors.
var (
	ErrMissingFields   = errors.New("missing required fields")
	ErrNoImages        = errors.New("at least one image is required")
	ErrInvalidPrice    = errors.New("invalid price value")
	ErrInvalidStock    = errors.New("invalid stock value")
	ErrInvalidDate     = errors.New("invalid date format")
	ErrProductNotFound = errors.New("product not found")
	ErrNoMatches       = errors.New("no products found matching the criteria")
)

// Notification errors.
var (
	ErrInvalidProduct = errors.New("product data is missing")
	ErrNoProducts     = errors.New("no products found in the database")
	ErrSendFailure    = errors.New("failed to send email")
)
