package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Product represents a catalog entry.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductName string    `json:"productname" gorm:"column:productname;type:varchar(255);not null;index"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Price       float64   `json:"price" gorm:"not null"`
	Stock       int       `json:"stock" gorm:"not null"`
	Images      ImageList `json:"images" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ImageList is an ordered list of stored-file references, persisted as a JSON array.
type ImageList []string

// Value implements driver.Valuer.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode image list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *ImageList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = ImageList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported image list column type %T", src)
	}
	if len(raw) == 0 {
		*l = ImageList{}
		return nil
	}
	var refs []string
	if err := json.Unmarshal(raw, &refs); err != nil {
		return fmt.Errorf("failed to decode image list: %w", err)
	}
	*l = refs
	return nil
}
