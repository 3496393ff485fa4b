package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidCategory   = errors.New("invalid product category")
	ErrSKUConflict       = errors.New("could not allocate a unique sku")
	QueryTimeoutDuration = time.Second * 5
)

type Category string

const (
	CategoryMedicine     Category = "MEDICINE"
	CategorySurgical     Category = "SURGICAL"
	CategoryOTC          Category = "OTC"
	CategoryHerbal       Category = "HERBAL"
	CategoryDiabetesCare Category = "DIABETES_CARE"
	CategoryCardiac      Category = "CARDIAC"
	CategoryInjectable   Category = "INJECTABLE"
	CategoryMediDevice   Category = "MEDI_DEVICE"
	CategoryOther        Category = "OTHER"
)

// Categories lists every product category in display order.
var Categories = []Category{
	CategoryMedicine,
	CategorySurgical,
	CategoryOTC,
	CategoryHerbal,
	CategoryDiabetesCare,
	CategoryCardiac,
	CategoryInjectable,
	CategoryMediDevice,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Brand struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Generic struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Product is the admin view of a catalog entry. Status is the published
// flag and Availability the in-stock flag; they toggle independently.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	SKU          string          `json:"sku"`
	MRP          decimal.Decimal `json:"mrp"`
	SellPrice    decimal.Decimal `json:"sell_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	GenericID    *int64          `json:"generic_id,omitempty"`
	GenericName  *string         `json:"generic_name,omitempty"`
	BrandID      *int64          `json:"brand_id,omitempty"`
	BrandName    *string         `json:"brand_name,omitempty"`
	Image        *string         `json:"image,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Stock        int             `json:"stock"`
	Status       bool            `json:"status"`
	Availability bool            `json:"availability"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PublicProduct is what shops see. Cost price stays in the back office.
type PublicProduct struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	SKU          string          `json:"sku"`
	MRP          decimal.Decimal `json:"mrp"`
	SellPrice    decimal.Decimal `json:"sell_price"`
	GenericName  *string         `json:"generic_name,omitempty"`
	BrandName    *string         `json:"brand_name,omitempty"`
	Image        *string         `json:"image,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Stock        int             `json:"stock"`
	Availability bool            `json:"availability"`
}

func (p *Product) Public() *PublicProduct {
	return &PublicProduct{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		SKU:          p.SKU,
		MRP:          p.MRP,
		SellPrice:    p.SellPrice,
		GenericName:  p.GenericName,
		BrandName:    p.BrandName,
		Image:        p.Image,
		Description:  p.Description,
		Stock:        p.Stock,
		Availability: p.Availability,
	}
}

// NewProduct carries the fields of a product to create. Empty brand or
// generic names leave the product unlinked.
type NewProduct struct {
	Name         string
	Category     Category
	MRP          decimal.Decimal
	SellPrice    decimal.Decimal
	CostPrice    decimal.Decimal
	GenericName  string
	BrandName    string
	Image        *string
	Description  *string
	Stock        int
	Status       bool
	Availability bool
}

// ProductPatch is a partial update. Nil fields are left untouched. For
// GenericName and BrandName an empty string clears the link.
type ProductPatch struct {
	Name         *string
	Category     *Category
	MRP          *decimal.Decimal
	SellPrice    *decimal.Decimal
	CostPrice    *decimal.Decimal
	GenericName  *string
	BrandName    *string
	Image        *string
	Description  *string
	Stock        *int
	Status       *bool
	Availability *bool
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.MRP == nil && p.SellPrice == nil &&
		p.CostPrice == nil && p.GenericName == nil && p.BrandName == nil && p.Image == nil &&
		p.Description == nil && p.Stock == nil && p.Status == nil && p.Availability == nil
}

// ListFilters narrows product listings. PublishedOnly is set for shop-facing reads.
type ListFilters struct {
	Category      Category
	Search        string
	PublishedOnly bool
}
