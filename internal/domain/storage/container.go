package storage

import (
	"medimart/internal/domain/accounts"
	"medimart/internal/domain/banners"
	"medimart/internal/domain/carts"
	"medimart/internal/domain/catalog"
	"medimart/internal/infra/dbx"
)

// Container groups the repositories that share one connection pool.
type Container struct {
	Accounts accounts.Store
	Catalog  catalog.Store
	Banners  banners.Store
	Carts    carts.Store
}

func NewContainer(db dbx.TxBeginner) *Container {
	return &Container{
		Accounts: accounts.NewRepository(db),
		Catalog:  catalog.NewRepository(db),
		Banners:  banners.NewRepository(db),
		Carts:    carts.NewRepository(db),
	}
}
