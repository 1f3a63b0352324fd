package db

import (
	"subastas-marketplace/internal/ports/outbound"
)

// Repositories bundles every repository for dependency injection
type Repositories struct {
	Tenants      outbound.TenantRepository
	Companies    outbound.CompanyRepository
	Users        outbound.UserRepository
	Items        outbound.ItemRepository
	Auctions     outbound.AuctionRepository
	AuctionItems outbound.AuctionItemRepository
	Bids         outbound.BidRepository
	Observations outbound.ObservationRepository
	Transactor   outbound.Transactor
}

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetAllRepositories returns all repositories sharing one connection
func (f *RepositoryFactory) GetAllRepositories() Repositories {
	return Repositories{
		Tenants:      NewTenantRepository(f.conn),
		Companies:    NewCompanyRepository(f.conn),
		Users:        NewUserRepository(f.conn),
		Items:        NewItemRepository(f.conn),
		Auctions:     NewAuctionRepository(f.conn),
		AuctionItems: NewAuctionItemRepository(f.conn),
		Bids:         NewBidRepository(f.conn),
		Observations: NewObservationRepository(f.conn),
		Transactor:   f.conn,
	}
}

var (
	_ outbound.Transactor            = (*Connection)(nil)
	_ outbound.TenantRepository      = (*TenantRepository)(nil)
	_ outbound.CompanyRepository     = (*CompanyRepository)(nil)
	_ outbound.UserRepository        = (*UserRepository)(nil)
	_ outbound.ItemRepository        = (*ItemRepository)(nil)
	_ outbound.AuctionRepository     = (*AuctionRepository)(nil)
	_ outbound.AuctionItemRepository = (*AuctionItemRepository)(nil)
	_ outbound.BidRepository         = (*BidRepository)(nil)
	_ outbound.ObservationRepository = (*ObservationRepository)(nil)
)
