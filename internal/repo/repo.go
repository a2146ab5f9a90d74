package repo

import "database/sql"

// Repositories bundles every repository built on one pool.
type Repositories struct {
	Orders     OrderRepo
	Products   ProductRepo
	Vouchers   VoucherRepo
	Customers  CustomerRepo
	Payments   PaymentRepo
	Statistics StatisticsRepo
}

func NewRepositories(db *sql.DB) Repositories {
	return Repositories{
		Orders:     NewOrderRepo(db),
		Products:   NewProductRepo(db),
		Vouchers:   NewVoucherRepo(db),
		Customers:  NewCustomerRepo(db),
		Payments:   NewPaymentRepo(db),
		Statistics: NewStatisticsRepo(db),
	}
}
