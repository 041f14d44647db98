package models

// All lists every model in dependency order for AutoMigrate in tests and dev.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&ProductVariant{},
		&CartItem{},
		&WholesaleApplication{},
		&Order{},
		&OrderItem{},
	}
}
