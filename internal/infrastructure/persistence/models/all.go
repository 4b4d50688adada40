package models

// All returns every persistence model, in dependency order. Tests and local
// development use it with AutoMigrate; deployed databases are migrated with
// the SQL files under migrations/.
func All() []any {
	return []any{
		&ProductModel{},
		&InventoryItemModel{},
		&StockReservationModel{},
		&CouponModel{},
		&CartModel{},
		&CartItemModel{},
		&OrderModel{},
		&OrderItemModel{},
		&OrderHistoryModel{},
		&ReturnRequestModel{},
		&LoyaltyAccountModel{},
		&LoyaltyTransactionModel{},
		&CheckoutIntentModel{},
		&OutboxEntryModel{},
	}
}
