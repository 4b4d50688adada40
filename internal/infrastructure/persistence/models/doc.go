// Package models contains the GORM persistence models for the storefront tables.
// Domain aggregates carry no ORM tags; each model converts to and from its
// aggregate with ToDomain/FromDomain and the repositories only ever touch models.
//
//   - base.go: shared id, timestamp and version columns
//   - catalog.go: products
//   - inventory.go: inventory ledger rows and stock reservations
//   - pricing.go: coupons
//   - cart.go: carts and cart lines
//   - order.go: orders, order lines, status history and return requests
//   - loyalty.go: loyalty accounts and point transactions
//   - checkout.go: checkout intents used for saga recovery
//   - outbox.go: transactional outbox for domain events
//   - all.go: the model list used with AutoMigrate
package models
