package persistence

import (
	"fmt"
	"strings"
)

// ValidateSortOrder normalises the direction to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField if whitelisted, otherwise defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" || !allowedFields[trimmed] {
		return defaultField
	}
	return trimmed
}

// OrderClause builds a safe ORDER BY fragment from user input
func OrderClause(sortField, orderDir string, allowedFields map[string]bool, defaultField string) string {
	return fmt.Sprintf("%s %s", ValidateSortField(sortField, allowedFields, defaultField), ValidateSortOrder(orderDir))
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"order_date":   true,
	"order_number": true,
	"status":       true,
	"total_amount": true,
}
