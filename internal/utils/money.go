// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "fmt"

// FormatPrice renders an amount in whole-or-fractional currency units as a
// dollar string. Whole amounts drop the cents.
//
// Example:
//
//	s := utils.FormatPrice(30)    // "$30"
//	s = utils.FormatPrice(25.5)   // "$25.50"
func FormatPrice(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("$%d", int64(amount))
	}
	return fmt.Sprintf("$%.2f", amount)
}
