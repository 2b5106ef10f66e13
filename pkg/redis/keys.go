// Package redis holds key conventions and the display stock cache. The
// database stays authoritative for stock; Redis only absorbs storefront
// reads.
package redis

import "fmt"

// StockKey names the cached display stock for a product.
func StockKey(productID string) string {
	return fmt.Sprintf("joias:stock:%s", productID)
}
