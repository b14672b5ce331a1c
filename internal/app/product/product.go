// Package product holds the read-only view of a marketplace listing used when opening chats.
package product

// Product is a listing offered by a seller.
type Product struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"priceCents"`
	SellerID   int64  `json:"sellerId"`
	Sold       bool   `json:"sold"`
}

// SoldBy reports whether sellerID owns the listing.
func (p Product) SoldBy(sellerID int64) bool {
	return p.SellerID == sellerID
}
