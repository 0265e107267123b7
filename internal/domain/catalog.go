package domain

import "github.com/shopspring/decimal"

// Category groups storefront products. Products reference categories by name.
type Category struct {
	ID    string
	Name  string
	Image string
}

// Product is a storefront catalogue entry.
type Product struct {
	ID       string
	Name     string
	Image    string
	Price    decimal.Decimal
	Weight   string
	Category string
}

// Announcement is a storefront banner, optionally promoting a coupon.
type Announcement struct {
	ID          string
	Coupon      string
	Title       string
	Description string
	Image       string
	Wish        string
}
