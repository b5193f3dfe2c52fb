package api

// types.go defines the model types shared between the backend service
// clients and the state managers, replacing the loose shapes the cart
// service returns with one canonical form.

import (
	"strconv"
	"strings"
)

// Product is a catalog entry.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Image       string   `json:"image"`
	Category    string   `json:"category"`
	Featured    bool     `json:"featured"`
	Rating      float64  `json:"rating"`
	StockCount  int      `json:"stockCount"`
	Benefits    []string `json:"benefits"`
	Ingredients []string `json:"ingredients"`
	Weight      string   `json:"weight"`
}

// CartItem is the canonical cart line. ProductID is the only identity field;
// NormalizeCartItem resolves the upstream id variants into it, so everything
// downstream matches on ProductID alone.
type CartItem struct {
	ProductID   string   `json:"productId"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Image       string   `json:"image"`
	Category    string   `json:"category"`
	Featured    bool     `json:"featured"`
	Rating      float64  `json:"rating"`
	StockCount  int      `json:"stockCount"`
	Benefits    []string `json:"benefits"`
	Ingredients []string `json:"ingredients"`
	Weight      string   `json:"weight"`
	Quantity    int      `json:"quantity"`
}

// ProductRef is the nested product record some cart service handlers embed
// in a cart line instead of flattening it.
type ProductRef struct {
	MongoID string  `json:"_id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Image   string  `json:"image"`
}

// CartItemResponse mirrors the shape the cart service returns. Depending on
// which backend handler produced the row, the identity lives in product._id,
// productId or id, and the quantity arrives as a number or a string.
type CartItemResponse struct {
	ProductID   string      `json:"productId"`
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	Image       string      `json:"image"`
	Category    string      `json:"category"`
	Featured    bool        `json:"featured"`
	Rating      float64     `json:"rating"`
	StockCount  int         `json:"stockCount"`
	Benefits    []string    `json:"benefits"`
	Ingredients []string    `json:"ingredients"`
	Weight      string      `json:"weight"`
	Quantity    FlexInt     `json:"quantity"`
	Product     *ProductRef `json:"product"`
}

// CartResponse is the cart service's get-cart reply.
type CartResponse struct {
	Items []CartItemResponse `json:"items"`
}

// OpResult is the cart service's reply to a mutating call.
type OpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// FlexInt decodes an integer that may be serialized as a JSON number or a
// JSON string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		n = int(fl)
	}
	*f = FlexInt(n)
	return nil
}

// NormalizeCartItem maps a raw cart service row onto the canonical CartItem.
// Identity resolution order is product._id, then productId, then id; missing
// display fields get safe defaults and the quantity is floored at one.
func NormalizeCartItem(r CartItemResponse) CartItem {
	id := ""
	if r.Product != nil {
		id = r.Product.MongoID
	}
	if id == "" {
		id = r.ProductID
	}
	if id == "" {
		id = r.ID
	}

	name := r.Name
	if name == "" && r.Product != nil {
		name = r.Product.Name
	}
	if name == "" {
		name = "Product"
	}

	price := r.Price
	if price == 0 && r.Product != nil {
		price = r.Product.Price
	}

	image := r.Image
	if image == "" && r.Product != nil {
		image = r.Product.Image
	}

	qty := int(r.Quantity)
	if qty < 1 {
		qty = 1
	}

	benefits := r.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}

	return CartItem{
		ProductID:   id,
		Name:        name,
		Description: r.Description,
		Price:       price,
		Image:       image,
		Category:    r.Category,
		Featured:    r.Featured,
		Rating:      r.Rating,
		StockCount:  r.StockCount,
		Benefits:    benefits,
		Ingredients: ingredients,
		Weight:      r.Weight,
		Quantity:    qty,
	}
}
