package domain

import "time"

// Sale representa uma venda feita por um usuário a partir do próprio estoque.
// O débito do estoque acontece antes da criação do registro: se o débito falhar,
// nenhuma venda é gravada (nunca criar-e-compensar).
type Sale struct {
	ID              string    `json:"id"`
	SellerID        string    `json:"seller_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email,omitempty"`
	CustomerAddress string    `json:"customer_address,omitempty"`
	ItemID          string    `json:"item_id"`
	Quantity        int       `json:"quantity"`
	Price           float64   `json:"price"`
	TotalAmount     float64   `json:"total_amount"` // Derivado: Quantity * Price
	Invoice         *Invoice  `json:"invoice,omitempty"`
	SaleDate        time.Time `json:"sale_date"`
}

// SaleCreate é o payload de registro de venda.
type SaleCreate struct {
	ItemName        string  `json:"item_name"`
	Quantity        int     `json:"quantity"`
	Price           float64 `json:"price"`
	CustomerName    string  `json:"customer_name"`
	CustomerEmail   string  `json:"customer_email"`
	CustomerAddress string  `json:"customer_address"`
}
