package request

// ProductSearchRequest represents query parameters of the product search
type ProductSearchRequest struct {
	Search  string `form:"busqueda"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}

// SaleFilterRequest represents query parameters of the sale listing.
// Dates are YYYY-MM-DD; fecha_hasta is inclusive.
type SaleFilterRequest struct {
	Page          int    `form:"page"`
	PerPage       int    `form:"per_page"`
	From          string `form:"fecha_desde"`
	To            string `form:"fecha_hasta"`
	PaymentMethod string `form:"metodo_pago"`
	CustomerRef   string `form:"dni_cliente"`
}
