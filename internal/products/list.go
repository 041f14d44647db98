package product

import (
	"github.com/angelmondragon/wholesale-storefront/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Category string `json:"category,omitempty"`
	Query    string `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter the storefront catalog.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// ProductListResult is one page of priced products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}
