package domain

// ID is used across domain entities.
type ID int64

// Status represents a lightweight state value.
type Status string

// Roles stored on users.role.
const (
	RolePassenger = "passenger"
	RoleOperator  = "operator"
	RoleAdmin     = "admin"
)

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total,omitempty"`
}

// Offset returns the SQL offset for the page, clamping bad input.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Normalize clamps page to >= 1 and page size to 1..200 (default 50).
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
	return p
}

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID ID     `json:"userId"`
	Role   string `json:"role"`
}
