// Package paging holds the pagination and sorting request types handlers accept.
//
// The expander treats any type implementing Pageable or Sorter as opaque: it is
// documented by dedicated paging parameters and never flattened field by field.
package paging

import (
	"fmt"
	"strings"
)

const (
	// DefaultLimit is used when a request does not specify a page size.
	DefaultLimit = 20
	// MaxLimit caps the page size a client may ask for.
	MaxLimit = 1000
)

// Pageable is implemented by request types that carry a page window.
type Pageable interface {
	Offset() int64
	PageSize() int
}

// Sorter is implemented by request types that carry sort instructions.
type Sorter interface {
	SortOrders() []Order
}

// Direction of a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order sorts by one property.
type Order struct {
	Property  string
	Direction Direction
}

func (o Order) String() string {
	return o.Property + "," + string(o.Direction)
}

// Sort is an ordered list of sort instructions, bound from repeated sort=property,dir parameters.
type Sort struct {
	Orders []Order
}

// SortOrders implements Sorter.
func (s Sort) SortOrders() []Order {
	return s.Orders
}

// ParseSort parses values of the form "property" or "property,asc|desc".
func ParseSort(values ...string) (Sort, error) {
	var s Sort
	for _, v := range values {
		prop, dir, _ := strings.Cut(v, ",")
		prop = strings.TrimSpace(prop)
		if prop == "" {
			return Sort{}, fmt.Errorf("invalid sort %q: empty property", v)
		}
		d := Direction(strings.ToLower(strings.TrimSpace(dir)))
		switch d {
		case "":
			d = Asc
		case Asc, Desc:
		default:
			return Sort{}, fmt.Errorf("invalid sort %q: direction must be asc or desc", v)
		}
		s.Orders = append(s.Orders, Order{Property: prop, Direction: d})
	}
	return s, nil
}

// PageRequest combines a zero-based page index, a page size and an optional sort.
type PageRequest struct {
	Page int `query:"page"`
	Size int `query:"size"`
	Sort Sort
}

// Of returns a PageRequest with page and size clamped to valid values.
func Of(page, size int, orders ...Order) PageRequest {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultLimit
	}
	if size > MaxLimit {
		size = MaxLimit
	}
	return PageRequest{Page: page, Size: size, Sort: Sort{Orders: orders}}
}

// Offset implements Pageable.
func (p PageRequest) Offset() int64 {
	return int64(p.Page) * int64(p.PageSize())
}

// PageSize implements Pageable.
func (p PageRequest) PageSize() int {
	if p.Size <= 0 {
		return DefaultLimit
	}
	return p.Size
}

// SortOrders implements Sorter.
func (p PageRequest) SortOrders() []Order {
	return p.Sort.Orders
}
