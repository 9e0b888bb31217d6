package main

import (
	"fmt"

	"github.com/coffeeshop/account-service/app/dto"
)

// paginationLinks builds next/previous page links for a list endpoint. The
// next link is present while another full or partial page remains; the
// previous link is present whenever offset is past the start and its offset
// is floored at zero.
func paginationLinks(basePath string, limit, offset, total int) dto.PaginationLinks {
	links := dto.PaginationLinks{Count: total}

	if offset+limit < total {
		next := fmt.Sprintf("%s?limit=%d&offset=%d", basePath, limit, offset+limit)
		links.Next = &next
	}
	if offset > 0 {
		prevOffset := offset - limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		prev := fmt.Sprintf("%s?limit=%d&offset=%d", basePath, limit, prevOffset)
		links.Previous = &prev
	}
	return links
}
