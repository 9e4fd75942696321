// Package pagination provides helpers for paginated list operations. Cursors
// are opaque base64-encoded offsets; servers validate and apply them, clients
// treat them as tokens.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/protocol"
)

const (
	// DefaultLimit is the default page size for paginated results.
	DefaultLimit = 50

	// MaxLimit is the maximum allowed page size.
	MaxLimit = 200
)

// ValidateParams checks pagination parameters. Nil params are valid and mean
// server defaults.
func ValidateParams(params *protocol.PaginationParams) error {
	if params == nil {
		return nil
	}
	if params.Limit < 0 {
		return errors.InvalidParameter("limit", params.Limit, "a non-negative integer")
	}
	if params.Limit > MaxLimit {
		return errors.InvalidLimit(params.Limit, MaxLimit)
	}
	if params.Cursor != "" {
		if _, err := DecodeCursor(params.Cursor); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDefaults returns a copy of params with the default limit filled in.
func ApplyDefaults(params *protocol.PaginationParams) *protocol.PaginationParams {
	if params == nil {
		return &protocol.PaginationParams{Limit: DefaultLimit}
	}

	result := &protocol.PaginationParams{
		Cursor: params.Cursor,
		Limit:  params.Limit,
	}
	if result.Limit <= 0 {
		result.Limit = DefaultLimit
	}
	if result.Limit > MaxLimit {
		result.Limit = MaxLimit
	}
	return result
}

// EncodeCursor produces an opaque cursor for the given offset.
func EncodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// DecodeCursor parses an opaque cursor back into an offset.
func DecodeCursor(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errors.InvalidCursor(cursor, "not valid base64")
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, errors.InvalidCursor(cursor, "does not encode a valid offset")
	}
	return offset, nil
}

// Page computes the slice bounds for a page over a collection of total items
// and returns them with the matching PaginationResult. Nil params mean
// server defaults.
func Page(total int, params *protocol.PaginationParams) (start, end int, result *protocol.PaginationResult, err error) {
	params = ApplyDefaults(params)

	start = 0
	if params.Cursor != "" {
		start, err = DecodeCursor(params.Cursor)
		if err != nil {
			return 0, 0, nil, err
		}
	}
	if start > total {
		start = total
	}

	end = start + params.Limit
	if end > total {
		end = total
	}

	result = &protocol.PaginationResult{
		TotalCount: total,
		HasMore:    end < total,
	}
	if result.HasMore {
		result.NextCursor = EncodeCursor(end)
	}
	return start, end, result, nil
}

// HasNextPage reports whether another page can be fetched.
func HasNextPage(result *protocol.PaginationResult) bool {
	if result == nil {
		return false
	}
	return result.HasMore && result.NextCursor != ""
}

// Collector accumulates state while walking paginated results.
type Collector struct {
	// NextCursor is the cursor for the next page.
	NextCursor string
	// HasMore indicates whether more pages remain.
	HasMore bool
	// TotalItems counts items collected so far.
	TotalItems int
}

// NewCollector creates a collector positioned before the first page.
func NewCollector() *Collector {
	return &Collector{HasMore: true}
}

// Update advances the collector past a page of results.
func (c *Collector) Update(result *protocol.PaginationResult, pageSize int) {
	if result == nil {
		c.HasMore = false
		return
	}
	c.NextCursor = result.NextCursor
	c.HasMore = result.HasMore && result.NextCursor != ""
	c.TotalItems += pageSize
}

// NextParams returns the parameters for fetching the next page.
func (c *Collector) NextParams(baseParams *protocol.PaginationParams) *protocol.PaginationParams {
	params := ApplyDefaults(baseParams)
	params.Cursor = c.NextCursor
	return params
}

// String implements fmt.Stringer for debugging.
func (c *Collector) String() string {
	return fmt.Sprintf("collector{items=%d, more=%t}", c.TotalItems, c.HasMore)
}
