// Package validate checks product payloads before they reach a store backend.
package validate

import (
	"fmt"
	"strings"

	"product-catalog/internal/catalog"
)

// Error describes one invalid element of a create batch. Index is 1-based
// and matches the position of the element in the submitted batch.
type Error struct {
	Index  int    `json:"index" example:"2"`
	Detail string `json:"detail" example:"name is required"`
}

func (e Error) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Detail)
}

// Errors is the full set of per-element failures for a batch.
type Errors []Error

func (e Errors) Error() string {
	details := make([]string, len(e))
	for i, item := range e {
		details[i] = item.Error()
	}
	return "invalid product payload: " + strings.Join(details, "; ")
}

// Single validates one create/update payload. The name must be non-empty
// after trimming. The price must be present and non-zero: a price of 0 is
// rejected the same way as a missing price. That quirk is the documented
// contract of this service, not an accident; see TestSingle.
func Single(input catalog.ProductInput) (catalog.NewProduct, error) {
	return check(input, 1)
}

func check(input catalog.ProductInput, index int) (catalog.NewProduct, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return catalog.NewProduct{}, Error{Index: index, Detail: "name is required"}
	}
	if input.Price == nil || *input.Price == 0 {
		return catalog.NewProduct{}, Error{Index: index, Detail: "price is required"}
	}
	return catalog.NewProduct{Name: name, Price: *input.Price}, nil
}

// Batch validates every element before any write happens. If any element is
// invalid it returns one Error per invalid element, index-aligned to the
// input, and no validated payloads at all.
func Batch(inputs []catalog.ProductInput) ([]catalog.NewProduct, error) {
	items := make([]catalog.NewProduct, 0, len(inputs))
	var failures Errors

	for i, input := range inputs {
		item, err := check(input, i+1)
		if err != nil {
			failures = append(failures, err.(Error))
			continue
		}
		items = append(items, item)
	}

	if len(failures) > 0 {
		return nil, failures
	}
	return items, nil
}
