// Package query implements the pull-based Scan/Filter/Project iterator
// pipeline over a relation.
package query

import "errors"

// ErrBadCondition is returned when a Filter condition references a column
// index outside the child's projection or an unsupported operator.
var ErrBadCondition = errors.New("query: bad filter condition")
