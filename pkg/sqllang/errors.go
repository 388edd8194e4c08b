// Package sqllang tokenizes and parses the engine's small SQL-like
// dialect and executes parsed statements against a relation catalog.
package sqllang

import "errors"

// ErrSyntax covers any malformed statement the parser cannot make
// sense of: missing clauses, unbalanced parens, an unrecognized verb.
var ErrSyntax = errors.New("sqllang: syntax error")

// ErrUnknownColumn is returned when a WHERE/SET clause references a
// column name absent from the relation's schema.
var ErrUnknownColumn = errors.New("sqllang: unknown column")

// ErrUnknownType is returned for a CREATE TABLE column type other
// than INT, FLOAT, CHAR(N) or VARCHAR(N).
var ErrUnknownType = errors.New("sqllang: unknown column type")
