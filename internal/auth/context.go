package auth

import "context"

// SystemOperator is recorded when a caller does not name itself
const SystemOperator = "api"

// Operator identifies who is submitting quotes through the API
type Operator struct {
	Name string
	// Key reports whether the request carried a valid API key
	Key bool
}

type contextKey string

const operatorContextKey contextKey = "operator"

// WithOperator adds the operator to the context
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey, op)
}

// FromContext extracts the operator from the context
func FromContext(ctx context.Context) (*Operator, bool) {
	op, ok := ctx.Value(operatorContextKey).(*Operator)
	return op, ok
}

// OperatorName returns the operator name or SystemOperator
func OperatorName(ctx context.Context) string {
	if op, ok := FromContext(ctx); ok && op.Name != "" {
		return op.Name
	}
	return SystemOperator
}
