// Package datastore provides error handling helpers for database operations
package datastore

import (
	"fmt"

	"github.com/fieldarchive/unitlabel/internal/errors"
)

const componentDatastore = "datastore"

// addContext copies key/value pairs onto the builder; odd trailing keys are dropped.
func addContext(builder *errors.ErrorBuilder, context []any) *errors.ErrorBuilder {
	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}
	return builder
}

// DBError creates a categorized database error with operation context.
// The driver error stays reachable through errors.Is and errors.As.
func DBError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component(componentDatastore).
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("error_kind", CategorizeError(err))

	if priority != "" {
		builder = builder.Priority(priority)
	}

	return addContext(builder, context).Build()
}

// ConflictError creates a conflict error for unique constraint violations
func ConflictError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component(componentDatastore).
		Category(errors.CategoryConflict).
		Priority(errors.PriorityLow).
		Context("operation", operation)

	return addContext(builder, context).Build()
}

// NotFoundError wraps a sentinel not-found error with the looked up identifier
func NotFoundError(err error, resource, identifier string) error {
	return errors.New(err).
		Component(componentDatastore).
		Category(errors.CategoryNotFound).
		Context("resource", resource).
		Context("identifier", identifier).
		Build()
}

func dbError(err error, operation, priority string, context ...any) error {
	return DBError(err, operation, priority, context...)
}

// validationError creates a validation error for bad datastore configuration
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component(componentDatastore).
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}
