package models

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/garments_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// ValidationError marks input problems the handler layer surfaces as 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func performedByFromContext(ctx context.Context, fallback string) string {
	if ctx != nil {
		if v, ok := utils.GetUserNameFromContext(ctx); ok && v != "" {
			return v
		}
		// name missing but an authenticated id is present
		if id, ok := utils.GetUserIdFromContext(ctx); ok && id > 0 {
			return fmt.Sprintf("user-%d", id)
		}
	}
	return fallback
}
