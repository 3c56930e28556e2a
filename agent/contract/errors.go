package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrInvalidCustomer = errors.New("invalid customer id")

	ErrCustomerNotFound  = errors.New("customer not found")
	ErrMedicineNotFound  = errors.New("medicine not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrLockTimeout       = errors.New("lock acquisition timed out")
	ErrTraceInvariant    = errors.New("decision trace invariant violated")
)

// IsExecutionFailure reports whether err is a per-request execution failure
// that is rolled back and reported rather than propagated.
func IsExecutionFailure(err error) bool {
	return errors.Is(err, ErrMedicineNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrLockTimeout)
}
