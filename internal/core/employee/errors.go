package employee

import "errors"

var (
	ErrInvalidID          = errors.New("employee: invalid id")
	ErrInvalidName        = errors.New("employee: invalid name")
	ErrInvalidEmail       = errors.New("employee: invalid email")
	ErrInvalidDepartment  = errors.New("employee: invalid department")
	ErrInvalidPosition    = errors.New("employee: invalid position")
	ErrInvalidSalary      = errors.New("employee: invalid salary")
	ErrInvalidStatus      = errors.New("employee: invalid status")
	ErrInvalidRating      = errors.New("employee: invalid performance rating")
	ErrInvalidPage        = errors.New("employee: invalid page")
	ErrInvalidPageSize    = errors.New("employee: invalid page size")
	ErrEmployeeNotFound   = errors.New("employee: not found")
	ErrEmailAlreadyExists = errors.New("employee: email already exists")
	// ErrStoreUnavailable はデータストアへ到達できない場合に返却されます。呼び出し側でリトライ方針を決めます。
	ErrStoreUnavailable = errors.New("employee: store unavailable")
)

var validationErrors = []error{
	ErrInvalidID,
	ErrInvalidName,
	ErrInvalidEmail,
	ErrInvalidDepartment,
	ErrInvalidPosition,
	ErrInvalidSalary,
	ErrInvalidStatus,
	ErrInvalidRating,
	ErrInvalidPage,
	ErrInvalidPageSize,
}

// IsValidationError は入力不正に起因するエラーかどうかを判定します。
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
