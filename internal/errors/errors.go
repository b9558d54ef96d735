// Package errors provides custom error types for the crazypromo API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target carries the same error code, so wrapped copies
// of a sentinel still match it with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrDuplicateSlug  = &AppError{Code: "DUPLICATE_SLUG", Message: "A record with this slug already exists", StatusCode: http.StatusConflict}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Store errors.
var (
	ErrStoreNotFound    = &AppError{Code: "STORE_NOT_FOUND", Message: "Store not found", StatusCode: http.StatusNotFound}
	ErrStoreHasProducts = &AppError{Code: "STORE_HAS_PRODUCTS", Message: "Store still has products", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound    = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse       = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing products", StatusCode: http.StatusConflict}
	ErrCategoryHasChildren = &AppError{Code: "CATEGORY_HAS_CHILDREN", Message: "Category has child categories", StatusCode: http.StatusConflict}
	ErrSelfParentCategory  = &AppError{Code: "SELF_PARENT_CATEGORY", Message: "A category cannot be its own parent", StatusCode: http.StatusBadRequest}
)

// Product and price history errors.
var (
	ErrProductNotFound = &AppError{Code: "PRODUCT_NOT_FOUND", Message: "Product not found", StatusCode: http.StatusNotFound}
	ErrProductInUse    = &AppError{Code: "PRODUCT_IN_USE", Message: "Product has promotions or price history", StatusCode: http.StatusConflict}
	ErrInvalidPrice    = &AppError{Code: "INVALID_PRICE", Message: "Price must be a positive number", StatusCode: http.StatusBadRequest}
)

// Promotion errors.
var (
	ErrPromotionNotFound = &AppError{Code: "PROMOTION_NOT_FOUND", Message: "Promotion not found", StatusCode: http.StatusNotFound}
)

// Feed import errors.
var (
	ErrUnsupportedFeedType = &AppError{Code: "UNSUPPORTED_FEED_TYPE", Message: "Unsupported feed type", StatusCode: http.StatusBadRequest}
	ErrFeedFetchFailed     = &AppError{Code: "FEED_FETCH_FAILED", Message: "Failed to fetch feed", StatusCode: http.StatusBadGateway}
	ErrFeedParseFailed     = &AppError{Code: "FEED_PARSE_FAILED", Message: "Failed to parse feed", StatusCode: http.StatusUnprocessableEntity}
	ErrFeedNotConfigured   = &AppError{Code: "FEED_NOT_CONFIGURED", Message: "Store has no feed configured", StatusCode: http.StatusBadRequest}
)
