package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindConflict   ErrorKind = "CONFLICT"
	KindSystem     ErrorKind = "SYSTEM"
)

// Error is the business error every service returns. Two errors are equal
// under errors.Is when their codes match, so the package-level values below
// work as sentinels even after Withf copies them.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Withf returns a copy carrying a more specific message.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy that keeps err as its cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

var (
	ErrInvalidRequest = &Error{Kind: KindValidation, Code: "INVALID_REQUEST", Message: "invalid request"}

	ErrCustomerNotFound = &Error{Kind: KindNotFound, Code: "CUSTOMER_NOT_FOUND", Message: "customer not found"}
	ErrProductNotFound  = &Error{Kind: KindNotFound, Code: "PRODUCT_NOT_FOUND", Message: "product not found"}
	ErrOrderNotFound    = &Error{Kind: KindNotFound, Code: "ORDER_NOT_FOUND", Message: "order not found"}
	ErrVoucherNotFound  = &Error{Kind: KindNotFound, Code: "VOUCHER_NOT_FOUND", Message: "voucher not found"}
	ErrPaymentNotFound  = &Error{Kind: KindNotFound, Code: "PAYMENT_NOT_FOUND", Message: "payment not found"}

	ErrInsufficientStock       = &Error{Kind: KindConflict, Code: "INSUFFICIENT_STOCK", Message: "insufficient stock"}
	ErrNoActivePrice           = &Error{Kind: KindConflict, Code: "NO_ACTIVE_PRICE", Message: "product has no active price"}
	ErrInvalidStatusTransition = &Error{Kind: KindConflict, Code: "INVALID_STATUS_TRANSITION", Message: "invalid status transition"}
	ErrOrderNumberTaken        = &Error{Kind: KindConflict, Code: "ORDER_NUMBER_TAKEN", Message: "order number already exists"}

	ErrVoucherInactive       = &Error{Kind: KindConflict, Code: "VOUCHER_INACTIVE", Message: "voucher is not active"}
	ErrVoucherNotStarted     = &Error{Kind: KindConflict, Code: "VOUCHER_NOT_STARTED", Message: "voucher is not valid yet"}
	ErrVoucherExpired        = &Error{Kind: KindConflict, Code: "VOUCHER_EXPIRED", Message: "voucher has expired"}
	ErrVoucherMinOrder       = &Error{Kind: KindConflict, Code: "VOUCHER_MIN_ORDER", Message: "order total is below the voucher minimum"}
	ErrVoucherUsageExhausted = &Error{Kind: KindConflict, Code: "VOUCHER_USAGE_EXHAUSTED", Message: "voucher usage limit reached"}
	ErrVoucherNotOwner       = &Error{Kind: KindConflict, Code: "VOUCHER_NOT_OWNER", Message: "voucher belongs to another customer"}
	ErrVoucherCodeTaken      = &Error{Kind: KindConflict, Code: "VOUCHER_CODE_TAKEN", Message: "voucher code already exists"}
	ErrVoucherNotRedeemable  = &Error{Kind: KindConflict, Code: "VOUCHER_NOT_REDEEMABLE", Message: "voucher cannot be redeemed with points"}
	ErrInsufficientPoints    = &Error{Kind: KindConflict, Code: "INSUFFICIENT_POINTS", Message: "not enough points"}

	ErrPaymentNotAllowed = &Error{Kind: KindConflict, Code: "PAYMENT_NOT_ALLOWED", Message: "order cannot be paid"}
	ErrAlreadyPaid       = &Error{Kind: KindConflict, Code: "ALREADY_PAID", Message: "order is already paid"}
	ErrPaymentDeclined   = &Error{Kind: KindConflict, Code: "PAYMENT_DECLINED", Message: "payment was declined"}
	ErrPaymentPending    = &Error{Kind: KindConflict, Code: "PAYMENT_PENDING", Message: "payment outcome is not known yet"}
	ErrPaymentInProgress = &Error{Kind: KindConflict, Code: "PAYMENT_IN_PROGRESS", Message: "order has a payment in progress"}

	ErrInternal = &Error{Kind: KindSystem, Code: "INTERNAL", Message: "internal error"}
)

// Invalidf builds a validation error with a caller-facing message.
func Invalidf(format string, args ...any) *Error {
	return ErrInvalidRequest.Withf(format, args...)
}

// AsError classifies any error. Errors that are not *Error become SYSTEM
// errors wrapping the original.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return ErrInternal.Wrap(err)
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}
