package ledger

import (
	"errors"
	"fmt"
)

// Code identifies why a transition was rejected.
//
// Every code is a per-call rejection: the ledger is left exactly as it was
// before the call. None of them is fatal to the process.
type Code string

const (
	CodeAlreadyRegistered Code = "AlreadyRegistered"
	CodeNotRegistered     Code = "NotRegistered"
	CodeInvalidQuantity   Code = "InvalidQuantity"
	CodeInvalidPrice      Code = "InvalidPrice"
	CodeNoSuchListing     Code = "NoSuchListing"
	CodeInsufficientUnits Code = "InsufficientUnits"
	CodeOverflow          Code = "Overflow"
)

// Codes lists the rejection taxonomy in declaration order.
var Codes = []Code{
	CodeAlreadyRegistered,
	CodeNotRegistered,
	CodeInvalidQuantity,
	CodeInvalidPrice,
	CodeNoSuchListing,
	CodeInsufficientUnits,
	CodeOverflow,
}

// Sentinel errors, one per code. Use errors.Is against these.
var (
	ErrAlreadyRegistered = &Error{Code: CodeAlreadyRegistered, Message: "principal already registered"}
	ErrNotRegistered     = &Error{Code: CodeNotRegistered, Message: "principal not registered or inactive"}
	ErrInvalidQuantity   = &Error{Code: CodeInvalidQuantity, Message: "quantity must be positive"}
	ErrInvalidPrice      = &Error{Code: CodeInvalidPrice, Message: "price must be positive"}
	ErrNoSuchListing     = &Error{Code: CodeNoSuchListing, Message: "listing not found"}
	ErrInsufficientUnits = &Error{Code: CodeInsufficientUnits, Message: "requested units unavailable"}
	ErrOverflow          = &Error{Code: CodeOverflow, Message: "quantity exceeds representable range"}
)

// Error is a tagged rejection returned by every ledger write operation.
type Error struct {
	// Code is the taxonomy member.
	Code Code

	// Message is a human-readable description.
	Message string

	// Principal is the caller or subject, when relevant.
	Principal Principal

	// ListingID is the listing involved, when relevant.
	ListingID uint64
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Principal != "" && e.ListingID != 0:
		return fmt.Sprintf("%s: %s (principal=%s, listing=%d)", e.Code, e.Message, e.Principal, e.ListingID)
	case e.Principal != "":
		return fmt.Sprintf("%s: %s (principal=%s)", e.Code, e.Message, e.Principal)
	case e.ListingID != 0:
		return fmt.Sprintf("%s: %s (listing=%d)", e.Code, e.Message, e.ListingID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same code, so a detailed rejection
// still satisfies errors.Is(err, ErrNotRegistered).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the rejection code carried by err, or "" when err is not a
// ledger rejection. Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsRejection reports whether err is a ledger rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	return CodeOf(err) != ""
}

func reject(sentinel *Error, who Principal, listingID uint64) *Error {
	return &Error{
		Code:      sentinel.Code,
		Message:   sentinel.Message,
		Principal: who,
		ListingID: listingID,
	}
}
