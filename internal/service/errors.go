package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/auth"
	"github.com/mmynk/ledger/internal/middleware"
	"github.com/mmynk/ledger/internal/storage"
)

const (
	// ErrorCodeHeader carries the domain error code of a failed call.
	ErrorCodeHeader = middleware.ErrorCodeHeader
	// ErrorFieldHeader names the input field a failed call is about.
	ErrorFieldHeader = "Ledger-Error-Field"
)

// connectCode maps a domain error to the Connect code clients see.
func connectCode(e *apperr.Error) connect.Code {
	switch e.Code {
	case apperr.CodeUserNotFound:
		return connect.CodeUnauthenticated
	case apperr.CodeExpenseVersionConflict:
		return connect.CodeAborted
	}

	switch e.Kind() {
	case apperr.KindValidation:
		return connect.CodeInvalidArgument
	case apperr.KindConflict:
		return connect.CodeAlreadyExists
	case apperr.KindNotFound:
		return connect.CodeNotFound
	case apperr.KindBusinessRule:
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInternal
	}
}

// Messages sent for internal failures. The underlying error is only logged.
var (
	errTransactionAborted = errors.New("transaction aborted")
	errInternal           = errors.New("internal error")
)

// connectError converts an engine or auth error into a *connect.Error.
// Anything that is not a known domain error is internal, and its text never
// reaches the client.
func connectError(err error) error {
	if err == nil {
		return nil
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	if e, ok := apperr.As(err); ok {
		ce := connect.NewError(connectCode(e), errors.New(e.Message))
		ce.Meta().Set(ErrorCodeHeader, string(e.Code))
		if e.Field != "" {
			ce.Meta().Set(ErrorFieldHeader, e.Field)
		}
		return ce
	}

	switch {
	case errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrDisplayNameMissing):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, storage.ErrSplitImbalance):
		slog.Error("Transaction aborted by balance guard", "error", err)
		return connect.NewError(connect.CodeInternal, errTransactionAborted)
	}
	slog.Error("Internal error", "error", err)
	return connect.NewError(connect.CodeInternal, errInternal)
}

// DomainCode returns the domain error code carried by a Connect error, or ""
// if there is none.
func DomainCode(err error) apperr.Code {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return ""
	}
	return apperr.Code(connectErr.Meta().Get(ErrorCodeHeader))
}

// requireID rejects an empty id in a request.
func requireID(field, id string) error {
	if id == "" {
		return connectError(apperr.Validation(field, field+" is required"))
	}
	return nil
}
