package service

import (
	"context"
	"errors"

	domainerrors "github.com/listenupapp/goodbooks-api/internal/errors"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// storeError translates a store failure into a coded domain error. subject names the
// record for not found messages ("book 42"). Domain errors pass through unchanged.
func storeError(err error, subject string) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(subject + " not found")
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid "+subject)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Wrap(err, domainerrors.CodeConflict, subject+" already exists")
	case errors.Is(err, store.ErrClosed), // also matches ErrBusy
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return domainerrors.StoreUnavailable(err)
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, domainerrors.ErrInternal.Message)
	}
}
