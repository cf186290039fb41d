package infra

import (
	"errors"
	"log/slog"

	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/usecase/shared"
)

type RepositoryErrorKind string

type RepositoryError struct {
	Kind RepositoryErrorKind
	msg  string
	err  error // wrapped low-level error
}

func (e RepositoryError) Error() string {
	if e.err != nil {
		return string(e.Kind) + ": " + e.msg + ": " + e.err.Error()
	}
	return string(e.Kind) + ": " + e.msg
}

func (e RepositoryError) Unwrap() error {
	return e.err
}

// Is maps kinds onto the port-level sentinels.
func (e RepositoryError) Is(target error) bool {
	switch e.Kind {
	case KindNotFound:
		return target == shared.ErrNotFound
	case KindConflict:
		return target == shared.ErrConflict
	default:
		return false
	}
}

func WrapRepoErr(slogger *slog.Logger, kind RepositoryErrorKind, msg string, err error) error {
	logArgs := []any{
		slog.String("kind", string(kind)),
	}

	switch kind {
	case KindNotFound, KindConflict:
		slogger.Debug("Repository error: "+msg, logArgs...)
	default:
		if err != nil {
			logArgs = append(logArgs, slog.String("error", err.Error()))
		}
		slogger.Error("Repository error: "+msg, logArgs...)
	}

	if err != nil {
		err = errs.Wrap(err, msg)
	}

	return RepositoryError{Kind: kind, msg: msg, err: err}
}

func IsKind(err error, kind RepositoryErrorKind) bool {
	var e RepositoryError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Infrastructure-specific error kinds
const (
	KindNotFound  RepositoryErrorKind = "NOT_FOUND"
	KindDBFailure RepositoryErrorKind = "DB_FAILURE"
	KindConflict  RepositoryErrorKind = "CONFLICT"
)
