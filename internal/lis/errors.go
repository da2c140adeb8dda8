package lis

import (
	"fmt"

	apperrors "lisstat/internal/errors"
	"lisstat/pkg/contracts/domain"
)

// TableNotFoundError is returned when the report ends before the requested
// caption (or, in summary mode, the C phase ending marker) is seen.
type TableNotFoundError struct {
	Kind      domain.TableKind
	Primary   string
	Secondary string
	Summary   bool
}

func (e *TableNotFoundError) Error() string {
	what := "table"
	if e.Summary {
		what = "summary table"
	}
	if e.Kind == domain.TableKindCurrent {
		return fmt.Sprintf("%s %s for branch %q to %q not found", e.Kind, what, e.Primary, e.Secondary)
	}
	return fmt.Sprintf("%s %s for node %q not found", e.Kind, what, e.Primary)
}

// ErrorType maps the error to NOT_FOUND.
func (e *TableNotFoundError) ErrorType() apperrors.ErrorType { return apperrors.ErrTypeNotFound }

// NameTooLongError is returned before any I/O when a node name prefix cannot
// be phase-qualified within the six character field.
type NameTooLongError struct {
	Name   string
	Prefix string
}

func (e *NameTooLongError) Error() string {
	return fmt.Sprintf("node name %q: prefix %q longer than %d characters", e.Name, e.Prefix, MaxPrefixLength)
}

// ErrorType maps the error to VALIDATION.
func (e *NameTooLongError) ErrorType() apperrors.ErrorType { return apperrors.ErrTypeValidation }

// RowDecodeError reports a table row whose fixed-width field did not parse.
type RowDecodeError struct {
	Line  int
	Field string
	Text  string
	Err   error
}

func (e *RowDecodeError) Error() string {
	return fmt.Sprintf("line %d: failed to decode row field %s from %q: %v", e.Line, e.Field, e.Text, e.Err)
}

func (e *RowDecodeError) Unwrap() error { return e.Err }

// ErrorType maps the error to PARSING.
func (e *RowDecodeError) ErrorType() apperrors.ErrorType { return apperrors.ErrTypeParsing }

// SummaryDecodeError reports a mean, variance or standard deviation line that did not parse.
type SummaryDecodeError struct {
	Line  int
	Field string
	Text  string
	Err   error
}

func (e *SummaryDecodeError) Error() string {
	return fmt.Sprintf("line %d: failed to decode summary field %s from %q: %v", e.Line, e.Field, e.Text, e.Err)
}

func (e *SummaryDecodeError) Unwrap() error { return e.Err }

// ErrorType maps the error to PARSING.
func (e *SummaryDecodeError) ErrorType() apperrors.ErrorType { return apperrors.ErrTypeParsing }

// BaseDecodeError reports a caption whose trailing base value did not parse.
type BaseDecodeError struct {
	Line int
	Text string
	Err  error
}

func (e *BaseDecodeError) Error() string {
	return fmt.Sprintf("line %d: failed to decode table base from %q: %v", e.Line, e.Text, e.Err)
}

func (e *BaseDecodeError) Unwrap() error { return e.Err }

// ErrorType maps the error to PARSING.
func (e *BaseDecodeError) ErrorType() apperrors.ErrorType { return apperrors.ErrTypeParsing }

// ShotDecodeError reports a peak, shot or switching time line that did not decode.
type ShotDecodeError struct {
	Line int
	Text string
	Err  error
}

func (e *ShotDecodeError) Error() string {
	return fmt.Sprintf("line %d: failed to decode shot record %q: %v", e.Line, e.Text, e.Err)
}

func (e *ShotDecodeError) Unwrap() error { return e.Err }

// ErrorType maps the error to PARSING.
func (e *ShotDecodeError) ErrorType() apperrors.ErrorType { return apperrors.ErrTypeParsing }

// TruncatedTableError is returned when the report ends inside a block the
// scanner has committed to reading.
type TruncatedTableError struct {
	Line  int
	Stage string
}

func (e *TruncatedTableError) Error() string {
	return fmt.Sprintf("report ends at line %d while reading %s", e.Line, e.Stage)
}

// ErrorType maps the error to PARSING.
func (e *TruncatedTableError) ErrorType() apperrors.ErrorType { return apperrors.ErrTypeParsing }
