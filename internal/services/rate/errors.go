package rate

import "errors"

// TempUnavailableRetryAfter is the retry hint returned when the window
// store cannot be reached.
const TempUnavailableRetryAfter int64 = 10

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) RetryAfter() int64 {
	return atLeastOne(e.RetryAfterSec)
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type TooManyReportsError struct {
	RetryAfterSec int64
}

func (e TooManyReportsError) Error() string {
	return "too many reports"
}

func (e TooManyReportsError) RetryAfter() int64 {
	return atLeastOne(e.RetryAfterSec)
}

func IsTooManyReports(err error) (*TooManyReportsError, bool) {
	var tm TooManyReportsError
	if errors.As(err, &tm) {
		return &tm, true
	}
	return nil, false
}

// TempUnavailableError is returned when the limiter cannot decide. Limits
// fail closed.
type TempUnavailableError struct {
	RetryAfterSec int64
	Err           error
}

func (e TempUnavailableError) Error() string {
	return "temporarily unavailable"
}

func (e TempUnavailableError) Unwrap() error {
	return e.Err
}

func (e TempUnavailableError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return TempUnavailableRetryAfter
	}
	return e.RetryAfterSec
}

func IsTempUnavailable(err error) (*TempUnavailableError, bool) {
	var tu TempUnavailableError
	if errors.As(err, &tu) {
		return &tu, true
	}
	return nil, false
}

func atLeastOne(v int64) int64 {
	if v <= 0 {
		return 1
	}
	return v
}
