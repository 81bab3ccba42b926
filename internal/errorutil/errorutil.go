package errorutil

import "errors"

// ErrUnreadableInput wraps every failure to open or read a profile. It is
// the only fatal error of a conversion.
var ErrUnreadableInput = errors.New("unreadable input")

// ErrNoResults represents situations in which a conversion produced nothing
// to emit.
var ErrNoResults = errors.New("no results returned")
