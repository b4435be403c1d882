package cmd

import (
	"regexp"
	"strings"
)

var invalidArgFlagRe = regexp.MustCompile(`for "([^"]+)" flag`)

// flagParseError carries the offending flag and a human friendly reason
// format extracted from a pflag parse error.
type flagParseError struct {
	err    error
	flag   string
	reason string
}

func newFlagParseError(err error) flagParseError {
	fpe := flagParseError{err: err}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "unknown flag: "):
		fpe.flag = strings.TrimPrefix(msg, "unknown flag: ")
		fpe.reason = "Flag %s is missing."
	case strings.HasPrefix(msg, "unknown shorthand flag: "):
		if _, rest, ok := strings.Cut(msg, " in "); ok {
			fpe.flag = rest
		}
		fpe.reason = "Flag %s is missing."
	case strings.HasPrefix(msg, "flag needs an argument: "):
		rest := strings.TrimPrefix(msg, "flag needs an argument: ")
		if i := strings.LastIndex(rest, " in "); i >= 0 {
			fpe.flag = rest[i+len(" in "):]
		} else {
			fpe.flag = rest
		}
		fpe.reason = "Flag %s needs an argument."
	case strings.HasPrefix(msg, "invalid argument "):
		if m := invalidArgFlagRe.FindStringSubmatch(msg); len(m) == 2 {
			fpe.flag = m[1]
		}
		fpe.reason = "Flag %s have an invalid argument."
	default:
		fpe.reason = "Flag %s is invalid."
	}
	return fpe
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) Flag() string {
	return f.flag
}

func (f flagParseError) ReasonFormat() string {
	return f.reason
}
