// Package errclass classifies a fetch failure into a coarse category
// for structured logging, adapted from the teacher's result package
// (ClassifyError/FormatCategory), which classified broken links for
// CSV/JSON output. Here the same classification labels a logrus field
// on per-URL engine errors instead (spec.md §7 "logged, counted as
// errored").
package errclass

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Category is the classification of a crawl error.
type Category string

const (
	Timeout           Category = "timeout"
	DNSFailure        Category = "dns_failure"
	ConnectionRefused Category = "connection_refused"
	Status4xx         Category = "4xx"
	Status5xx         Category = "5xx"
	RedirectLoop      Category = "redirect_loop"
	Unknown           Category = "unknown"
)

// Classify determines the error category based on the error and, if
// known, the HTTP status code (0 when no response was received).
func Classify(err error, statusCode int) Category {
	if statusCode > 0 {
		switch {
		case statusCode >= 400 && statusCode <= 499:
			return Status4xx
		case statusCode >= 500:
			return Status5xx
		}
	}

	if err == nil {
		return Unknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return DNSFailure
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" && strings.Contains(opErr.Error(), "connection refused") {
			return ConnectionRefused
		}
		if opErr.Timeout() {
			return Timeout
		}
	}

	if strings.Contains(err.Error(), "redirect loop") {
		return RedirectLoop
	}

	return Unknown
}

// Format returns a human-readable label for a category.
func Format(cat Category) string {
	switch cat {
	case Timeout:
		return "Timeouts"
	case DNSFailure:
		return "DNS Failures"
	case ConnectionRefused:
		return "Connection Refused"
	case Status4xx:
		return "Client Errors (4xx)"
	case Status5xx:
		return "Server Errors (5xx)"
	case RedirectLoop:
		return "Redirect Loops"
	default:
		return "Other Errors"
	}
}
