package triage

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Category string

const (
	CategoryTransport    Category = "transport"
	CategoryResponse     Category = "response"
	CategoryPrecondition Category = "precondition"
)

// Notice is a user-facing report of a failed operation.
type Notice struct {
	Op       string
	Severity Severity
	Category Category
	Message  string
	Err      error
}

func (n Notice) String() string {
	if n.Err == nil {
		return fmt.Sprintf("[%s/%s] %s: %s", n.Severity, n.Category, n.Op, n.Message)
	}
	return fmt.Sprintf("[%s/%s] %s: %s (%v)", n.Severity, n.Category, n.Op, n.Message, n.Err)
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

const (
	OpAnalyze = "analyze"
	OpRoadmap = "roadmap"
)

var failureMessages = map[string]string{
	OpAnalyze: "An error occurred during analysis.",
	OpRoadmap: "An error occurred while loading the care roadmap.",
}

func failureNotice(op string, err error) Notice {
	category := CategoryTransport
	if errors.Is(err, ErrMalformedResponse) {
		category = CategoryResponse
	}
	return Notice{
		Op:       op,
		Severity: SeverityError,
		Category: category,
		Message:  failureMessages[op],
		Err:      err,
	}
}
