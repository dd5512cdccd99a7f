package logging

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Stacktrace is the field under which WithStacktrace records the stack.
const Stacktrace = "stacktrace"

// WithStacktrace adds err and, if any error in its chain was created or wrapped by pkg/errors, the innermost
// stack trace recorded there. A nil entry means the standard logger.
func WithStacktrace(logger *logrus.Entry, err error) *logrus.Entry {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithError(err)
	if stack := innermostStack(err); stack != nil {
		logger = logger.WithField(Stacktrace, stack)
	}
	return logger
}

// innermostStack follows both Cause and Unwrap, so that stacks behind fmt.Errorf("%w") and multierror are found too.
func innermostStack(err error) errors.StackTrace {
	var stack errors.StackTrace
	for err != nil {
		if tracer, ok := err.(interface{ StackTrace() errors.StackTrace }); ok {
			stack = tracer.StackTrace()
		}
		if causer, ok := err.(interface{ Cause() error }); ok {
			err = causer.Cause()
		} else {
			err = errors.Unwrap(err)
		}
	}
	return stack
}
