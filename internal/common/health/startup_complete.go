package health

import (
	"errors"
	"sync/atomic"
)

// StartupCompleteChecker reports unhealthy until MarkComplete has been called.
type StartupCompleteChecker struct {
	complete atomic.Bool
}

func NewStartupCompleteChecker() *StartupCompleteChecker {
	return &StartupCompleteChecker{}
}

func (s *StartupCompleteChecker) MarkComplete() {
	s.complete.Store(true)
}

func (s *StartupCompleteChecker) Check() error {
	if s.complete.Load() {
		return nil
	}
	return errors.New("startup is not complete")
}
