package telemetry

import (
	"fmt"
)

// API is the logging/metrics surface every component reports through.
// Components never call slog directly so that tests can assert on what was
// reported.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that failed in a way that needs attention.
	//
	// The `id` names the component that broke (`<struct>.<method>`, lowercase,
	// dashes between words), not the line of code. Wrap the error or add params
	// to say what exactly went wrong; ScopedAPI supplies the package namespace.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that did not break the run but should be
	// looked at, such as a single lesson that could not be saved.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information only useful while developing.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of a counter. Values are points in
	// time and should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, like a sub-logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
