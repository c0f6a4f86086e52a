// Package telemetry is how components report what happens to them. They
// never log directly, they are handed an API and report through it, which
// lets tests assert on what was reported.
package telemetry

// API receives reports from components.
//
// Ids name the component that is reporting and the operation inside it,
// like "negotiator.create-store-session". They are lowercase, a dot separates
// the component from the operation and dashes separate words. Every package
// declares its ids as report_* constants.
type API interface {
	// ReportBroken reports a failure someone should look at.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something unusual that is not a failure yet,
	// like a retried page.
	ReportWarning(id string, params ...any)
	// ReportDebug is dropped unless debug logging is on.
	ReportDebug(msg string, params ...any)
	// ReportCount reports the value of a counter at this moment, successive
	// counts of one id are points over time and must not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id it reports with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return s.namespace + ": " + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
