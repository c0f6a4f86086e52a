package telemetry

import "sync"

// Report is a single report captured by RecordingAPI.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// RecordingAPI keeps every report in memory, tests use it to assert that
// breakages were (or were not) reported.
type RecordingAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *RecordingAPI) add(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, Id: id, Params: params})
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns the captured reports of the given kind, all of them if kind is empty.
func (r *RecordingAPI) Reports(kind string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if kind == "" || report.Kind == kind {
			out = append(out, report)
		}
	}
	return out
}
