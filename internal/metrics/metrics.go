package metrics

import (
	"sync/atomic"
)

// Metrics tracks operational metrics.
type Metrics struct {
	DocumentsProcessed uint64 `json:"documents_processed"`
	CommitLinks        uint64 `json:"commit_links"`
	IssueLinks         uint64 `json:"issue_links"`
	Resolutions        uint64 `json:"resolutions"`
	ResolutionFailures uint64 `json:"resolution_failures"`
	RequestsReceived   uint64 `json:"requests_received"`
	RequestsFailed     uint64 `json:"requests_failed"`
}

var global = &Metrics{}

// DocumentProcessed increments the count of documents linked.
func DocumentProcessed() { atomic.AddUint64(&global.DocumentsProcessed, 1) }

// CommitLinked increments the count of commit links created.
func CommitLinked() { atomic.AddUint64(&global.CommitLinks, 1) }

// IssueLinked increments the count of issue links created.
func IssueLinked() { atomic.AddUint64(&global.IssueLinks, 1) }

// RepositoryResolved increments the count of successful resolutions.
func RepositoryResolved() { atomic.AddUint64(&global.Resolutions, 1) }

// ResolutionFailed increments the count of failed resolutions.
func ResolutionFailed() { atomic.AddUint64(&global.ResolutionFailures, 1) }

// RequestReceived increments the count of HTTP link requests received.
func RequestReceived() { atomic.AddUint64(&global.RequestsReceived, 1) }

// RequestFailed increments the count of HTTP link requests rejected.
func RequestFailed() { atomic.AddUint64(&global.RequestsFailed, 1) }

// Get returns a snapshot of the current metrics.
func Get() Metrics {
	return Metrics{
		DocumentsProcessed: atomic.LoadUint64(&global.DocumentsProcessed),
		CommitLinks:        atomic.LoadUint64(&global.CommitLinks),
		IssueLinks:         atomic.LoadUint64(&global.IssueLinks),
		Resolutions:        atomic.LoadUint64(&global.Resolutions),
		ResolutionFailures: atomic.LoadUint64(&global.ResolutionFailures),
		RequestsReceived:   atomic.LoadUint64(&global.RequestsReceived),
		RequestsFailed:     atomic.LoadUint64(&global.RequestsFailed),
	}
}

// Reset resets all metrics to zero (useful for testing).
func Reset() {
	atomic.StoreUint64(&global.DocumentsProcessed, 0)
	atomic.StoreUint64(&global.CommitLinks, 0)
	atomic.StoreUint64(&global.IssueLinks, 0)
	atomic.StoreUint64(&global.Resolutions, 0)
	atomic.StoreUint64(&global.ResolutionFailures, 0)
	atomic.StoreUint64(&global.RequestsReceived, 0)
	atomic.StoreUint64(&global.RequestsFailed, 0)
}
