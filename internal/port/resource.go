package port

import (
	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

// ResourceListener receives the callbacks of one file request.
// Callbacks may arrive on any goroutine.
type ResourceListener interface {
	// OnProgress reports bytes of the current file downloaded so far
	OnProgress(update domain.ProgressUpdate)

	// OnFinish reports the result of the current file
	OnFinish(code domain.ResultCode)
}

// ResourceEngine downloads the fixed set of required resource files.
// It supports one in-flight file request per session.
type ResourceEngine interface {
	// QuerySizeToDownload returns the bytes still missing, 0 if everything is
	// in place, or a negative domain.ResultCode on error
	QuerySizeToDownload() int64

	// StartNextFile requests the next missing file. It returns
	// domain.ResultSuccess when a request was issued (the outcome arrives on
	// the listener), domain.ResultOutOfFiles when nothing is queued, or a
	// failure code when the request could not be issued
	StartNextFile(listener ResourceListener) domain.ResultCode

	// CancelCurrentFile aborts the in-flight file, if any
	CancelCurrentFile()

	// ReloadMaps registers the downloaded files with the map model
	ReloadMaps() error
}
