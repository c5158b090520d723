package resource

import "io"

// progressReader reports the running byte count of a reader
type progressReader struct {
	reader     io.Reader
	read       int64
	readErr    error
	onProgress func(n int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.onProgress(r.read)
	}
	if err != nil && err != io.EOF {
		r.readErr = err
	}
	return n, err
}
