package utils

import (
	"errors"
	"io"

	"github.com/valyala/bytebufferpool"
)

// ErrUploadTooLarge is returned by ReadLimited when the source exceeds the limit.
var ErrUploadTooLarge = errors.New("upload exceeds maximum size")

// UploadReader drains multipart uploads through pooled buffers so large
// audio and image files do not each grow a fresh slice.
type UploadReader struct {
	pool bytebufferpool.Pool
}

var uploads UploadReader

// NewUploadReader returns a reader with its own buffer pool.
func NewUploadReader() *UploadReader {
	return &UploadReader{}
}

// ReadLimited reads at most limit bytes from r and returns an owned copy.
// It fails with ErrUploadTooLarge if r holds more.
func (u *UploadReader) ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	buf := u.pool.Get()
	defer u.pool.Put(buf)

	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, ErrUploadTooLarge
	}

	return append([]byte(nil), buf.B...), nil
}

// ReadLimited uses the process-wide upload pool.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	return uploads.ReadLimited(r, limit)
}
