package esmerald

import (
	"errors"
	"io"
	"mime/multipart"
)

// FileUpload holds a file from a multipart form. Form fields of this type
// (or []FileUpload) are documented as binary strings.
type FileUpload struct {
	Filename string
	Size     int64
	Header   *multipart.FileHeader
	file     multipart.File
}

// ContentType returns the content type the client sent for the file.
func (f *FileUpload) ContentType() string {
	if f.Header == nil {
		return ""
	}
	return f.Header.Header.Get("Content-Type")
}

// Open returns a reader for the uploaded file contents.
func (f *FileUpload) Open() (io.ReadCloser, error) {
	if f.file != nil {
		return f.file, nil
	}
	if f.Header == nil {
		return nil, errors.New("no file header")
	}
	file, err := f.Header.Open()
	if err != nil {
		return nil, err
	}
	f.file = file
	return file, nil
}

// ReadAll reads the whole file and closes it.
func (f *FileUpload) ReadAll() ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only
	return io.ReadAll(rc)
}
