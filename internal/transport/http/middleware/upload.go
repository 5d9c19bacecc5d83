package middleware

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-bff-auth/internal/domain"
	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/transport/http/response"
	"github.com/go-bff-auth/internal/transport/http/upload"
)

const msgInvalidFile = "Invalid file or data"

// multipartMemory is how much of a form is kept in memory before
// ParseMultipartForm spills to disk.
const multipartMemory = 32 << 10

var (
	ImageTypes = []string{
		"image/jpeg",
		"image/png",
		"image/jpg",
		"image/svg",
		"image/svg+xml",
	}
	DocumentTypes = []string{
		"text/plain",
		"application/pdf",
		"application/msword",
		"application/vnd.ms-excel",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}
)

// UploadOptions configures Upload. A zero MaxBytes means no per-file limit and
// an empty Allowed list accepts ImageTypes and DocumentTypes.
type UploadOptions struct {
	Field    string
	Dir      string
	MaxBytes int64
	Allowed  []string
}

// Upload accepts at most one file in opts.Field of a multipart body. The file
// is spooled to a temp file, sniffed and tracked in the request's upload scope.
// Requests that are not multipart pass through untouched.
func Upload(opts UploadOptions) func(http.Handler) http.Handler {
	if len(opts.Allowed) == 0 {
		opts.Allowed = append(append([]string{}, ImageTypes...), DocumentTypes...)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if mediaType != "multipart/form-data" {
				next.ServeHTTP(w, r)
				return
			}
			if opts.MaxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBytes+multipartMemory)
			}
			if err := r.ParseMultipartForm(multipartMemory); err != nil {
				response.Error(w, r, apperr.Wrap(domain.ErrBadRequest, msgInvalidFile, err))
				return
			}
			defer func() { _ = r.MultipartForm.RemoveAll() }()

			if err := accept(r.Context(), r.MultipartForm, opts); err != nil {
				response.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accept(ctx context.Context, form *multipart.Form, opts UploadOptions) error {
	for name, headers := range form.File {
		if name != opts.Field || len(headers) > 1 {
			return apperr.BadRequest(msgInvalidFile)
		}
	}
	headers := form.File[opts.Field]
	if len(headers) == 0 {
		return nil
	}
	fh := headers[0]
	if opts.MaxBytes > 0 && fh.Size > opts.MaxBytes {
		return apperr.BadRequest(msgInvalidFile)
	}

	f, err := spool(fh, opts.Dir)
	if err != nil {
		return err
	}
	f.Field = opts.Field
	upload.Track(ctx, f)

	mt, err := mimetype.DetectFile(f.Path)
	if err != nil {
		return fmt.Errorf("detect upload type: %w", err)
	}
	if !allowedType(mt, opts.Allowed) {
		return apperr.BadRequest(msgInvalidFile)
	}
	f.ContentType = mt.String()
	return nil
}

// spool copies the uploaded part to a fresh temp file under dir.
func spool(fh *multipart.FileHeader, dir string) (f *domain.FileUpload, err error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, "upload-*"+cleanExt(fh.Filename))
	if err != nil {
		return nil, fmt.Errorf("create temp upload: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close temp upload: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dst.Name())
		}
	}()

	n, err := io.Copy(dst, src)
	if err != nil {
		return nil, fmt.Errorf("write temp upload: %w", err)
	}
	return &domain.FileUpload{
		Path:         dst.Name(),
		OriginalName: filepath.Base(fh.Filename),
		Size:         n,
	}, nil
}

func cleanExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\*`) {
		return ""
	}
	return ext
}

func allowedType(mt *mimetype.MIME, allowed []string) bool {
	for _, a := range allowed {
		if mt.Is(a) {
			return true
		}
	}
	return false
}
