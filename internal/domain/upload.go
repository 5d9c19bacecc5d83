package domain

// FileUpload is a client file spooled to local disk for the life of one request.
type FileUpload struct {
	Field        string
	Path         string
	OriginalName string
	ContentType  string
	Size         int64
}
