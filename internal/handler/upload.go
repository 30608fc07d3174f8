package handler

import (
	"mime/multipart"
	"net/http"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// readImageUpload pulls the "image" file out of a multipart form and
// validates its content type. On failure it writes the error response and
// returns a non-nil error so the caller can just return.
func readImageUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return nil, nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image file")
		return nil, nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		file.Close()
		writeError(w, http.StatusBadRequest, "unsupported image type")
		return nil, nil, http.ErrNotSupported
	}
	return file, header, nil
}
