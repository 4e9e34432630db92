package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"productsapi/storage"
)

// multipart headers and boundaries on top of the file itself
const multipartOverhead = 64 << 10

type UploadHandler struct {
	Store    storage.Storage
	MaxBytes int64
	Log      *zap.Logger
}

type uploadResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
	FullURL      string `json:"fullUrl"`
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// uploadExtension keeps the client's extension, case included, when it names
// the sniffed type. Otherwise the extension comes from the content.
func uploadExtension(filename string, mt *mimetype.MIME) string {
	ext := filepath.Ext(filename)
	if ext != "" {
		declared, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
		if err == nil && mt.Is(declared) {
			return ext
		}
	}
	return mt.Extension()
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

// Upload stores the "image" field of a multipart request.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+multipartOverhead)

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.MaxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	mt, err := mimetype.DetectReader(file)
	if err != nil || !isImage(header.Header.Get("Content-Type")) || !isImage(mt.String()) {
		writeError(w, http.StatusBadRequest, "Only image files are allowed")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.Log.Error("rewind upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	ext := uploadExtension(header.Filename, mt)
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)

	url, err := h.Store.Save(r.Context(), name, mt.String(), file)
	if err != nil {
		h.Log.Error("upload failed", zap.String("filename", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	fullURL := url
	if strings.HasPrefix(url, "/") {
		fullURL = requestOrigin(r) + url
	}

	h.Log.Info("file uploaded", zap.String("filename", name), zap.Int64("size", header.Size))
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:      true,
		Message:      "File uploaded successfully",
		Filename:     name,
		OriginalName: header.Filename,
		Size:         header.Size,
		URL:          url,
		FullURL:      fullURL,
	})
}
