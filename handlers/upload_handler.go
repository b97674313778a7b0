package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/roster-system/services"
)

const uploadFormField = "photo"

type UploadHandler struct {
	mediaService services.MediaService
}

func NewUploadHandler(ms services.MediaService) *UploadHandler {
	return &UploadHandler{
		mediaService: ms,
	}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Запас на заголовки multipart сверх лимита файла.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize+1<<20)

	if err := r.ParseMultipartForm(services.MaxUploadSize); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			badRequestResponse(w, r, fmt.Errorf("file must not be larger than %d bytes", services.MaxUploadSize))
			return
		}
		badRequestResponse(w, r, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("a file must be sent in the %q field", uploadFormField))
		return
	}
	defer file.Close()

	uploaded, err := h.mediaService.UploadPhoto(r.Context(), services.UploadInput{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Reader:       file,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if strings.HasPrefix(uploaded.URL, "/") {
		uploaded.URL = requestBaseURL(r) + uploaded.URL
	}

	response := jsonResponse{
		"success": true,
		"message": "Archivo subido correctamente",
		"file":    uploaded,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UploadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename, err := urlParam(r, "filename")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rc, info, err := h.mediaService.OpenPhoto(r.Context(), filename)
	if err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			notFoundResponse(w, r, fmt.Sprintf("file %s does not exist", filename))
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "failed to stream file", slog.String("filename", filename), slog.Any("error", err))
	}
}

func (h *UploadHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	filename, err := urlParam(r, "filename")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.mediaService.DeletePhoto(r.Context(), filename); err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			notFoundResponse(w, r, fmt.Sprintf("file %s does not exist", filename))
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"success": true,
		"message": "Archivo eliminado correctamente",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host
}
