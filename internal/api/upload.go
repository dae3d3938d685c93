package api

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
)

const maxUploadBytes = 50 << 20 // 50 MB

// Upload handles POST /uploads (multipart/form-data, field "file").
//
//	@Summary		Upload a GPX file into the library
//	@Tags			routes
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"GPX file"
//	@Param			name		formData	string	false	"Library filename; defaults to the uploaded name"
//	@Param			overwrite	formData	bool	false	"Replace an existing file"
//	@Success		201			{object}	RouteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uploads [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	name := r.FormValue("name")
	if name == "" {
		// Only the base name of the client's filename is trusted.
		name = path.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
		if name == "." || name == "/" || name == ".." {
			name = ""
		}
	}
	p := uploadName(name)
	overwrite, _ := strconv.ParseBool(r.FormValue("overwrite"))

	d, err := h.svc.ImportGPX(r.Context(), p, data, overwrite)
	if err != nil {
		writeServiceError(w, "upload route", p, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
