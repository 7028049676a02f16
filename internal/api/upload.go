package api

import (
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/imagestore"
	"infrabeacon/internal/report"
	"infrabeacon/internal/workflow"
)

// maxUploadBody leaves room for base64 inflation and the other form fields.
const maxUploadBody = imagestore.MaxBytes*4/3 + 1<<20

type submitRequest struct {
	Image       string   `json:"image"`
	Filename    string   `json:"filename"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description string   `json:"description"`
	IssueType   string   `json:"issue_type"`
	Severity    string   `json:"severity"`
}

var dataURLExt = map[string]string{"image/png": "png", "image/jpeg": "jpg", "image/gif": "gif", "image/webp": "webp"}

type upload struct {
	data     []byte
	filename string
}

func isMultipart(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("content-type"))
	return mt == "multipart/form-data"
}

// parseSubmission accepts either multipart/form-data with an "image" file or a JSON body
// carrying the image as base64 or a data URL.
func parseSubmission(w http.ResponseWriter, r *http.Request) (workflow.SubmitInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	var req submitRequest
	var up upload
	if isMultipart(r) {
		var err error
		if up, err = formImage(r); err != nil {
			return workflow.SubmitInput{}, err
		}
		req.Description = r.FormValue("description")
		req.IssueType = r.FormValue("issue_type")
		req.Severity = r.FormValue("severity")
		if req.Latitude, err = formFloat(r, "latitude"); err != nil {
			return workflow.SubmitInput{}, err
		}
		if req.Longitude, err = formFloat(r, "longitude"); err != nil {
			return workflow.SubmitInput{}, err
		}
	} else {
		if err := decodeJSON(r, &req, false); err != nil {
			return workflow.SubmitInput{}, err
		}
		var err error
		if up, err = decodeDataURL(req.Image, req.Filename); err != nil {
			return workflow.SubmitInput{}, err
		}
	}
	if req.Latitude == nil || req.Longitude == nil {
		return workflow.SubmitInput{}, apperr.Validation("latitude and longitude are required")
	}
	return workflow.SubmitInput{
		Image:       up.data,
		Filename:    up.filename,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Description: strings.TrimSpace(req.Description),
		IssueType:   report.IssueType(strings.ToLower(strings.TrimSpace(req.IssueType))),
		Severity:    report.Severity(strings.ToLower(strings.TrimSpace(req.Severity))),
	}, nil
}

// parseImageOnly reads just the image, for the analyze endpoint.
func parseImageOnly(w http.ResponseWriter, r *http.Request) (upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if isMultipart(r) {
		return formImage(r)
	}
	var req struct {
		Image    string `json:"image"`
		Filename string `json:"filename"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		return upload{}, err
	}
	return decodeDataURL(req.Image, req.Filename)
}

func formImage(r *http.Request) (upload, error) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return upload{}, apperr.Validation("request body too large")
		}
		return upload{}, apperr.Validation("invalid multipart form: %v", err)
	}
	f, hdr, err := r.FormFile("image")
	if err != nil {
		return upload{}, apperr.Validation("image is required")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, apperr.Validation("image could not be read")
	}
	return upload{data: data, filename: hdr.Filename}, nil
}

func formFloat(r *http.Request, key string) (*float64, error) {
	s := strings.TrimSpace(r.FormValue(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, apperr.Validation("%s must be a number", key)
	}
	return &v, nil
}

// decodeDataURL accepts "data:image/png;base64,...." or bare base64.
func decodeDataURL(s, filename string) (upload, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return upload{}, apperr.Validation("image is required")
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return upload{}, apperr.Validation("malformed data URL")
		}
		meta := s[5:i]
		s = s[i+1:]
		if ext, ok := dataURLExt[strings.TrimSuffix(meta, ";base64")]; ok && filename == "" {
			filename = "upload." + ext
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return upload{}, apperr.Validation("image is not valid base64")
		}
	}
	return upload{data: data, filename: filename}, nil
}
