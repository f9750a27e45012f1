package handlers

import (
	"fmt"
	"net/http"

	"github.com/vidtube/backend/internal/uploads"
)

// stageUpload copies one multipart file field into the staging directory.
// Absent optional files return ok=false with no error; absent required files
// surface uploads.ErrFileMissing so no blob is touched for a doomed request.
func stageUpload(r *http.Request, dir, field string, required bool) (uploads.StagedFile, bool, error) {
	if r.MultipartForm == nil {
		if required {
			return uploads.StagedFile{}, false, uploads.ErrFileMissing
		}
		return uploads.StagedFile{}, false, nil
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		if required {
			return uploads.StagedFile{}, false, fmt.Errorf("field %s: %w", field, uploads.ErrFileMissing)
		}
		return uploads.StagedFile{}, false, nil
	}

	staged, err := uploads.Stage(dir, headers[0])
	if err != nil {
		return uploads.StagedFile{}, false, err
	}
	return staged, true, nil
}
