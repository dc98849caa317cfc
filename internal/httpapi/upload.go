package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/ingest"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

var errMissingFile = errors.New("missing file")

// parseUpload reads the multipart form, capping the body at max bytes.
func parseUpload(w http.ResponseWriter, r *http.Request, max int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, max)
	return r.ParseMultipartForm(max)
}

func readRosterPart(r *http.Request, match types.MatchMode) (types.RosterTable, string, error) {
	f, hdr, err := r.FormFile("roster")
	if err != nil {
		return types.RosterTable{}, "", fmt.Errorf("%w: roster", errMissingFile)
	}
	defer f.Close()

	name := filepath.Base(hdr.Filename)
	t, err := ingest.ReadRoster(f, name, match)
	return t, name, err
}

func readEventsPart(r *http.Request, opts types.Options) ([]types.EventRecord, string, error) {
	f, hdr, err := r.FormFile("events")
	if err != nil {
		return nil, "", fmt.Errorf("%w: events", errMissingFile)
	}
	defer f.Close()

	name := filepath.Base(hdr.Filename)
	evs, err := ingest.ReadEvents(f, name, ingest.EventOptions{
		Match:       opts.Match,
		RequireKind: len(opts.CountableKinds) > 0,
	})
	return evs, name, err
}

// writeUploadError maps upload and ingest failures to HTTP responses.  It
// reports false when err is not one of them.
func writeUploadError(w http.ResponseWriter, err error) bool {
	var (
		tooBig  *http.MaxBytesError
		missing *ingest.MissingColumnError
	)
	switch {
	case errors.As(err, &tooBig):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
	case errors.Is(err, errMissingFile):
		writeError(w, http.StatusBadRequest, "missing_file", err.Error())
	case errors.As(err, &missing):
		writeError(w, http.StatusUnprocessableEntity, "missing_column", missing.Error())
	case errors.Is(err, ingest.ErrEmptyTable):
		writeError(w, http.StatusUnprocessableEntity, "empty_table", err.Error())
	default:
		return false
	}
	return true
}
