package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go-api-template/pkg/apierror"
)

const maxBodyBytes = 1 << 20

type validator interface {
	Struct(value any) error
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v validator, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apierror.New(apierror.CodeBadRequest, "Request body too large", fmt.Sprintf("limit %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			return apierror.New(apierror.CodeBadRequest, "Request body is required", "", http.StatusBadRequest)
		default:
			return apierror.New(apierror.CodeBadRequest, "Invalid JSON body", "", http.StatusBadRequest)
		}
	}

	return v.Struct(dst)
}
