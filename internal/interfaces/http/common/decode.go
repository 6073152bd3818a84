package common

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
var ErrEmptyBody = errors.New("リクエストボディが空です")

// DecodeJSON decodes a single JSON value from r into dst, rejecting unknown
// fields, trailing data and bodies larger than MaxRequestBody.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxRequestBody+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("リクエストの形式が不正です: %w", err)
	}
	if dec.More() {
		return errors.New("リクエストの形式が不正です: 余分なデータがあります")
	}
	return nil
}
