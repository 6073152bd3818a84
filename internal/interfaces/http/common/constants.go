package common

import "time"

const (
	// MaxRequestBody limits JSON request bodies for survey endpoints.
	MaxRequestBody = 1 << 20
	// RequestTimeout bounds repository calls made while serving one request.
	RequestTimeout = 5 * time.Second
)
