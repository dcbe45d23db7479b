// Package status holds the fixed acknowledgement served by the analytics endpoint.
package status

import "bytes"

const (
	// Message is the value of the status field.
	Message = "Would this work"
	// ContentType is the media type of Body.
	ContentType = "application/json"
)

// body is the exact wire form, including the space after the colon.
var body = []byte(`{"status": "Would this work"}`)

// Response is the typed view of the acknowledgement.
type Response struct {
	Status string `json:"status" doc:"Fixed acknowledgement" example:"Would this work"`
}

// New returns the acknowledgement as a value.
func New() Response {
	return Response{Status: Message}
}

// Body returns a fresh copy of the acknowledgement bytes.
func Body() []byte {
	return bytes.Clone(body)
}
