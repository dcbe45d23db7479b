package analytics

// StatusOutput carries the acknowledgement as raw bytes so the wire form is
// exactly status.Body regardless of the negotiated format.
type StatusOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
