package handler

import "net/http"

type emptyResponse struct {
	status int
}

func (e emptyResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(e.status)
	return nil
}

// Empty creates an empty response with status 204 (No Content).
func Empty() Response {
	return emptyResponse{status: http.StatusNoContent}
}

// EmptyWithStatus creates an empty response with a custom status code.
// Webhook endpoints use it to acknowledge deliveries with 200.
func EmptyWithStatus(status int) Response {
	return emptyResponse{status: status}
}

type bytesResponse struct {
	contentType string
	body        []byte
}

func (b bytesResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", b.contentType)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(b.body)
	return err
}

// Bytes writes a raw body with the given content type, e.g. a PNG image.
func Bytes(contentType string, body []byte) Response {
	return bytesResponse{contentType: contentType, body: body}
}
