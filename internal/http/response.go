package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// TimingInfo breaks a request down into its network phases.
type TimingInfo struct {
	StartTime           time.Time     `json:"startTime"`
	DNSLookupTime       time.Duration `json:"dnsLookup"`
	TCPConnectTime      time.Duration `json:"tcpConnect"`
	TLSHandshakeTime    time.Duration `json:"tlsHandshake"`
	TimeToFirstByte     time.Duration `json:"timeToFirstByte"`
	ContentTransferTime time.Duration `json:"contentTransfer"`
	TotalTime           time.Duration `json:"total"`
	ConnReused          bool          `json:"connReused"`
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Timing     TimingInfo
}

// JSON unmarshals the response body into v
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Header returns the value of the specified header
func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}
