package response

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope every companion API route answers with
type Response struct {
	Status     string `json:"status"`      // "success" or "error"
	StatusCode int    `json:"status_code"` // HTTP status code
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

func Success(statusCode int, data any) Response {
	return Response{Status: StatusSuccess, StatusCode: statusCode, Data: data}
}

func Error(statusCode int, msg string) Response {
	return Response{Status: StatusError, StatusCode: statusCode, Error: msg}
}

// Failure is an error that still carries a payload, such as a failed
// submission outcome the caller can inspect.
func Failure(statusCode int, data any, msg string) Response {
	return Response{Status: StatusError, StatusCode: statusCode, Data: data, Error: msg}
}
