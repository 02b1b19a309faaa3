package types

// API error codes, "<AREA>_<HTTP status>".
const (
	CodePortsInvalid     = "PORTS_400"
	CodePortNotFound     = "PORT_404"
	CodePortLookupFailed = "PORT_500"

	CodeSelectionInvalid = "SELECTION_400"
	CodeSelectionFailed  = "SELECTION_500"

	CodeCatalogNotFound = "CATALOG_404"
	CodeCatalogFailed   = "CATALOG_500"

	CodeHistoryInvalid  = "HISTORY_400"
	CodeHistoryNotFound = "HISTORY_404"
	CodeHistoryFailed   = "HISTORY_500"

	CodeSystemUnavailable = "SYSTEM_503"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds the error envelope. details may be a port key, an
// FQBN, an error string or nil.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
