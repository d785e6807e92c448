package constants

// Request errors
const (
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrMissingFile        = "multipart field 'file' is required"
	ErrUploadTooLarge     = "uploaded file exceeds the size limit"
	ErrUnreadableWorkbook = "could not read the uploaded workbook"
	ErrUnsupportedFormat  = "unsupported file type; upload .xlsx, .xls or .csv"
	ErrNoHeaderRow        = "the first sheet has no header row"
	ErrRowIndex           = "row index out of range"
	ErrNoRowFields        = "fields must contain at least one canonical field"
	ErrUnknownRowField    = "unknown field: %s"
)

// Session errors
const (
	ErrSessionNotFound    = "import session not found or expired"
	ErrNotPreviewed       = "preview the import before approving it"
	ErrClientNotInSession = "client %s has no rows in this import"
)

// Approval and persistence
const (
	ErrBlockedRows          = "%d row(s) have blocking issues; fix them before approval"
	ErrStoreUnavailable     = "persistence is not configured"
	ErrSaveFailed           = "failed to save import batch"
	ErrDirectoryUnavailable = "client directory unavailable; approval needs existing client ids, try again later"
	ErrReportFailed         = "failed to build the import report"
	ErrInsightsFailed       = "failed to load product type insights"
	MsgDirectoryFailed      = "client directory unavailable; ids assigned without existing clients"
	MsgNarrativeFailed      = "summary unavailable: %s"
	MsgNoPersistedPolicies  = "no policies have been imported yet"
)
