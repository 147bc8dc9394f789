package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidExecuteOrder  ErrorCode = 102
	ErrCodeInvalidType          ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105
	ErrCodeInvalidStopDistance  ErrorCode = 106

	// Market data errors (200-299)
	ErrCodeInsufficientHistory   ErrorCode = 200
	ErrCodeDataGap               ErrorCode = 201
	ErrCodeMarketDataFetchFailed ErrorCode = 202
	ErrCodeMarketDataParseFailed ErrorCode = 203

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeBoxNotInitialized ErrorCode = 400
	ErrCodeSignalRejected    ErrorCode = 401

	// Execution errors (500-599)
	ErrCodeExecutionTimeout       ErrorCode = 500
	ErrCodeExecutionRejected      ErrorCode = 501
	ErrCodeExecutionAuthFailed    ErrorCode = 502
	ErrCodeReconciliationMismatch ErrorCode = 503
	ErrCodeOrderNotFound          ErrorCode = 504
	ErrCodePositionConflict       ErrorCode = 505

	// State store errors (600-699)
	ErrCodeStateStoreInit  ErrorCode = 600
	ErrCodeStateStoreQuery ErrorCode = 601
	ErrCodeStateStoreWrite ErrorCode = 602
)
