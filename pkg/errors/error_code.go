package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidQuantity      ErrorCode = 102
	ErrCodeMissingLimitPrice    ErrorCode = 103
	ErrCodeInvalidOrder         ErrorCode = 104
	ErrCodeInvalidScenario      ErrorCode = 105
	ErrCodeInvalidDepth         ErrorCode = 106
	ErrCodeSymbolMismatch       ErrorCode = 107

	// Data/Resource errors (200-299)
	ErrCodeOrderNotFound ErrorCode = 200
	ErrCodeBookNotFound  ErrorCode = 201
	ErrCodeDataNotFound  ErrorCode = 202

	// Trading errors (500-599)
	ErrCodeOrderTerminal      ErrorCode = 500
	ErrCodeOverFill           ErrorCode = 501
	ErrCodePositionNotFound   ErrorCode = 502
	ErrCodeNotLimitOrder      ErrorCode = 503
	ErrCodeNoLiquidity        ErrorCode = 504
	ErrCodeMarketDataMissing  ErrorCode = 505
	ErrCodeEngineNotRunning   ErrorCode = 506

	// Market data errors (700-799)
	ErrCodeQuoteFetchFailed      ErrorCode = 700
	ErrCodeHistoricalDataFailed  ErrorCode = 701
	ErrCodeInvalidInterval       ErrorCode = 702
	ErrCodeInvalidPeriod         ErrorCode = 703
	ErrCodeInvalidProvider       ErrorCode = 704
	ErrCodeGeneratorFailed       ErrorCode = 705

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
