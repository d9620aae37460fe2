package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Event module errors
// 12000-12999: Question module errors
// 13000-13999: Submission & Grading module errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10005
	Timeout             ErrorCode = 10006

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	TransactionFailed ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	CacheMiss  ErrorCode = 10201

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Event Module Errors (11000-11999) ==========

	EventNotFound       ErrorCode = 11000
	ParticipantNotFound ErrorCode = 11001

	// ========== Question Module Errors (12000-12999) ==========

	QuestionNotFound ErrorCode = 12000
	TestCaseInvalid  ErrorCode = 12001

	// ========== Submission & Grading Module Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionNotFound        ErrorCode = 13000
	SubmissionCreateFailed    ErrorCode = 13001
	CodeTooLarge              ErrorCode = 13002
	LanguageNotSupported      ErrorCode = 13003
	SubmissionAlreadyResolved ErrorCode = 13004

	// Grading (13100-13199)
	EvalQueueFull     ErrorCode = 13100
	EvalSystemError   ErrorCode = 13101
	CompilationError  ErrorCode = 13102
	RuntimeError      ErrorCode = 13103
	TimeLimitExceeded ErrorCode = 13104
	WrongAnswer       ErrorCode = 13105
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",
	CacheMiss:  "Cache miss",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Event
	EventNotFound:       "Event not found",
	ParticipantNotFound: "Participant not found in event",

	// Question
	QuestionNotFound: "Question not found",
	TestCaseInvalid:  "Invalid test case format",

	// Submission
	SubmissionNotFound:        "Submission not found",
	SubmissionCreateFailed:    "Failed to create submission",
	CodeTooLarge:              "Code is too large",
	LanguageNotSupported:      "Programming language not supported",
	SubmissionAlreadyResolved: "Submission already resolved",

	// Grading
	EvalQueueFull:     "Evaluation queue is full, please try again later",
	EvalSystemError:   "Evaluation system error",
	CompilationError:  "Compilation error",
	RuntimeError:      "Runtime error",
	TimeLimitExceeded: "Time limit exceeded",
	WrongAnswer:       "Wrong answer",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == EventNotFound,
		c == QuestionNotFound, c == SubmissionNotFound:
		return 404
	case c == TooManyRequests, c == EvalQueueFull:
		return 429
	case c == SubmissionAlreadyResolved:
		return 409
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge:
		return 400
	default:
		return 500
	}
}
