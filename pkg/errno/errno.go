package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage returns a copy of the Errno carrying a more specific message
// (same code, so callers can still match on the category)
func (e Errno) WithMessage(msg string) Errno {
	e.Message = msg
	return e
}

// Is 支持 errors.Is 按错误码匹配 (忽略 WithMessage 改写过的文案)
func (e Errno) Is(target error) bool {
	var t Errno
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrWebhookSecret    = Errno{Code: 10003, Message: "Invalid webhook signature"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	// ErrPersistence: 快照落盘失败。内存状态已回退到上一份磁盘快照，
	// 调用方应把本次操作视为整体失败后重试。
	ErrPersistence = Errno{Code: 10005, Message: "Failed to persist store snapshot"}
)

// Business Errors (20000+)
var (
	ErrUserNotFound        = Errno{Code: 20101, Message: "User not found"}
	ErrAgentNotFound       = Errno{Code: 20102, Message: "Agent not found"}
	ErrInsufficientCredits = Errno{Code: 20201, Message: "Insufficient credits"}
	ErrOrderNotFound       = Errno{Code: 20301, Message: "Top-up order not found"}
	ErrVerificationFailed  = Errno{Code: 20302, Message: "Onchain top-up verification failed"}
	ErrUnsupportedChain    = Errno{Code: 20303, Message: "Unsupported chain for onchain top-up"}
	ErrRunNotFound         = Errno{Code: 20401, Message: "Run not found"}
)
