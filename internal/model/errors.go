package model

import "fmt"

// ErrorCode 错误代码
type ErrorCode string

const (
	ErrCodeStructureNotFound ErrorCode = "STRUCTURE_NOT_FOUND" // 页面中找不到目标区域表格
	ErrCodeIncompleteResults ErrorCode = "INCOMPLETE_RESULTS"  // 解析后缺少必需奖级
	ErrCodeMalformedRecord   ErrorCode = "MALFORMED_RECORD"    // 记录缺少省份标识
	ErrCodeConsistencyBreak  ErrorCode = "CONSISTENCY_BREAK"   // 写入后回查不到刚写入的标识
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"           // 回退窗口内没有任何区域有数据
	ErrCodeTransportFailure  ErrorCode = "TRANSPORT_FAILURE"   // 抓取或存储调用失败
)

// DomainError 带错误代码与上下文的领域错误
type DomainError struct {
	Code    ErrorCode
	Message string
	Context map[string]interface{}
	Cause   error
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Context) != 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Cause }

// WithContext 返回附加上下文的新错误，原错误不变
func (e *DomainError) WithContext(keyValues ...interface{}) error {
	if len(keyValues)%2 != 0 {
		panic("WithContext requires even number of arguments (key-value pairs)")
	}

	ctx := make(map[string]interface{}, len(e.Context)+len(keyValues)/2)
	for k, v := range e.Context {
		ctx[k] = v
	}
	for i := 0; i < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			panic(fmt.Sprintf("context key must be string, got %T", keyValues[i]))
		}
		ctx[key] = keyValues[i+1]
	}

	return &DomainError{Code: e.Code, Message: e.Message, Context: ctx, Cause: e.Cause}
}

// Wrapf 同一错误代码下替换消息，供 errors.Is 按代码匹配
func (e *DomainError) Wrapf(format string, args ...interface{}) *DomainError {
	return &DomainError{Code: e.Code, Message: fmt.Sprintf(format, args...), Context: e.Context, Cause: e.Cause}
}

// Because 挂上底层错误
func (e *DomainError) Because(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Context: e.Context, Cause: cause}
}

// Is 按错误代码比较
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrStructureNotFound = &DomainError{Code: ErrCodeStructureNotFound, Message: "results table not found"}
	ErrIncompleteResults = &DomainError{Code: ErrCodeIncompleteResults, Message: "required prize levels missing"}
	ErrMalformedRecord   = &DomainError{Code: ErrCodeMalformedRecord, Message: "record is missing province identity"}
	ErrConsistencyBreak  = &DomainError{Code: ErrCodeConsistencyBreak, Message: "store is missing a just-written identifier"}
	ErrNotFound          = &DomainError{Code: ErrCodeNotFound, Message: "Không tìm thấy dữ liệu xổ số cho yêu cầu."}
	ErrTransportFailure  = &DomainError{Code: ErrCodeTransportFailure, Message: "upstream call failed"}
)
