package synth

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImage はレスポンスに画像が含まれていなかったことを示します。
	ErrNoImage = errors.New("response contained no image")
	// ErrUnsupported はバックエンドが対応していない生成方式です。
	ErrUnsupported = errors.New("generation mode not supported by backend")
	// ErrDisabled は画像生成が無効化されている場合に返されます。
	ErrDisabled = errors.New("image synthesis is disabled")
)

// TransientError はリトライで回復し得るエラーです。
type TransientError struct {
	Backend string
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient error: %v", e.Backend, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient は err を TransientError で包みます。
func Transient(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Backend: backend, Err: err}
}

// IsTransient は err の連鎖に TransientError が含まれるかどうかを返します。
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// transientStatus はリトライ対象の HTTP ステータスかどうかを返します。
func transientStatus(code int) bool {
	return code == 429 || code >= 500
}
