package synth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
)

// RetryPolicy は一時的なエラーに対する固定回数・固定間隔のリトライ方針です。
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy は既定のリトライ方針を返します。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do は op を実行し、TransientError の間だけ Delay を空けて再試行します。
// それ以外のエラーは即座に返します。上限に達した場合は最後のエラーを包んで返します。
func (p RetryPolicy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	maxAttempts := p.attempts()
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(maxAttempts-1)),
		ctx,
	)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err == nil || IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "一時的なエラーのため再試行します",
			"op", name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"wait", wait,
			"error", err)
	})
	if err != nil && IsTransient(err) {
		return fmt.Errorf("%s: %d 回試行しましたが失敗しました: %w", name, attempt, err)
	}
	return err
}

// Retrying は Synthesizer の呼び出しに RetryPolicy を適用します。
type Retrying struct {
	next   Synthesizer
	policy RetryPolicy
}

// NewRetrying は Retrying を生成します。
func NewRetrying(next Synthesizer, policy RetryPolicy) *Retrying {
	return &Retrying{next: next, policy: policy}
}

func (r *Retrying) GenerateFromText(ctx context.Context, req TextRequest) (*Artifact, error) {
	var out *Artifact
	err := r.policy.Do(ctx, "text-to-image", func(ctx context.Context) error {
		a, err := r.next.GenerateFromText(ctx, req)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func (r *Retrying) GenerateFromReference(ctx context.Context, req ReferenceRequest) (*Artifact, error) {
	var out *Artifact
	err := r.policy.Do(ctx, "reference-to-image", func(ctx context.Context) error {
		a, err := r.next.GenerateFromReference(ctx, req)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}
