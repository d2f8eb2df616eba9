package synth

import (
	"context"
	"errors"
)

// Router は参照画像の有無に応じてバックエンドを振り分けます。
type Router struct {
	text      TextToImage
	reference ReferenceToImage
}

// NewRouter は Router を生成します。
func NewRouter(text TextToImage, reference ReferenceToImage) (*Router, error) {
	if text == nil || reference == nil {
		return nil, errors.New("synth: both text and reference backends are required")
	}
	return &Router{text: text, reference: reference}, nil
}

func (r *Router) GenerateFromText(ctx context.Context, req TextRequest) (*Artifact, error) {
	return r.text.GenerateFromText(ctx, req)
}

func (r *Router) GenerateFromReference(ctx context.Context, req ReferenceRequest) (*Artifact, error) {
	return r.reference.GenerateFromReference(ctx, req)
}

// Disabled は常に ErrDisabled を返す Synthesizer です。dry-run で使います。
type Disabled struct{}

func (Disabled) GenerateFromText(context.Context, TextRequest) (*Artifact, error) {
	return nil, ErrDisabled
}

func (Disabled) GenerateFromReference(context.Context, ReferenceRequest) (*Artifact, error) {
	return nil, ErrDisabled
}
