package synth

import (
	"context"
)

// DefaultSize は size が指定されていないセクションの画像サイズです。
const DefaultSize = "1024x1024"

// Artifact は生成された画像データです。
type Artifact struct {
	Data     []byte
	MimeType string
}

// ReferenceImage は画像生成時に添付する参照画像です。
type ReferenceImage struct {
	SectionID string
	Data      []byte
	MimeType  string
}

// TextRequest はテキストのみから画像を生成するリクエストです。
type TextRequest struct {
	Prompt string
	Size   string
}

// ReferenceRequest は参照画像を添えて画像を生成するリクエストです。
type ReferenceRequest struct {
	Prompt     string
	Size       string
	References []ReferenceImage
}

// TextToImage はテキストから画像を生成するバックエンドです。
type TextToImage interface {
	GenerateFromText(ctx context.Context, req TextRequest) (*Artifact, error)
}

// ReferenceToImage は参照画像を条件に画像を生成するバックエンドです。
type ReferenceToImage interface {
	GenerateFromReference(ctx context.Context, req ReferenceRequest) (*Artifact, error)
}

// Synthesizer は両方の生成方式を提供します。
type Synthesizer interface {
	TextToImage
	ReferenceToImage
}
