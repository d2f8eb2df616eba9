package generator

import (
	"context"
)

// ArtifactStore は生成物の読み書き先です。パスは出力ルートからの相対パスです。
type ArtifactStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}
