package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// ErrChapterNotFound は章の YAML が見つからない場合のエラーです。
var ErrChapterNotFound = errors.New("chapter not found")

// chapterFileCandidates は章IDから探す YAML ファイルの候補です。
var chapterFileCandidates = []string{"%s.yaml", "%s.yml", "%s/chapter.yaml", "%s/chapter.yml"}

// FileStore はローカルファイルシステム上のコンテンツストアです。
// 章の YAML は contentDir から読み、生成物は outputDir に対する相対パスで読み書きします。
type FileStore struct {
	contentDir string
	outputDir  string
}

// NewFileStore は FileStore を生成します。
func NewFileStore(contentDir, outputDir string) *FileStore {
	return &FileStore{contentDir: contentDir, outputDir: outputDir}
}

// OutputDir は出力ルートを返します。
func (s *FileStore) OutputDir() string {
	return s.outputDir
}

// Load は章IDに対応する YAML を読み込みます。
func (s *FileStore) Load(ctx context.Context, chapterID string) (*domain.Chapter, error) {
	if chapterID == "" || strings.ContainsAny(chapterID, `/\`) || chapterID == ".." {
		return nil, fmt.Errorf("不正な章IDです: %q", chapterID)
	}
	for _, pattern := range chapterFileCandidates {
		p := filepath.Join(s.contentDir, fmt.Sprintf(pattern, chapterID))
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("章ファイル '%s' の読み込みに失敗しました: %w", p, err)
		}
		slog.DebugContext(ctx, "章ファイルを読み込みました", "chapter", chapterID, "path", p)
		ch, err := domain.ParseChapter(data, chapterID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		return ch, nil
	}
	return nil, fmt.Errorf("%s (content dir: %s): %w", chapterID, s.contentDir, ErrChapterNotFound)
}

// List は contentDir にある章IDを名前順に返します。
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.contentDir)
	if err != nil {
		return nil, fmt.Errorf("コンテンツディレクトリの読み込みに失敗しました: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			for _, f := range []string{"chapter.yaml", "chapter.yml"} {
				if _, err := os.Stat(filepath.Join(s.contentDir, name, f)); err == nil {
					ids = append(ids, name)
					break
				}
			}
			continue
		}
		ext := filepath.Ext(name)
		if ext == ".yaml" || ext == ".yml" {
			ids = append(ids, strings.TrimSuffix(name, ext))
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Exists は出力ルートからの相対パスにファイルがあるかどうかを返します。
func (s *FileStore) Exists(ctx context.Context, rel string) (bool, error) {
	p, err := asset.ResolveOutputPath(s.outputDir, rel)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir() && info.Size() > 0, nil
}

// Read は出力ルートからの相対パスのファイルを読み込みます。
func (s *FileStore) Read(ctx context.Context, rel string) ([]byte, error) {
	p, err := asset.ResolveOutputPath(s.outputDir, rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Write は一時ファイル経由でアトミックに書き込みます。
func (s *FileStore) Write(ctx context.Context, rel string, data []byte) error {
	p, err := asset.ResolveOutputPath(s.outputDir, rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("ディレクトリの作成に失敗しました: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("'%s' の書き込みに失敗しました: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("'%s' の保存に失敗しました: %w", rel, err)
	}
	return nil
}
