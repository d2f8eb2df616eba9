package publisher

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/generator"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// ArtifactStore は生成物の読み書き先です。
type ArtifactStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}

// PublishResult はパブリッシュ処理で生成されたファイルの情報を保持します。
type PublishResult struct {
	ChapterID    string
	HTMLPath     string
	ImagePaths   []string // ページに埋め込んだ生成済み画像
	Placeholders []string // 画像が無くプレースホルダーを表示したセクション
}

// ChapterPublisher は章の YAML と生成済み画像から静的 HTML ページを組み立てます。
type ChapterPublisher struct {
	store ArtifactStore
	tmpl  *template.Template
	md    goldmark.Markdown
}

// NewChapterPublisher は埋め込みテンプレートを読み込んで ChapterPublisher を生成します。
func NewChapterPublisher(store ArtifactStore) (*ChapterPublisher, error) {
	tmpl, err := template.New("page.html.tmpl").ParseFS(templateFS, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("テンプレートの読み込みに失敗しました: %w", err)
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
	)
	return &ChapterPublisher{store: store, tmpl: tmpl, md: md}, nil
}

// Publish は章ページを描画して index.html として保存します。
func (p *ChapterPublisher) Publish(ctx context.Context, chapter *domain.Chapter) (PublishResult, error) {
	result := PublishResult{ChapterID: chapter.ID}

	manifest, err := p.loadManifest(ctx, chapter.ID)
	if err != nil {
		slog.WarnContext(ctx, "マニフェストを読み込めませんでした。状態なしで描画します", "chapter", chapter.ID, "error", err)
	}

	page, err := p.buildPage(ctx, chapter, manifest, &result)
	if err != nil {
		return result, err
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, page); err != nil {
		return result, fmt.Errorf("HTMLの描画に失敗しました: %w", err)
	}

	htmlPath := asset.PagePath(chapter.ID)
	if err := p.store.Write(ctx, htmlPath, buf.Bytes()); err != nil {
		return result, fmt.Errorf("HTMLファイルの書き込みに失敗しました: %w", err)
	}
	result.HTMLPath = htmlPath

	slog.InfoContext(ctx, "Chapter page published",
		"chapter", chapter.ID, "path", htmlPath,
		"images", len(result.ImagePaths), "placeholders", len(result.Placeholders))
	return result, nil
}

// loadManifest は manifest.json が無ければ nil を返します。
func (p *ChapterPublisher) loadManifest(ctx context.Context, chapterID string) (*generator.Report, error) {
	path := asset.ManifestPath(chapterID)
	ok, err := p.store.Exists(ctx, path)
	if err != nil || !ok {
		return nil, err
	}
	data, err := p.store.Read(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return generator.ParseManifest(data)
}

func (p *ChapterPublisher) renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// goldmark は既定で生の HTML を出力しない
	return template.HTML(buf.String()), nil
}
