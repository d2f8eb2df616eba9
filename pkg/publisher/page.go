package publisher

import (
	"context"
	"fmt"
	"html/template"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/generator"
)

// pageView はテンプレートに渡す章ページのデータです。
type pageView struct {
	ChapterID   string
	DefaultLang string
	Languages   []string
	Titles      []langText
	Sections    []sectionView
}

type langText struct {
	Lang    string
	Text    string
	HTML    template.HTML
	Default bool
}

type sectionView struct {
	ID          string
	Titles      []langText
	Bodies      []langText
	HasImage    bool
	ImageSrc    template.URL
	Placeholder bool
	Alt         string
	Status      string
	Character   bool
}

func (p *ChapterPublisher) buildPage(ctx context.Context, chapter *domain.Chapter, manifest *generator.Report, result *PublishResult) (pageView, error) {
	langs := chapter.AllLanguages()
	def := chapter.Lang()

	page := pageView{
		ChapterID:   chapter.ID,
		DefaultLang: def,
		Languages:   langs,
		Titles:      localized(chapter.Title, langs, def, chapter.ID),
	}

	for _, s := range chapter.Sections {
		view := sectionView{
			ID:        s.ID,
			Titles:    localized(s.Title, langs, def, ""),
			Character: s.GeneratesCharacter,
		}

		for _, lt := range localized(s.Text, langs, def, "") {
			html, err := p.renderMarkdown(lt.Text)
			if err != nil {
				return page, fmt.Errorf("section %s (%s) のテキスト変換に失敗しました: %w", s.ID, lt.Lang, err)
			}
			lt.HTML = html
			view.Bodies = append(view.Bodies, lt)
		}

		if s.HasImage() {
			view.HasImage = true
			view.Alt = s.Alt.Get(def, domain.DefaultLanguage)
			if view.Alt == "" {
				view.Alt = s.Title.Get(def, domain.DefaultLanguage)
			}
			imgPath := asset.ImagePath(chapter.ID, s.Image)
			exists, err := p.store.Exists(ctx, imgPath)
			if err != nil {
				return page, fmt.Errorf("画像 '%s' の確認に失敗しました: %w", imgPath, err)
			}
			if exists {
				view.ImageSrc = template.URL(asset.PageRelative(chapter.ID, imgPath))
				result.ImagePaths = append(result.ImagePaths, imgPath)
			} else {
				view.Placeholder = true
				view.ImageSrc = template.URL(asset.PlaceholderDataURI(s.ID, s.Size))
				result.Placeholders = append(result.Placeholders, s.ID)
			}
			view.Status = sectionStatus(manifest, s.ID, exists)
		}
		page.Sections = append(page.Sections, view)
	}
	return page, nil
}

// localized は言語ごとのテキストを languages の順に並べます。
// テキストが無い言語は既定言語のテキストで補います。
func localized(t domain.LocalizedText, langs []string, def, fallback string) []langText {
	var out []langText
	for _, lang := range langs {
		text := t.Get(lang, def)
		if text == "" {
			text = fallback
		}
		if text == "" {
			continue
		}
		out = append(out, langText{Lang: lang, Text: text, Default: lang == def})
	}
	return out
}

func sectionStatus(manifest *generator.Report, sectionID string, exists bool) string {
	if manifest != nil {
		if res, ok := manifest.Result(sectionID); ok && res.Outcome == generator.OutcomeFailed {
			return string(generator.OutcomeFailed)
		}
	}
	if exists {
		return "ready"
	}
	return "pending"
}
