package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/resolver"
	"github.com/shouni/go-storybook-kit/pkg/synth"
)

const (
	modeText      = "text-to-image"
	modeReference = "reference-to-image"
)

// Options は章の生成時の実行オプションです。
type Options struct {
	// DryRun は外部呼び出しと書き込みを行わず、計画だけを記録します。
	DryRun bool
	// Force は既存の画像があっても再生成します。
	Force bool
}

// ChapterGenerator は参照関係を解決しながら章の画像を1枚ずつ生成します。
type ChapterGenerator struct {
	synth   synth.Synthesizer
	store   ArtifactStore
	prompts *PromptBuilder
	limiter *rate.Limiter
	refs    *ReferenceCache
}

// NewChapterGenerator は ChapterGenerator を生成します。limiter が nil の場合はペーシングしません。
func NewChapterGenerator(s synth.Synthesizer, store ArtifactStore, pb *PromptBuilder, limiter *rate.Limiter, refs *ReferenceCache) *ChapterGenerator {
	if pb == nil {
		pb = NewPromptBuilder("")
	}
	if refs == nil {
		refs = NewReferenceCache(store, 0)
	}
	return &ChapterGenerator{
		synth:   s,
		store:   store,
		prompts: pb,
		limiter: limiter,
		refs:    refs,
	}
}

// run は1回の Run の状態を保持します。
type run struct {
	chapter  *domain.Chapter
	opts     Options
	registry *resolver.Registry
	results  map[string]*SectionResult
	// reasons は解決できないと分かっている参照先IDとその理由です。
	reasons map[string]string
	report  *Report
}

// Run は章の全セクションを2パスで処理します。
// 構造エラー（循環・ID重複）の場合は外部呼び出しの前にエラーを返します。
// セクション単位の失敗は Report に記録され、エラーとしては返しません。
func (g *ChapterGenerator) Run(ctx context.Context, chapter *domain.Chapter, opts Options) (*Report, error) {
	if chapter == nil {
		return nil, errors.New("chapter is nil")
	}

	order, err := resolver.BuildOrder(chapter.Sections)
	if err != nil {
		return nil, fmt.Errorf("chapter %s: %w", chapter.ID, err)
	}
	reasons := make(map[string]string)
	for sectionID, refs := range resolver.DanglingReferences(chapter.Sections) {
		slog.WarnContext(ctx, "Section references unknown sections",
			"chapter", chapter.ID, "section", sectionID, "references", refs)
		for _, ref := range refs {
			reasons[ref] = resolver.ReasonUnknownSection
		}
	}
	for sectionID, refs := range resolver.ImagelessReferences(chapter.Sections) {
		slog.WarnContext(ctx, "Section references sections without an image",
			"chapter", chapter.ID, "section", sectionID, "references", refs)
		for _, ref := range refs {
			reasons[ref] = resolver.ReasonNoImage
		}
	}

	r := &run{
		chapter:  chapter,
		opts:     opts,
		registry: resolver.NewRegistry(),
		results:  make(map[string]*SectionResult, len(order)),
		reasons:  reasons,
		report:   &Report{ChapterID: chapter.ID, DryRun: opts.DryRun},
	}
	for _, s := range order {
		r.report.Order = append(r.report.Order, s.ID)
	}

	slog.InfoContext(ctx, "Starting chapter generation",
		"chapter", chapter.ID, "sections", len(order), "images", chapter.ImageSections(), "dry_run", opts.DryRun)

	// Pass 1
	var deferred []domain.Section
	for _, s := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if g.process(ctx, r, s, 1) {
			deferred = append(deferred, s)
		}
	}

	// Pass 2: 保留したセクションを1回だけ再試行する
	if len(deferred) > 0 {
		slog.InfoContext(ctx, "Retrying deferred sections", "chapter", chapter.ID, "count", len(deferred))
	}
	for _, s := range deferred {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.process(ctx, r, s, 2)
	}

	for _, id := range r.report.Order {
		r.report.Sections = append(r.report.Sections, *r.results[id])
	}
	r.report.Registry = r.registry.Snapshot()

	if !opts.DryRun {
		if err := g.writeManifest(ctx, r.report); err != nil {
			return r.report, err
		}
	}

	slog.InfoContext(ctx, "Chapter generation finished", "chapter", chapter.ID, "summary", r.report.Summary())
	return r.report, nil
}

// process は1セクションを処理し、参照が未解決で保留する場合に true を返します。
func (g *ChapterGenerator) process(ctx context.Context, r *run, s domain.Section, pass int) (deferred bool) {
	logger := slog.With("chapter", r.chapter.ID, "section", s.ID, "pass", pass)
	res := &SectionResult{SectionID: s.ID, Pass: pass}
	r.results[s.ID] = res

	if !s.HasImage() {
		res.Outcome = OutcomeTextOnly
		return false
	}
	path := asset.ImagePath(r.chapter.ID, s.Image)
	res.Path = path

	if pass == 1 && !r.opts.Force {
		exists, err := g.store.Exists(ctx, path)
		if err != nil {
			g.fail(r, res, logger, fmt.Errorf("既存画像の確認に失敗しました: %w", err))
			return false
		}
		if exists {
			if err := r.registry.Register(s.ID, path); err != nil {
				g.fail(r, res, logger, err)
				return false
			}
			res.Outcome = OutcomeSkipped
			logger.Debug("Artifact already exists, skipping", "path", path)
			return false
		}
	}

	resolved := resolver.Resolve(s, r.registry)
	res.References = resolved.Available
	res.Missing = resolved.Missing
	res.Mode = modeText
	if resolved.HasReferences() {
		res.Mode = modeReference
	}

	if !resolved.Ready() {
		if pass == 1 {
			logger.Info("Deferring section until references are available", "missing", resolved.Missing)
			return true
		}
		g.fail(r, res, logger, r.missingError(resolved))
		return false
	}

	if r.opts.DryRun {
		res.Outcome = OutcomePlanned
		if err := r.registry.Register(s.ID, path); err != nil {
			g.fail(r, res, logger, err)
		}
		return false
	}

	if err := g.generate(ctx, r, resolved, path, logger); err != nil {
		g.fail(r, res, logger, err)
		return false
	}
	if err := r.registry.Register(s.ID, path); err != nil {
		g.fail(r, res, logger, err)
		return false
	}
	res.Outcome = OutcomeGenerated
	return false
}

func (g *ChapterGenerator) generate(ctx context.Context, r *run, rs resolver.ResolvedSection, path string, logger *slog.Logger) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	s := rs.Section
	prompt := g.prompts.Build(r.chapter, rs)
	size := s.Size
	if size == "" {
		size = synth.DefaultSize
	}

	logger.Info("Starting section generation", "references", len(rs.Available), "path", path)
	startTime := time.Now()

	var art *synth.Artifact
	var err error
	if rs.HasReferences() {
		refs := make([]synth.ReferenceImage, 0, len(rs.Available))
		for _, ref := range rs.Available {
			img, err := g.refs.Load(ctx, ref.SectionID, ref.Path)
			if err != nil {
				return err
			}
			refs = append(refs, img)
		}
		art, err = g.synth.GenerateFromReference(ctx, synth.ReferenceRequest{Prompt: prompt, Size: size, References: refs})
	} else {
		art, err = g.synth.GenerateFromText(ctx, synth.TextRequest{Prompt: prompt, Size: size})
	}
	if err != nil {
		return fmt.Errorf("画像生成に失敗しました: %w", err)
	}
	if art == nil || len(art.Data) == 0 {
		return fmt.Errorf("画像生成に失敗しました: %w", synth.ErrNoImage)
	}

	if err := g.store.Write(ctx, path, art.Data); err != nil {
		return fmt.Errorf("画像 '%s' の保存に失敗しました: %w", path, err)
	}
	g.refs.Put(path, art)

	logger.Info("Section generation completed", "duration", time.Since(startTime).Round(time.Millisecond), "bytes", len(art.Data))
	return nil
}

// missingError は未解決の参照に理由を添えたエラーを返します。
func (r *run) missingError(resolved resolver.ResolvedSection) error {
	err := resolved.MissingError()
	var mre *resolver.MissingReferenceError
	if !errors.As(err, &mre) {
		return err
	}
	for _, id := range mre.Missing {
		if reason, ok := r.reasons[id]; ok {
			if mre.Reasons == nil {
				mre.Reasons = make(map[string]string)
			}
			mre.Reasons[id] = reason
		}
	}
	return mre
}

func (g *ChapterGenerator) fail(r *run, res *SectionResult, logger *slog.Logger, err error) {
	res.Outcome = OutcomeFailed
	res.Error = err.Error()
	r.report.failures = append(r.report.failures, SectionFailure{SectionID: res.SectionID, Err: err})
	logger.Error("Section generation failed", "error", err)
}

func (g *ChapterGenerator) writeManifest(ctx context.Context, report *Report) error {
	data, err := report.MarshalManifest()
	if err != nil {
		return fmt.Errorf("マニフェストの生成に失敗しました: %w", err)
	}
	p := asset.ManifestPath(report.ChapterID)
	if err := g.store.Write(ctx, p, data); err != nil {
		return fmt.Errorf("マニフェスト '%s' の保存に失敗しました: %w", p, err)
	}
	return nil
}
