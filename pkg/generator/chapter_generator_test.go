package generator

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/resolver"
	"github.com/shouni/go-storybook-kit/pkg/store"
	"github.com/shouni/go-storybook-kit/pkg/synth"
)

// fakeSynth は呼び出しを記録するテスト用の Synthesizer です。
type fakeSynth struct {
	mu       sync.Mutex
	calls    []string
	refCalls map[string][]string
	failFor  map[string]error
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{refCalls: map[string][]string{}, failFor: map[string]error{}}
}

// promptKey はプロンプトの先頭行をセクションの識別に使います。
func promptKey(prompt string) string {
	first, _, _ := strings.Cut(prompt, "\n")
	return first
}

func (f *fakeSynth) GenerateFromText(_ context.Context, req synth.TextRequest) (*synth.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := promptKey(req.Prompt)
	f.calls = append(f.calls, key)
	if err := f.failFor[key]; err != nil {
		return nil, err
	}
	return &synth.Artifact{Data: []byte("img:" + key), MimeType: "image/png"}, nil
}

func (f *fakeSynth) GenerateFromReference(_ context.Context, req synth.ReferenceRequest) (*synth.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := promptKey(req.Prompt)
	f.calls = append(f.calls, key)
	for _, ref := range req.References {
		f.refCalls[key] = append(f.refCalls[key], ref.SectionID+"="+string(ref.Data))
	}
	if err := f.failFor[key]; err != nil {
		return nil, err
	}
	return &synth.Artifact{Data: []byte("img:" + key), MimeType: "image/png"}, nil
}

func sec(id string, refs ...string) domain.Section {
	s := domain.Section{ID: id, Image: id + ".png", Prompt: id}
	if len(refs) > 0 {
		s.Reference = domain.ReferenceList(refs)
	}
	return s
}

func newTestGenerator(fs *fakeSynth, st *store.MemoryStore) *ChapterGenerator {
	return NewChapterGenerator(fs, st, NewPromptBuilder("watercolor"), nil, NewReferenceCache(st, 0))
}

func TestChapterGenerator_SingleSection(t *testing.T) {
	fs := newFakeSynth()
	st := store.NewMemoryStore()
	g := newTestGenerator(fs, st)

	report, err := g.Run(context.Background(), &domain.Chapter{ID: "c1", Sections: []domain.Section{sec("hero")}}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(fs.calls, []string{"hero"}) {
		t.Errorf("calls = %v", fs.calls)
	}
	if report.Registry["hero"] != "c1/images/hero.png" {
		t.Errorf("registry = %v", report.Registry)
	}
	if report.Count(OutcomeGenerated) != 1 || report.HasFailures() {
		t.Errorf("summary = %s", report.Summary())
	}
	if !slices.Contains(st.Files(), "c1/manifest.json") {
		t.Errorf("マニフェストが保存されていません: %v", st.Files())
	}
}

func TestChapterGenerator_ReferenceOrdering(t *testing.T) {
	fs := newFakeSynth()
	st := store.NewMemoryStore()
	g := newTestGenerator(fs, st)

	ch := &domain.Chapter{ID: "c1", Sections: []domain.Section{sec("a", "b"), sec("b")}}
	report, err := g.Run(context.Background(), ch, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(fs.calls, []string{"b", "a"}) {
		t.Errorf("b が a より先に生成されるべきです: %v", fs.calls)
	}
	if got := fs.refCalls["a"]; !slices.Equal(got, []string{"b=img:b"}) {
		t.Errorf("a には b の生成画像が添付されるべきです: %v", got)
	}
	res, _ := report.Result("a")
	if res.Mode != modeReference || len(res.References) != 1 || res.References[0].Path != "c1/images/b.png" {
		t.Errorf("result = %+v", res)
	}
}

func TestChapterGenerator_Cycle(t *testing.T) {
	fs := newFakeSynth()
	st := store.NewMemoryStore()
	g := newTestGenerator(fs, st)

	ch := &domain.Chapter{ID: "c1", Sections: []domain.Section{sec("a", "b"), sec("b", "a")}}
	report, err := g.Run(context.Background(), ch, Options{})
	if report != nil {
		t.Error("循環時に Report が返されました")
	}
	var cycleErr *resolver.CycleError
	if !errors.As(err, &cycleErr) || !errors.Is(err, resolver.ErrStructural) {
		t.Fatalf("循環エラーを期待しました: %v", err)
	}
	if len(fs.calls) != 0 || len(st.Files()) != 0 {
		t.Errorf("外部呼び出しや書き込みが発生しました: calls=%v files=%v", fs.calls, st.Files())
	}
}

func TestChapterGenerator_DanglingReference(t *testing.T) {
	fs := newFakeSynth()
	st := store.NewMemoryStore()
	g := newTestGenerator(fs, st)

	ch := &domain.Chapter{ID: "c1", Sections: []domain.Section{sec("x", "missing-id"), sec("y")}}
	report, err := g.Run(context.Background(), ch, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(fs.calls, []string{"y"}) {
		t.Errorf("calls = %v", fs.calls)
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].SectionID != "x" {
		t.Fatalf("failures = %v", failures)
	}
	var mre *resolver.MissingReferenceError
	if !errors.As(failures[0], &mre) || !slices.Equal(mre.Missing, []string{"missing-id"}) {
		t.Errorf("failure = %v", failures[0])
	}
	if mre != nil && mre.Reasons["missing-id"] != resolver.ReasonUnknownSection {
		t.Errorf("Reasons = %v", mre.Reasons)
	}
	x, _ := report.Result("x")
	if x.Outcome != OutcomeFailed || x.Pass != 2 {
		t.Errorf("x = %+v", x)
	}
	y, _ := report.Result("y")
	if y.Outcome != OutcomeGenerated {
		t.Errorf("y = %+v", y)
	}
	if report.Err() == nil {
		t.Error("Err は失敗を報告するべきです")
	}
}

func TestChapterGenerator_FailureIsolation(t *testing.T) {
	fs := newFakeSynth()
	fs.failFor["hero"] = errors.New("bad request")
	st := store.NewMemoryStore()
	g := newTestGenerator(fs, st)

	ch := &domain.Chapter{ID: "c1", Sections: []domain.Section{sec("hero"), sec("walk", "hero"), sec("sky")}}
	report, err := g.Run(context.Background(), ch, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(fs.calls, []string{"hero", "sky"}) {
		t.Errorf("calls = %v", fs.calls)
	}
	var ids []string
	for _, f := range report.Failures() {
		ids = append(ids, f.SectionID)
	}
	if !slices.Equal(ids, []string{"hero", "walk"}) {
		t.Errorf("failures = %v", ids)
	}
	if _, ok := report.Registry["hero"]; ok {
		t.Error("失敗したセクションが登録されています")
	}
}

func TestChapterGenerator_SkipsExisting(t *testing.T) {
	fs := newFakeSynth()
	st := store.NewMemoryStore()
	_ = st.Write(context.Background(), "c1/images/hero.png", []byte("old-hero"))
	g := newTestGenerator(fs, st)

	ch := &domain.Chapter{ID: "c1", Sections: []domain.Section{sec("hero"), sec("walk", "hero")}}

	t.Run("既存画像は再生成せず参照に使うこと", func(t *testing.T) {
		report, err := g.Run(context.Background(), ch, Options{})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !slices.Equal(fs.calls, []string{"walk"}) {
			t.Errorf("calls = %v", fs.calls)
		}
		if got := fs.refCalls["walk"]; !slices.Equal(got, []string{"hero=old-hero"}) {
			t.Errorf("refs = %v", got)
		}
		if report.Count(OutcomeSkipped) != 1 || report.Count(OutcomeGenerated) != 1 {
			t.Errorf("summary = %s", report.Summary())
		}
	})

	t.Run("2回目の実行では何も生成しないこと", func(t *testing.T) {
		fs.calls = nil
		report, err := g.Run(context.Background(), ch, Options{})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(fs.calls) != 0 || report.Count(OutcomeSkipped) != 2 {
			t.Errorf("calls=%v summary=%s", fs.calls, report.Summary())
		}
	})

	t.Run("Force では再生成すること", func(t *testing.T) {
		fs.calls = nil
		if _, err := g.Run(context.Background(), ch, Options{Force: true}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !slices.Equal(fs.calls, []string{"hero", "walk"}) {
			t.Errorf("calls = %v", fs.calls)
		}
	})
}

func TestChapterGenerator_DryRun(t *testing.T) {
	st := store.NewMemoryStore()
	g := NewChapterGenerator(synth.Disabled{}, st, nil, nil, nil)

	ch := &domain.Chapter{ID: "c1", Sections: []domain.Section{
		sec("scene", "hero"), sec("hero"), {ID: "intro", Text: domain.LocalizedText{"en": "Hi"}},
	}}
	report, err := g.Run(context.Background(), ch, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.HasFailures() {
		t.Fatalf("failures = %v", report.Failures())
	}
	if !slices.Equal(report.Order, []string{"hero", "scene", "intro"}) {
		t.Errorf("order = %v", report.Order)
	}
	if report.Count(OutcomePlanned) != 2 || report.Count(OutcomeTextOnly) != 1 {
		t.Errorf("summary = %s", report.Summary())
	}
	scene, _ := report.Result("scene")
	if scene.Mode != modeReference {
		t.Errorf("scene.Mode = %s", scene.Mode)
	}
	if len(st.Files()) != 0 {
		t.Errorf("dry-run で書き込みが発生しました: %v", st.Files())
	}
}

func TestChapterGenerator_RetriesTransient(t *testing.T) {
	fs := newFakeSynth()
	fs.failFor["hero"] = synth.Transient("fake", synth.ErrNoImage)
	st := store.NewMemoryStore()
	g := NewChapterGenerator(synth.NewRetrying(fs, synth.RetryPolicy{MaxAttempts: 2}), st, nil, nil, nil)

	report, err := g.Run(context.Background(), &domain.Chapter{ID: "c1", Sections: []domain.Section{sec("hero")}}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fs.calls) != 2 {
		t.Errorf("calls = %v, want 2 attempts", fs.calls)
	}
	if len(report.Failures()) != 1 || !errors.Is(report.Failures()[0], synth.ErrNoImage) {
		t.Errorf("failures = %v", report.Failures())
	}
}

func TestChapterGenerator_SharedImageFile(t *testing.T) {
	fs := newFakeSynth()
	st := store.NewMemoryStore()
	_ = st.Write(context.Background(), "c1/images/fox.png", []byte("img:fox"))
	g := newTestGenerator(fs, st)

	fox := sec("fox")
	fox.Image = "chars/fox.png"
	owl := sec("owl")
	owl.Image = "other/fox.png"
	ch := &domain.Chapter{ID: "c1", Sections: []domain.Section{fox, owl, sec("scene", "owl")}}

	for _, opts := range []Options{{}, {Force: true}} {
		report, err := g.Run(context.Background(), ch, opts)
		if !errors.Is(err, resolver.ErrStructural) {
			t.Fatalf("force=%v: 構造エラーを期待しました: %v", opts.Force, err)
		}
		if report != nil {
			t.Errorf("構造エラーでは Report を返さないはずです: %+v", report)
		}
	}
	if len(fs.calls) != 0 {
		t.Errorf("外部呼び出しが発生しました: %v", fs.calls)
	}
	if got, _ := st.Read(context.Background(), "c1/images/fox.png"); string(got) != "img:fox" {
		t.Errorf("既存の画像が上書きされました: %q", got)
	}
}

func TestChapterGenerator_ReferenceToTextOnlySection(t *testing.T) {
	fs := newFakeSynth()
	st := store.NewMemoryStore()
	g := newTestGenerator(fs, st)

	intro := domain.Section{ID: "intro", Text: domain.LocalizedText{"en": "Once upon a time"}}
	ch := &domain.Chapter{ID: "c1", Sections: []domain.Section{intro, sec("scene", "intro")}}
	report, err := g.Run(context.Background(), ch, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fs.calls) != 0 {
		t.Errorf("calls = %v", fs.calls)
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].SectionID != "scene" {
		t.Fatalf("failures = %v", failures)
	}
	msg := failures[0].Error()
	if want := `section "scene": missing references: intro (section has no image)`; msg != want {
		t.Errorf("message = %q, want %q", msg, want)
	}
	if res, _ := report.Result("scene"); res.Error != "missing references: intro (section has no image)" {
		t.Errorf("manifest error = %q", res.Error)
	}
}
