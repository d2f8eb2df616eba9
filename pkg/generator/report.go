package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/resolver"
)

// Outcome はセクションごとの処理結果です。
type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeTextOnly  Outcome = "text-only"
	OutcomePlanned   Outcome = "planned"
	OutcomeFailed    Outcome = "failed"
)

// SectionResult は1セクション分の処理結果と参照の解決状況です。
type SectionResult struct {
	SectionID  string                        `json:"sectionId"`
	Outcome    Outcome                       `json:"outcome"`
	Path       string                        `json:"path,omitempty"`
	Pass       int                           `json:"pass,omitempty"`
	Mode       string                        `json:"mode,omitempty"`
	References []resolver.AvailableReference `json:"references,omitempty"`
	Missing    []string                      `json:"missing,omitempty"`
	Error      string                        `json:"error,omitempty"`
}

// SectionFailure は恒久的に失敗したセクションです。
type SectionFailure struct {
	SectionID string
	Err       error
}

func (f SectionFailure) Error() string {
	return fmt.Sprintf("section %q: %v", f.SectionID, f.Err)
}

func (f SectionFailure) Unwrap() error {
	return f.Err
}

// Report は章1つ分の実行結果です。manifest.json としても保存されます。
type Report struct {
	ChapterID string            `json:"chapterId"`
	DryRun    bool              `json:"dryRun,omitempty"`
	Order     []string          `json:"order"`
	Sections  []SectionResult   `json:"sections"`
	Registry  map[string]string `json:"registry"`

	failures []SectionFailure
}

// Count は指定した結果のセクション数を返します。
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, s := range r.Sections {
		if s.Outcome == o {
			n++
		}
	}
	return n
}

// Result はセクションIDの結果を返します。
func (r *Report) Result(sectionID string) (SectionResult, bool) {
	for _, s := range r.Sections {
		if s.SectionID == sectionID {
			return s, true
		}
	}
	return SectionResult{}, false
}

// Failures は失敗したセクションを実行順に返します。
func (r *Report) Failures() []SectionFailure {
	return r.failures
}

// HasFailures は失敗したセクションがあるかどうかを返します。
func (r *Report) HasFailures() bool {
	return len(r.failures) > 0
}

// Err は失敗があればまとめたエラーを返します。
func (r *Report) Err() error {
	if !r.HasFailures() {
		return nil
	}
	ids := make([]string, len(r.failures))
	for i, f := range r.failures {
		ids[i] = f.SectionID
	}
	return fmt.Errorf("chapter %s: %d section(s) failed: %s", r.ChapterID, len(r.failures), strings.Join(ids, ", "))
}

// Summary は件数の一行サマリーです。
func (r *Report) Summary() string {
	return fmt.Sprintf("generated=%d skipped=%d text-only=%d planned=%d failed=%d",
		r.Count(OutcomeGenerated), r.Count(OutcomeSkipped), r.Count(OutcomeTextOnly),
		r.Count(OutcomePlanned), r.Count(OutcomeFailed))
}

// MarshalManifest はマニフェスト用の JSON を返します。
func (r *Report) MarshalManifest() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ParseManifest は manifest.json を読み込みます。
func ParseManifest(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("マニフェストのパースに失敗しました: %w", err)
	}
	return &r, nil
}
