package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shouni/go-storybook-kit/internal/pipeline"
	"github.com/shouni/go-storybook-kit/pkg/generator"
	"github.com/shouni/go-storybook-kit/pkg/publisher"
	"github.com/shouni/go-storybook-kit/pkg/runner"
)

var (
	headStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3FB950"))
	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// printGenerateSummary は章ごとの件数と失敗したセクションを表示するのだ。
func printGenerateSummary(w io.Writer, outcomes []pipeline.ChapterOutcome) {
	for _, o := range outcomes {
		var lines []string
		title := headStyle.Render("chapter " + o.ChapterID)

		switch {
		case o.Report == nil && o.Err != nil:
			lines = append(lines, title, failStyle.Render("✗ "+o.Err.Error()))
		case o.Report != nil:
			r := o.Report
			status := okStyle.Render("✓ ok")
			if r.HasFailures() {
				status = failStyle.Render(fmt.Sprintf("✗ %d failed", len(r.Failures())))
			}
			if r.DryRun {
				title += mutedStyle.Render(" (dry-run)")
			}
			lines = append(lines, title+"  "+status,
				fmt.Sprintf("generated %d · skipped %d · planned %d · text-only %d · failed %d",
					r.Count(generator.OutcomeGenerated), r.Count(generator.OutcomeSkipped),
					r.Count(generator.OutcomePlanned), r.Count(generator.OutcomeTextOnly),
					r.Count(generator.OutcomeFailed)),
				mutedStyle.Render("order: "+strings.Join(r.Order, " → ")))
			for _, f := range r.Failures() {
				lines = append(lines, failStyle.Render("  • "+f.SectionID)+" "+mutedStyle.Render(f.Err.Error()))
			}
		default:
			continue
		}
		fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
}

// printPublishSummary は描画したページを表示するのだ。
func printPublishSummary(w io.Writer, results []publisher.PublishResult) {
	for _, r := range results {
		if r.HTMLPath == "" {
			continue
		}
		line := okStyle.Render("✓ ") + r.HTMLPath + mutedStyle.Render(fmt.Sprintf("  images %d · placeholders %d", len(r.ImagePaths), len(r.Placeholders)))
		fmt.Fprintln(w, line)
	}
}

// printPlan は生成順を1行ずつ表示するのだ。
func printPlan(w io.Writer, plan *runner.Plan) {
	lines := []string{headStyle.Render("plan " + plan.ChapterID)}
	for i, st := range plan.Steps {
		line := fmt.Sprintf("%2d. %s", i+1, st.SectionID)
		if st.Image == "" {
			line += mutedStyle.Render(" (text only)")
		}
		if st.Character {
			line += okStyle.Render(" [character]")
		}
		if len(st.References) > 0 {
			line += mutedStyle.Render(fmt.Sprintf(" ← %s (%s)", strings.Join(st.References, ", "), st.Arity))
		}
		if len(st.Dangling) > 0 {
			line += failStyle.Render(" missing: " + strings.Join(st.Dangling, ", "))
		}
		if len(st.Imageless) > 0 {
			line += failStyle.Render(" no image: " + strings.Join(st.Imageless, ", "))
		}
		lines = append(lines, line)
	}
	fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}
