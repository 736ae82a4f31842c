// Package docgen assembles the schema document from generated sections.
package docgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"dbmarkdown/internal/batch"
	"dbmarkdown/internal/errs"
	"dbmarkdown/internal/introspect"
	"dbmarkdown/internal/logger"
	"dbmarkdown/internal/prompt"
)

// DetailHeading separates the overview from the per-batch sections.
const DetailHeading = "## 表格詳細說明"

// Generator produces text for a prompt. *llm.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProgressSink receives a notification before every generation call.
// It is called synchronously on the generating goroutine.
type ProgressSink interface {
	Notify(message string, step, total int)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(message string, step, total int)

func (f ProgressFunc) Notify(message string, step, total int) { f(message, step, total) }

type nopSink struct{}

func (nopSink) Notify(string, int, int) {}

// Assembler turns a table selection into one Markdown document.
type Assembler struct {
	gen     Generator
	planner batch.Planner
}

// NewAssembler uses gen for every section and the default batch limits.
func NewAssembler(gen Generator) *Assembler {
	return &Assembler{gen: gen, planner: batch.DefaultPlanner()}
}

// WithPlanner replaces the batch limits.
func (a *Assembler) WithPlanner(p batch.Planner) *Assembler {
	a.planner = p
	return a
}

// Generate documents the included tables. A selection that fits one batch
// is described by a single call whose answer is returned as is. Larger
// selections get an overview call over all tables followed by one call per
// batch, strictly in order. Any failed call aborts the whole document.
// An empty selection is rejected with a no-selection error.
func (a *Assembler) Generate(ctx context.Context, tables []introspect.Table, progress ProgressSink) (string, error) {
	if progress == nil {
		progress = nopSink{}
	}
	selected := introspect.Selected(tables)
	if len(selected) == 0 {
		return "", errs.New(errs.KindNoSelection, "no tables selected for documentation")
	}

	log := logger.With("run", uuid.NewString()).With("tables", len(selected))

	if a.planner.FitsOneBatch(len(selected)) {
		log.Info("generating documentation in a single request")
		progress.Notify("處理資料庫表格...", 1, 1)
		doc, err := a.gen.Generate(ctx, prompt.Detail(selected, true))
		if err != nil {
			return "", wrapGeneration("generate documentation", err)
		}
		return StripCodeFences(doc), nil
	}

	batches := a.planner.Plan(selected)
	total := len(batches) + 1
	log.Info("generating documentation in %d batches", len(batches))

	progress.Notify("生成資料庫概述...", 1, total)
	overview, err := a.gen.Generate(ctx, prompt.Overview(selected))
	if err != nil {
		return "", wrapGeneration("generate overview", err)
	}

	sections := make([]string, 0, len(batches))
	for _, b := range batches {
		progress.Notify(fmt.Sprintf("處理批次 %d/%d (包含 %d 個表格)...", b.Index+1, len(batches), len(b.Tables)),
			b.Index+2, total)
		log.With("batch", b.Index+1).Debug("batch weight %d", b.Weight)

		section, err := a.gen.Generate(ctx, prompt.Detail(b.Tables, false))
		if err != nil {
			return "", wrapGeneration(fmt.Sprintf("generate batch %d/%d", b.Index+1, len(batches)), err)
		}
		sections = append(sections, section)
	}

	log.Info("documentation generated")
	return StripCodeFences(Join(overview, sections)), nil
}

// Join lays out the multi-batch document: the overview, a blank line, the
// detail heading, a blank line, then the batch sections separated by one
// blank line each. The document ends with a single newline.
func Join(overview string, sections []string) string {
	var sb strings.Builder
	sb.WriteString(trimSection(overview))
	sb.WriteString("\n\n")
	sb.WriteString(DetailHeading)
	sb.WriteString("\n\n")
	for i, s := range sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(trimSection(s))
	}
	sb.WriteString("\n")
	return sb.String()
}

func trimSection(s string) string {
	return strings.Trim(s, "\r\n")
}

// StripCodeFences removes the ```markdown and ``` markers models tend to
// wrap their answers in.
func StripCodeFences(doc string) string {
	doc = strings.ReplaceAll(doc, "```markdown", "")
	return strings.ReplaceAll(doc, "```", "")
}

func wrapGeneration(msg string, err error) error {
	if errs.IsGeneration(err) {
		return err
	}
	return errs.Wrap(errs.KindGeneration, msg, err)
}
