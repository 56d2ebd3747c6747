// Package artifact replaces the record array inside a generated TypeScript
// data file while leaving every other byte untouched.
package artifact

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/IshaanNene/gameharvest/internal/observability"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// Span locates the array literal of the data declaration: Open is the
// index of '[' and Close the index of the matching ']'.
type Span struct {
	Decl  int
	Open  int
	Close int
}

// Patcher splices serialized records into the `export const <segment>:
// <type>[] = [...]` declaration of an artifact.
type Patcher struct {
	segment  string
	typeName string

	declRe      *regexp.Regexp
	anyDeclRe   *regexp.Regexp
	interfaceRe *regexp.Regexp

	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPatcher creates a Patcher for the named segment and element type.
// metrics may be nil.
func NewPatcher(segment, typeName string, metrics *observability.Metrics, logger *slog.Logger) *Patcher {
	seg := regexp.QuoteMeta(segment)
	typ := regexp.QuoteMeta(typeName)
	return &Patcher{
		segment:     segment,
		typeName:    typeName,
		declRe:      regexp.MustCompile(`export\s+const\s+` + seg + `\s*:\s*` + typ + `\s*\[\s*\]\s*=\s*\[`),
		anyDeclRe:   regexp.MustCompile(`export\s+const\s+` + seg + `\s*[:=]`),
		interfaceRe: regexp.MustCompile(`export\s+interface\s+` + typ + `\b`),
		metrics:     metrics,
		logger:      logger.With("component", "patcher"),
	}
}

// Locate finds the single typed data declaration in text.
func (p *Patcher) Locate(text string) (Span, error) {
	mask, ok := codeMask(text)
	if !ok {
		return Span{}, &types.PatchError{Stage: "locate", Err: fmt.Errorf("%w: artifact ends inside a literal or comment", types.ErrBracketImbalance)}
	}
	return p.locate(text, mask)
}

func (p *Patcher) locate(text string, mask []bool) (Span, error) {
	var found []Span
	for _, m := range p.declRe.FindAllStringIndex(text, -1) {
		if !mask[m[0]] {
			continue
		}
		found = append(found, Span{Decl: m[0], Open: m[1] - 1})
	}

	switch {
	case len(found) == 0:
		return Span{}, &types.PatchError{Stage: "locate", Err: fmt.Errorf("%w: export const %s: %s[]", types.ErrSegmentNotFound, p.segment, p.typeName)}
	case len(found) > 1:
		return Span{}, &types.PatchError{Stage: "locate", Err: fmt.Errorf("%w: found %d", types.ErrDuplicateSegment, len(found))}
	}

	span := found[0]
	span.Close = matchBracket(text, mask, span.Open)
	if span.Close < 0 {
		return Span{}, &types.PatchError{Stage: "locate", Err: types.ErrUnterminatedArray}
	}
	return span, nil
}

// Patch returns text with the data array replaced by records. It never
// touches the filesystem and fails instead of returning text that does not
// validate.
func (p *Patcher) Patch(text string, records []types.TargetGameRecord) (string, error) {
	mask, ok := codeMask(text)
	if !ok {
		return "", &types.PatchError{Stage: "locate", Err: fmt.Errorf("%w: artifact ends inside a literal or comment", types.ErrBracketImbalance)}
	}
	span, err := p.locate(text, mask)
	if err != nil {
		return "", err
	}

	block := Serialize(records)
	out := text[:span.Open] + block + text[span.Close+1:]

	if err := p.Validate(text, out, span, len(block)); err != nil {
		return "", err
	}
	return out, nil
}

// Validate checks a patched artifact against its original: exactly one
// data declaration, exactly one shape declaration, unchanged text around
// the array and an unchanged bracket balance.
func (p *Patcher) Validate(before, after string, span Span, blockLen int) error {
	fail := func(err error) error { return &types.PatchError{Stage: "validate", Err: err} }

	if after[:span.Open] != before[:span.Open] || after[span.Open+blockLen:] != before[span.Close+1:] {
		return fail(fmt.Errorf("text outside the data segment changed"))
	}

	mask, ok := codeMask(after)
	if !ok {
		return fail(fmt.Errorf("%w: patched artifact ends inside a literal", types.ErrBracketImbalance))
	}

	decls := countInCode(p.anyDeclRe, after, mask)
	switch {
	case decls == 0:
		return fail(types.ErrSegmentNotFound)
	case decls > 1:
		return fail(fmt.Errorf("%w: found %d", types.ErrDuplicateSegment, decls))
	}
	if n := countInCode(p.interfaceRe, after, mask); n != 1 {
		return fail(fmt.Errorf("%w: found %d export interface %s", types.ErrShapeDeclaration, n, p.typeName))
	}

	beforeMask, _ := codeMask(before)
	if b, a := bracketBalance(before, beforeMask), bracketBalance(after, mask); a != b {
		return fail(fmt.Errorf("%w: before %+v, after %+v", types.ErrBracketImbalance, b, a))
	}
	return nil
}

func countInCode(re *regexp.Regexp, text string, mask []bool) int {
	n := 0
	for _, m := range re.FindAllStringIndex(text, -1) {
		if mask[m[0]] {
			n++
		}
	}
	return n
}
