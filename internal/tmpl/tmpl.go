// Copyright 2022 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tmpl implements the `{name}` placeholder substitution used
// throughout recipes and the configuration factory. A template is parsed
// once into a sequence of literal and reference tokens, then resolved
// against a string->string map, repeating until no placeholder remains
// (a fixpoint) or a cycle is detected.
package tmpl

import (
	"fmt"
	"strings"
)

// token is either a literal run of text or a reference to a config key.
type token struct {
	lit string
	ref string // non-empty for a {ref} token
}

// Template is a pre-parsed `{name}`-style string.
type Template struct {
	raw    string
	tokens []token
}

// Parse splits s into Literal|Ref tokens. Unmatched braces are treated as
// literal text (`{` with no closing `}` before another `{` or end of
// string is passed through verbatim), matching the historical behavior of
// Python's str.format only ever being called with well-formed templates.
func Parse(s string) *Template {
	t := &Template{raw: s}
	i := 0
	for i < len(s) {
		open := strings.IndexByte(s[i:], '{')
		if open < 0 {
			t.tokens = append(t.tokens, token{lit: s[i:]})
			break
		}
		open += i
		if open > i {
			t.tokens = append(t.tokens, token{lit: s[i:open]})
		}
		close := strings.IndexByte(s[open:], '}')
		if close < 0 {
			t.tokens = append(t.tokens, token{lit: s[open:]})
			break
		}
		close += open
		if next := strings.IndexByte(s[open+1:close], '{'); next >= 0 {
			next += open + 1
			t.tokens = append(t.tokens, token{lit: s[open:next]})
			i = next
			continue
		}
		t.tokens = append(t.tokens, token{ref: s[open+1 : close]})
		i = close + 1
	}
	return t
}

// Keys returns the set of reference names this template depends on.
func (t *Template) Keys() []string {
	var keys []string
	for _, tok := range t.tokens {
		if tok.ref != "" {
			keys = append(keys, tok.ref)
		}
	}
	return keys
}

// resolveOnce substitutes every {key} token once against cfg. It returns an
// error naming the first key not present in cfg.
func (t *Template) resolveOnce(cfg map[string]string) (string, bool, error) {
	var b strings.Builder
	changed := false
	for _, tok := range t.tokens {
		if tok.ref == "" {
			b.WriteString(tok.lit)
			continue
		}
		v, ok := cfg[tok.ref]
		if !ok {
			return "", false, fmt.Errorf("tmpl: unknown key %q in template %q", tok.ref, t.raw)
		}
		if strings.Contains(v, "{") {
			changed = true
		}
		b.WriteString(v)
	}
	return b.String(), changed, nil
}

// maxDepth bounds the fixpoint loop so a recipe author's typo (a key whose
// value references itself) fails fast instead of looping forever.
const maxDepth = 32

// Render resolves every {key} placeholder in s against cfg, repeating until
// no substituted value itself contains a placeholder (a fixpoint), or
// returns an error identifying the first unresolved key.
func Render(s string, cfg map[string]string) (string, error) {
	cur := s
	for depth := 0; depth < maxDepth; depth++ {
		t := Parse(cur)
		next, changed, err := t.resolveOnce(cfg)
		if err != nil {
			return "", err
		}
		if !changed {
			return next, nil
		}
		cur = next
	}
	return "", fmt.Errorf("tmpl: template %q did not reach a fixpoint after %d passes (possible self-referential key)", s, maxDepth)
}

// RenderAll applies Render to every element of a slice, returning a new
// slice. A nil input yields a nil output.
func RenderAll(in []string, cfg map[string]string) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		v, err := Render(s, cfg)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
