package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/models"
)

// answerToken is one bracketed placeholder of an answer format. Segments
// inside the brackets are separated by "..":
//
//	[var]                          extracted-entity placeholder
//	[var..prop]                    property lookup, type implied by context
//	[var..prop..TABLE]             property lookup with overridden type
//	[var..prop..joiner]            list lookup joined with English grammar
//	[var..prop..TABLE..joiner]     overridden type plus list join
type answerToken struct {
	raw      string
	variable string
	property string
	table    models.EntityType // zero when no override
	joiner   string
	isList   bool
}

// segment is either a literal run of the answer format or a reference to a
// token by index.
type segment struct {
	literal string
	token   int // -1 for literals
}

// AnswerTemplate is a parsed answer format, validated at registration time
// so malformed templates never reach a live request.
type AnswerTemplate struct {
	format   string
	segments []segment
	tokens   []answerToken
}

// Format returns the original answer format string.
func (t *AnswerTemplate) Format() string {
	return t.format
}

// TemplateEngine parses answer formats and resolves them against extracted
// variables via chained entity lookups.
type TemplateEngine struct {
	matcher EntityMatcher
	schemas models.SchemaSet
	timeout time.Duration
	logger  *zap.Logger
}

// NewTemplateEngine creates an engine. Every entity lookup runs under the
// given timeout so unresponsive storage cannot hang an answer.
func NewTemplateEngine(matcher EntityMatcher, schemas models.SchemaSet, timeout time.Duration, logger *zap.Logger) *TemplateEngine {
	return &TemplateEngine{
		matcher: matcher,
		schemas: schemas,
		timeout: timeout,
		logger:  logger.Named("template-engine"),
	}
}

// Parse validates an answer format and splits it into literal segments and
// tokens. All grammar errors are reported here, wrapped in
// apperrors.ErrMalformedTemplate.
func (e *TemplateEngine) Parse(answerFormat string) (*AnswerTemplate, error) {
	tmpl := &AnswerTemplate{format: answerFormat}

	rest := answerFormat
	for {
		open := strings.IndexByte(rest, '[')
		closeIdx := strings.IndexByte(rest, ']')
		if open == -1 && closeIdx == -1 {
			if rest != "" {
				tmpl.segments = append(tmpl.segments, segment{literal: rest, token: -1})
			}
			break
		}
		if open == -1 || (closeIdx != -1 && closeIdx < open) {
			return nil, fmt.Errorf("%w: unmatched ']' in %q", apperrors.ErrMalformedTemplate, answerFormat)
		}
		if closeIdx == -1 {
			return nil, fmt.Errorf("%w: unclosed '[' in %q", apperrors.ErrMalformedTemplate, answerFormat)
		}

		if open > 0 {
			tmpl.segments = append(tmpl.segments, segment{literal: rest[:open], token: -1})
		}

		token, err := e.parseToken(rest[open : closeIdx+1])
		if err != nil {
			return nil, err
		}
		tmpl.segments = append(tmpl.segments, segment{token: len(tmpl.tokens)})
		tmpl.tokens = append(tmpl.tokens, token)

		rest = rest[closeIdx+1:]
	}

	return tmpl, nil
}

func (e *TemplateEngine) parseToken(raw string) (answerToken, error) {
	inner := raw[1 : len(raw)-1]
	if strings.TrimSpace(inner) == "" {
		return answerToken{}, fmt.Errorf("%w: empty token %q", apperrors.ErrMalformedTemplate, raw)
	}

	parts := strings.Split(inner, "..")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return answerToken{}, fmt.Errorf("%w: empty segment in %q", apperrors.ErrMalformedTemplate, raw)
		}
	}

	token := answerToken{raw: raw, variable: parts[0]}
	switch len(parts) {
	case 1:
		// Extracted-entity placeholder.
	case 2:
		token.property = parts[1]
	case 3:
		token.property = parts[1]
		if schema, ok := e.schemas.ByAlias(parts[2]); ok {
			token.table = schema.Type
		} else {
			token.joiner = parts[2]
			token.isList = true
		}
	case 4:
		token.property = parts[1]
		schema, ok := e.schemas.ByAlias(parts[2])
		if !ok {
			return answerToken{}, fmt.Errorf("%w: %q names no known entity type in %q",
				apperrors.ErrMalformedTemplate, parts[2], raw)
		}
		token.table = schema.Type
		token.joiner = parts[3]
		token.isList = true
	default:
		return answerToken{}, fmt.Errorf("%w: too many segments in %q", apperrors.ErrMalformedTemplate, raw)
	}

	return token, nil
}

// Resolve substitutes every token left-to-right and assembles the final
// answer. Substitution is all-or-nothing: if any chained lookup comes back
// empty the whole answer is unanswerable, never a partially-filled string.
func (e *TemplateEngine) Resolve(ctx context.Context, tmpl *AnswerTemplate, vars models.ExtractedVars) (string, bool, error) {
	values := make([]string, len(tmpl.tokens))
	dbData := make(map[string]string)

	for i, token := range tmpl.tokens {
		value, found, err := e.resolveToken(ctx, token, vars)
		if err != nil {
			return "", false, err
		}
		if !found {
			e.logger.Debug("Token resolved to nothing",
				zap.String("token", token.raw),
				zap.String("tag", vars.Tag))
			return "", false, nil
		}
		values[i] = value
		if token.property != "" {
			dbData[dbKey(dbData, token.property)] = value
		}
	}

	var b strings.Builder
	for _, seg := range tmpl.segments {
		if seg.token < 0 {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(values[seg.token])
	}

	return b.String(), true, nil
}

// resolveToken resolves one placeholder. A token aliasing a type other than
// the question's tagged type chains two lookups: first the relation column
// of the tagged type, then the target type keyed by that value.
func (e *TemplateEngine) resolveToken(ctx context.Context, token answerToken, vars models.ExtractedVars) (string, bool, error) {
	if token.property == "" {
		if vars.Identifier() == "" {
			return "", false, nil
		}
		return vars.Identifier(), true, nil
	}

	tagSchema, tagKnown := e.schemas.ByTag(vars.Tag)
	if !tagKnown {
		// No entity was extracted from the question; property lookups have
		// nothing to key on.
		return "", false, nil
	}

	target := tagSchema
	if token.table != "" {
		target = e.schemas[token.table]
	} else if aliased, ok := e.schemas.ByAlias(token.variable); ok {
		target = aliased
	}

	identifier := vars.Identifier()

	if target.Type != tagSchema.Type {
		if relColumn, ok := tagSchema.Relations[target.Type]; ok {
			linked, found, err := e.matchProperty(ctx, relColumn, tagSchema.Type, identifier)
			if err != nil || !found {
				return "", false, err
			}
			identifier = linked
		}
	}

	if token.isList {
		values, err := e.matchAllProperties(ctx, token.property, target.Type, identifier)
		if err != nil {
			return "", false, err
		}
		return JoinList(values, token.joiner), true, nil
	}

	return e.matchProperty(ctx, token.property, target.Type, identifier)
}

func (e *TemplateEngine) matchProperty(ctx context.Context, property string, entityType models.EntityType, identifier string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.matcher.MatchProperty(ctx, property, entityType, identifier)
}

func (e *TemplateEngine) matchAllProperties(ctx context.Context, property string, entityType models.EntityType, identifier string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.matcher.MatchAllProperties(ctx, property, entityType, identifier)
}

// dbKey returns a collision-safe key for the property: repeated property
// names receive a numeric suffix.
func dbKey(existing map[string]string, property string) string {
	key := "db_" + property
	if _, ok := existing[key]; !ok {
		return key
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", key, i)
		if _, ok := existing[candidate]; !ok {
			return candidate
		}
	}
}

// JoinList joins values with English list grammar: two items are joined by
// the joiner alone, three or more get an Oxford-style comma list.
func JoinList(items []string, joiner string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + joiner + " " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", " + joiner + " " + items[len(items)-1]
	}
}
