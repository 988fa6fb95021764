package sqlscan

import (
	"reflect"
	"testing"

	ferrors "github.com/firndb/firn/internal/errors"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{
			"SELECT * FROM events",
			[]TokenType{TokenSelect, TokenStar, TokenFrom, TokenIdent, TokenEOF},
		},
		{
			"SELECT id FROM db.t1 WHERE id = 1",
			[]TokenType{TokenSelect, TokenIdent, TokenFrom, TokenIdent, TokenDot, TokenIdent, TokenWhere, TokenIdent, TokenEq, TokenNumber, TokenEOF},
		},
		{
			"SELECT * FROM a LEFT JOIN b ON a.id = b.id",
			[]TokenType{TokenSelect, TokenStar, TokenFrom, TokenIdent, TokenLeft, TokenJoin, TokenIdent, TokenOn, TokenIdent, TokenDot, TokenIdent, TokenEq, TokenIdent, TokenDot, TokenIdent, TokenEOF},
		},
		{
			"SELECT * FROM t WHERE name = 'it''s'",
			[]TokenType{TokenSelect, TokenStar, TokenFrom, TokenIdent, TokenWhere, TokenIdent, TokenEq, TokenString, TokenEOF},
		},
		{
			`SELECT * FROM "Events"`,
			[]TokenType{TokenSelect, TokenStar, TokenFrom, TokenIdent, TokenEOF},
		},
	}

	for _, tt := range tests {
		lexer := NewLexer(tt.input)
		tokens := lexer.Tokenize()

		if len(tokens) != len(tt.expected) {
			t.Errorf("input %q: expected %d tokens, got %d", tt.input, len(tt.expected), len(tokens))
			continue
		}

		for i, tok := range tokens {
			if tok.Type != tt.expected[i] {
				t.Errorf("input %q: token %d: expected %s, got %s", tt.input, i, tt.expected[i], tok.Type)
			}
		}
	}
}

func TestLexerQuotedIdentKeepsCase(t *testing.T) {
	tokens := NewLexer(`SELECT * FROM "From"`).Tokenize()
	last := tokens[len(tokens)-2]
	if last.Type != TokenIdent || last.Literal != "From" {
		t.Errorf("expected IDENT %q, got %s %q", "From", last.Type, last.Literal)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tokens := NewLexer("SELECT 'oops").Tokenize()
	last := tokens[len(tokens)-1]
	if last.Type != TokenError {
		t.Fatalf("expected ERROR token, got %s", last.Type)
	}
}

func TestFindRelations(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"SELECT * FROM db.t1", []string{"db.t1"}},
		{"SELECT * FROM events", []string{"events"}},
		{"SELECT * FROM prod.events.clicks", []string{"prod.events.clicks"}},
		{"SELECT a.x, b.y FROM db.a JOIN db.b ON a.x = b.y", []string{"db.a", "db.b"}},
		{"SELECT * FROM db.a, db.b", []string{"db.a", "db.b"}},
		{"SELECT * FROM db.a AS x, db.b y WHERE x.id = y.id", []string{"db.a", "db.b"}},
		{"SELECT * FROM db.a LEFT OUTER JOIN db.b ON db.a.id = db.b.id", []string{"db.a", "db.b"}},
		{"SELECT * FROM db.t1 JOIN db.t1 ON 1 = 1", []string{"db.t1"}},
		{"SELECT * FROM (SELECT id FROM db.inner_t) s", []string{"db.inner_t"}},
		{"SELECT * FROM db.t1 WHERE note = 'join from nowhere'", []string{"db.t1"}},
		{"SELECT * FROM db.t1 UNION ALL SELECT * FROM db.t2", []string{"db.t1", "db.t2"}},
		{`SELECT * FROM "db"."order"`, []string{"db.order"}},
		{"SELECT 1", nil},
		{
			"WITH recent AS (SELECT * FROM db.t1 WHERE ts > 100) SELECT * FROM recent JOIN db.t2 ON recent.id = db.t2.id",
			[]string{"db.t1", "db.t2"},
		},
		{
			"WITH a AS (SELECT * FROM db.t1), b (id) AS (SELECT id FROM db.t2) SELECT * FROM a, b",
			[]string{"db.t1", "db.t2"},
		},
	}

	for _, tt := range tests {
		got, err := FindRelations(tt.input)
		if err != nil {
			t.Errorf("input %q: unexpected error: %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("input %q: expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestFindRelationsErrors(t *testing.T) {
	tests := []string{
		"SELECT * FROM",               // Missing table name
		"SELECT * FROM t WHERE s = '", // Unterminated string
		"SELECT * FROM t WHERE x ? 1", // Unknown character
	}

	for _, input := range tests {
		_, err := FindRelations(input)
		if err == nil {
			t.Errorf("input %q: expected error, got nil", input)
			continue
		}
		if ferrors.GetCategory(err) != ferrors.ErrCategoryValidation {
			t.Errorf("input %q: expected validation category, got %s", input, ferrors.GetCategory(err))
		}
		if ferrors.GetCode(err) != ferrors.CodeParseError {
			t.Errorf("input %q: expected code %s, got %s", input, ferrors.CodeParseError, ferrors.GetCode(err))
		}
	}
}
