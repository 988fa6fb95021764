package sqlscan

import (
	"fmt"
	"strings"

	ferrors "github.com/firndb/firn/internal/errors"
)

// FindRelations scans a SQL definition and returns the relations it reads
// from, in first-appearance order with duplicates removed. A relation is a
// dotted identifier chain following FROM or JOIN; aliases, subqueries and
// join conditions are skipped, and names introduced by a WITH clause are
// excluded. The scan is lexical and tolerates constructs it does not
// understand, so results are best effort for anything beyond plain
// SELECT queries.
func FindRelations(query string) ([]string, error) {
	tokens := NewLexer(query).Tokenize()
	if n := len(tokens); n > 0 && tokens[n-1].Type == TokenError {
		bad := tokens[n-1]
		return nil, ferrors.NewValidationError(ferrors.CodeParseError,
			fmt.Sprintf("sqlscan: %s at offset %d", bad.Literal, bad.Pos))
	}

	ctes := cteNames(tokens)

	var relations []string
	seen := make(map[string]bool)

	for i := 0; i < len(tokens); i++ {
		if tokens[i].Type != TokenFrom && tokens[i].Type != TokenJoin {
			continue
		}
		clause := tokens[i].Literal
		j := i + 1
		if tokens[j].Type == TokenEOF {
			return nil, ferrors.NewValidationError(ferrors.CodeParseError,
				fmt.Sprintf("sqlscan: missing relation after %s", clause))
		}
		for tokens[j].Type == TokenIdent {
			name, parts, next := readChain(tokens, j)
			j = next
			if (parts > 1 || !ctes[name]) && !seen[name] {
				seen[name] = true
				relations = append(relations, name)
			}
			// Optional alias, either AS x or a bare identifier.
			if tokens[j].Type == TokenAs && tokens[j+1].Type == TokenIdent {
				j += 2
			} else if tokens[j].Type == TokenIdent {
				j++
			}
			if tokens[j].Type != TokenComma {
				break
			}
			j++
		}
		// Leave subqueries and anything else to the outer scan.
		i = j - 1
	}

	return relations, nil
}

// readChain reads a dotted identifier chain starting at i. It returns the
// joined name, the number of parts, and the index of the first token past
// the chain.
func readChain(tokens []Token, i int) (string, int, int) {
	parts := []string{tokens[i].Literal}
	i++
	for tokens[i].Type == TokenDot && tokens[i+1].Type == TokenIdent {
		parts = append(parts, tokens[i+1].Literal)
		i += 2
	}
	return strings.Join(parts, "."), len(parts), i
}

// cteNames collects the names a leading WITH clause introduces. Those
// names shadow catalog relations for the rest of the statement.
func cteNames(tokens []Token) map[string]bool {
	if len(tokens) == 0 || tokens[0].Type != TokenWith {
		return nil
	}
	names := make(map[string]bool)
	i := 1
	// A RECURSIVE qualifier lexes as a bare identifier before the name.
	if tokens[i].Type == TokenIdent && tokens[i+1].Type == TokenIdent {
		i++
	}
	for tokens[i].Type == TokenIdent {
		names[tokens[i].Literal] = true
		i++
		if tokens[i].Type == TokenLParen {
			i = skipParens(tokens, i) // column list
		}
		if tokens[i].Type == TokenAs {
			i++
		}
		if tokens[i].Type == TokenLParen {
			i = skipParens(tokens, i) // body
		}
		if tokens[i].Type != TokenComma {
			break
		}
		i++
	}
	return names
}

// skipParens advances past a balanced parenthesized group starting at i.
func skipParens(tokens []Token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		switch tokens[i].Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return i + 1
			}
		case TokenEOF:
			return i
		}
	}
	return i
}
