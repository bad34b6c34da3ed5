package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(src string) []Token {
	lx := New(src)
	var toks []Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func TestScanStatement(t *testing.T) {
	toks := scanAll("K[] = (1 - delta) * K[-1] + I[];")
	want := []Type{
		IDENT, LBRACKET, RBRACKET, ASSIGN,
		LPAREN, NUMBER, MINUS, IDENT, RPAREN,
		STAR, IDENT, LBRACKET, MINUS, NUMBER, RBRACKET,
		PLUS, IDENT, LBRACKET, RBRACKET, SEMICOLON,
		EOF,
	}
	require.Len(t, toks, len(want))
	for i, tok := range toks {
		assert.Equal(t, want[i], tok.Type, "token %d (%q)", i, tok.Literal)
	}
}

func TestScanNumbers(t *testing.T) {
	cases := map[string]string{
		"integer":  "42",
		"decimal":  "0.99",
		"exponent": "1e-10",
		"mixed":    "2.5E+3",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			toks := scanAll(src)
			require.Len(t, toks, 2)
			assert.Equal(t, NUMBER, toks[0].Type)
			assert.Equal(t, src, toks[0].Literal)
		})
	}
}

func TestScanComments(t *testing.T) {
	toks := scanAll("# leading comment\nY[] # trailing\n= C[]\n# only a comment\n")
	var types []Type
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []Type{IDENT, LBRACKET, RBRACKET, ASSIGN, IDENT, LBRACKET, RBRACKET, EOF}, types)
}

func TestScanPositions(t *testing.T) {
	toks := scanAll("a = 1;\n  b = 2;")
	// a(1,1) =(1,3) 1(1,5) ;(1,6) b(2,3)
	require.GreaterOrEqual(t, len(toks), 5)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 1, toks[0].Column)
	assert.Equal(t, 1, toks[2].Line)
	assert.Equal(t, 5, toks[2].Column)
	assert.Equal(t, 2, toks[4].Line)
	assert.Equal(t, 3, toks[4].Column)
}

func TestScanIllegal(t *testing.T) {
	toks := scanAll("x @ y")
	require.Len(t, toks, 4)
	assert.Equal(t, ILLEGAL, toks[1].Type)
	assert.Equal(t, "@", toks[1].Literal)
}

func TestScanExpectation(t *testing.T) {
	toks := scanAll("E[][ C[1] ]")
	var types []Type
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []Type{
		IDENT, LBRACKET, RBRACKET, LBRACKET,
		IDENT, LBRACKET, NUMBER, RBRACKET, RBRACKET, EOF,
	}, types)
}
