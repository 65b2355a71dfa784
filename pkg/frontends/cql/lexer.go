// Package cql реализует разбор текстовых CQL-фильтров в AST.
package cql

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType тип токена
type TokenType int

const (
	// Специальные токены
	TokenEOF TokenType = iota
	TokenIllegal

	// Идентификаторы и литералы
	TokenIdent       // имена полей, функций, ключевые слова доменных предикатов
	TokenQuotedIdent // "имя поля"
	TokenString      // 'строка'
	TokenNumber      // 123, 123.45
	TokenDateTime    // 2020-01-01 или 2020-01-01T00:00:00Z
	TokenGeometry    // WKT-литерал целиком, включая скобки

	// Ключевые слова
	TokenAnd
	TokenOr
	TokenNot
	TokenIn
	TokenBetween
	TokenLike
	TokenILike
	TokenIs
	TokenNull
	TokenExists
	TokenDoesNotExist
	TokenInclude
	TokenExclude
	TokenTrue
	TokenFalse
	TokenBefore
	TokenAfter
	TokenDuring

	// Операторы
	TokenEq     // =
	TokenNotEq  // <>
	TokenLt     // <
	TokenLte    // <=
	TokenGt     // >
	TokenGte    // >=
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,
)

// Token представляет токен
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // позиция в исходной строке
}

// String возвращает строковое представление токена
func (t Token) String() string {
	return fmt.Sprintf("Token{Type:%v, Literal:%q, Pos:%d}", t.Type, t.Literal, t.Pos)
}

// Lexer лексический анализатор
type Lexer struct {
	input   string
	pos     int  // текущая позиция
	readPos int  // следующая позиция для чтения
	ch      byte // текущий символ
}

// NewLexer создает новый лексер
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// NextToken возвращает следующий токен
func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	tok.Pos = l.pos

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
		tok.Literal = ""
	case '=':
		tok.Type = TokenEq
		tok.Literal = "="
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type = TokenLte
			tok.Literal = "<="
		} else if l.peekChar() == '>' {
			l.readChar()
			tok.Type = TokenNotEq
			tok.Literal = "<>"
		} else {
			tok.Type = TokenLt
			tok.Literal = "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type = TokenGte
			tok.Literal = ">="
		} else {
			tok.Type = TokenGt
			tok.Literal = ">"
		}
	case '+':
		tok.Type = TokenPlus
		tok.Literal = "+"
	case '-':
		tok.Type = TokenMinus
		tok.Literal = "-"
	case '*':
		tok.Type = TokenStar
		tok.Literal = "*"
	case '/':
		tok.Type = TokenSlash
		tok.Literal = "/"
	case '(':
		tok.Type = TokenLParen
		tok.Literal = "("
	case ')':
		tok.Type = TokenRParen
		tok.Literal = ")"
	case ',':
		tok.Type = TokenComma
		tok.Literal = ","
	case '\'':
		tok.Type = TokenString
		tok.Literal = l.readString('\'')
		return tok // readString уже продвинулся за закрывающую кавычку
	case '"':
		tok.Type = TokenQuotedIdent
		tok.Literal = l.readString('"')
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			upper := strings.ToUpper(tok.Literal)
			if isWKTKeyword(upper) && l.peekNonSpace() == '(' {
				tok.Type = TokenGeometry
				tok.Literal = tok.Literal + l.readBalancedParens()
				return tok
			}
			// DOES-NOT-EXIST лексируется единым токеном
			if upper == "DOES" && strings.HasPrefix(strings.ToUpper(l.input[l.pos:]), "-NOT-EXIST") {
				for i := 0; i < len("-NOT-EXIST"); i++ {
					l.readChar()
				}
				tok.Type = TokenDoesNotExist
				tok.Literal = "DOES-NOT-EXIST"
				return tok
			}
			tok.Type = lookupKeyword(upper)
			return tok
		} else if isDigit(l.ch) {
			return l.readNumberOrDateTime(tok.Pos)
		}
		tok.Type = TokenIllegal
		tok.Literal = string(l.ch)
	}

	l.readChar()
	return tok
}

// readChar читает следующий символ
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar смотрит следующий символ без продвижения
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// peekNonSpace смотрит первый непробельный символ начиная с текущего
func (l *Lexer) peekNonSpace() byte {
	for i := l.pos; i < len(l.input); i++ {
		c := l.input[i]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return c
		}
	}
	return 0
}

// readIdentifier читает идентификатор или ключевое слово
func (l *Lexer) readIdentifier() string {
	position := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '.' || l.ch == ':' {
		l.readChar()
	}
	return l.input[position:l.pos]
}

// readNumberOrDateTime читает число либо дату/время.
// Дата распознаётся по форме ГГГГ-: четыре цифры и дефис.
func (l *Lexer) readNumberOrDateTime(start int) Token {
	position := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.pos-position == 4 && l.ch == '-' && isDigit(l.peekChar()) {
		for isDigit(l.ch) || l.ch == '-' || l.ch == ':' || l.ch == '+' ||
			l.ch == '.' || l.ch == 'T' || l.ch == 'Z' {
			l.readChar()
		}
		return Token{Type: TokenDateTime, Literal: l.input[position:l.pos], Pos: start}
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return Token{Type: TokenNumber, Literal: l.input[position:l.pos], Pos: start}
}

// readString читает строку в кавычках, удваивание кавычки экранирует её
func (l *Lexer) readString(quote byte) string {
	l.readChar() // пропускаем открывающую кавычку
	var sb strings.Builder

	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				sb.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			break
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}

	if l.ch == quote {
		l.readChar() // пропускаем закрывающую кавычку
	}
	return sb.String()
}

// readBalancedParens читает текст от текущей позиции до закрытия
// внешней скобки включительно
func (l *Lexer) readBalancedParens() string {
	l.skipWhitespace()
	position := l.pos
	depth := 0
	for l.ch != 0 {
		if l.ch == '(' {
			depth++
		} else if l.ch == ')' {
			depth--
			if depth == 0 {
				l.readChar()
				break
			}
		}
		l.readChar()
	}
	return l.input[position:l.pos]
}

// skipWhitespace пропускает пробелы
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isWKTKeyword распознаёт начало геометрического литерала
func isWKTKeyword(upper string) bool {
	switch upper {
	case "POINT", "LINESTRING", "POLYGON", "MULTIPOINT",
		"MULTILINESTRING", "MULTIPOLYGON", "GEOMETRYCOLLECTION":
		return true
	}
	return false
}

// lookupKeyword определяет, является ли идентификатор ключевым словом
func lookupKeyword(upper string) TokenType {
	keywords := map[string]TokenType{
		"AND":     TokenAnd,
		"OR":      TokenOr,
		"NOT":     TokenNot,
		"IN":      TokenIn,
		"BETWEEN": TokenBetween,
		"LIKE":    TokenLike,
		"ILIKE":   TokenILike,
		"IS":      TokenIs,
		"NULL":    TokenNull,
		"EXISTS":  TokenExists,
		"INCLUDE": TokenInclude,
		"EXCLUDE": TokenExclude,
		"TRUE":    TokenTrue,
		"FALSE":   TokenFalse,
		"BEFORE":  TokenBefore,
		"AFTER":   TokenAfter,
		"DURING":  TokenDuring,
	}
	if tok, ok := keywords[upper]; ok {
		return tok
	}
	return TokenIdent
}
