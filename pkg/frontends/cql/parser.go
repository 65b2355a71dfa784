package cql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/ruslano69/geofilter/pkg/core/ast"
	"github.com/ruslano69/geofilter/pkg/core/temporal"
)

// Приоритеты логических связок: NOT > AND > OR
const (
	precLowest = 0
	precOr     = 1
	precAnd    = 2
	precNot    = 3
)

// Parser парсер CQL-фильтров
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
}

// NewParser создает новый парсер
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// читаем два токена для инициализации curToken и peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse разбирает фильтр целиком
func Parse(input string) (ast.Node, error) {
	p := NewParser(input)
	cond, err := p.parseCondition(precLowest)
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != TokenEOF {
		return nil, p.errorf("unexpected trailing input %q", p.curToken.Literal)
	}
	return cond, nil
}

// nextToken продвигает токены
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("cql: parse error at pos %d: %s", p.curToken.Pos, fmt.Sprintf(format, args...))
}

// expectToken проверяет текущий токен и продвигается
func (p *Parser) expectToken(t TokenType, what string) error {
	if p.curToken.Type != t {
		return p.errorf("expected %s, got %q", what, p.curToken.Literal)
	}
	p.nextToken()
	return nil
}

// parseCondition парсит условие с приоритетами логических связок
func (p *Parser) parseCondition(precedence int) (ast.Node, error) {
	var left ast.Node
	var err error

	switch p.curToken.Type {
	case TokenNot:
		p.nextToken()
		sub, err := p.parseCondition(precNot)
		if err != nil {
			return nil, err
		}
		left = &ast.Not{Sub: sub}
	case TokenLParen:
		p.nextToken()
		left, err = p.parseCondition(precLowest)
		if err != nil {
			return nil, err
		}
		if err := p.expectToken(TokenRParen, ")"); err != nil {
			return nil, err
		}
	case TokenInclude:
		p.nextToken()
		left = &ast.Include{}
	case TokenExclude:
		p.nextToken()
		left = &ast.Include{Not: true}
	default:
		left, err = p.parsePredicate()
		if err != nil {
			return nil, err
		}
	}

	// инфиксные связки AND/OR
	for {
		var opPrecedence int
		var op ast.CombinationOp

		switch p.curToken.Type {
		case TokenAnd:
			opPrecedence = precAnd
			op = ast.CombinationAnd
		case TokenOr:
			opPrecedence = precOr
			op = ast.CombinationOr
		default:
			return left, nil
		}

		if opPrecedence <= precedence {
			return left, nil
		}
		p.nextToken()

		right, err := p.parseCondition(opPrecedence)
		if err != nil {
			return nil, err
		}
		left = &ast.Combination{LHS: left, RHS: right, Op: op}
	}
}

// spatialOps предикаты вида OP(lhs, rhs)
var spatialOps = map[string]ast.SpatialOp{
	"INTERSECTS": ast.SpatialIntersects,
	"DISJOINT":   ast.SpatialDisjoint,
	"CONTAINS":   ast.SpatialContains,
	"WITHIN":     ast.SpatialWithin,
	"TOUCHES":    ast.SpatialTouches,
	"CROSSES":    ast.SpatialCrosses,
	"OVERLAPS":   ast.SpatialOverlaps,
	"EQUALS":     ast.SpatialEquals,
}

// parsePredicate парсит один предикат
func (p *Parser) parsePredicate() (ast.Node, error) {
	if p.curToken.Type == TokenIdent && p.peekToken.Type == TokenLParen {
		upper := strings.ToUpper(p.curToken.Literal)
		if op, ok := spatialOps[upper]; ok {
			return p.parseSpatialComparison(op)
		}
		switch upper {
		case "RELATE":
			return p.parseRelate()
		case "DWITHIN":
			return p.parseDistance(ast.DistanceWithin)
		case "BEYOND":
			return p.parseDistance(ast.DistanceBeyond)
		case "BBOX":
			return p.parseBBox()
		}
	}

	lhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	not := false
	if p.curToken.Type == TokenNot {
		not = true
		p.nextToken()
	}

	switch p.curToken.Type {
	case TokenEq, TokenNotEq, TokenLt, TokenLte, TokenGt, TokenGte:
		if not {
			return nil, p.errorf("NOT is not applicable to %q", p.curToken.Literal)
		}
		op := ast.ComparisonOp(p.curToken.Literal)
		p.nextToken()
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Comparison{LHS: lhs, RHS: rhs, Op: op}, nil

	case TokenBetween:
		p.nextToken()
		low, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectToken(TokenAnd, "AND"); err != nil {
			return nil, err
		}
		high, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Between{LHS: lhs, Low: low, High: high, Not: not}, nil

	case TokenLike, TokenILike:
		nocase := p.curToken.Type == TokenILike
		p.nextToken()
		if p.curToken.Type != TokenString {
			return nil, p.errorf("expected pattern string after LIKE")
		}
		pattern := p.curToken.Literal
		p.nextToken()
		return &ast.Like{
			LHS: lhs, Pattern: pattern, NoCase: nocase,
			Wildcard: "%", SingleChar: ".", EscapeChar: "\\", Not: not,
		}, nil

	case TokenIn:
		p.nextToken()
		return p.parseIn(lhs, not)

	case TokenIs:
		if not {
			return nil, p.errorf("unexpected NOT before IS")
		}
		p.nextToken()
		if p.curToken.Type == TokenNot {
			not = true
			p.nextToken()
		}
		if err := p.expectToken(TokenNull, "NULL"); err != nil {
			return nil, err
		}
		return &ast.IsNull{LHS: lhs, Not: not}, nil

	case TokenExists:
		p.nextToken()
		return &ast.Exists{LHS: lhs}, nil

	case TokenDoesNotExist:
		p.nextToken()
		return &ast.Exists{LHS: lhs, Not: true}, nil

	case TokenBefore, TokenAfter, TokenDuring:
		if not {
			return nil, p.errorf("NOT is not applicable to temporal predicates")
		}
		return p.parseTemporal(lhs)
	}

	return nil, p.errorf("expected predicate operator, got %q", p.curToken.Literal)
}

// parseTemporal парсит темпоральный предикат, включая составные
// операторы BEFORE OR DURING и DURING OR AFTER
func (p *Parser) parseTemporal(lhs any) (ast.Node, error) {
	var op ast.TemporalOp
	switch p.curToken.Type {
	case TokenBefore:
		op = ast.TemporalBefore
		p.nextToken()
		if p.curToken.Type == TokenOr && p.peekToken.Type == TokenDuring {
			p.nextToken()
			p.nextToken()
			op = ast.TemporalBeforeOrDuring
		}
	case TokenAfter:
		op = ast.TemporalAfter
		p.nextToken()
	case TokenDuring:
		op = ast.TemporalDuring
		p.nextToken()
		if p.curToken.Type == TokenOr && p.peekToken.Type == TokenAfter {
			p.nextToken()
			p.nextToken()
			op = ast.TemporalDuringOrAfter
		}
	}

	rhs, err := p.parseTemporalOperand()
	if err != nil {
		return nil, err
	}
	return &ast.Temporal{LHS: lhs, RHS: rhs, Op: op}, nil
}

// parseTemporalOperand парсит момент, длительность или период start / end
func (p *Parser) parseTemporalOperand() (any, error) {
	first, err := p.parseTemporalBound()
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != TokenSlash {
		return first, nil
	}
	p.nextToken()
	second, err := p.parseTemporalBound()
	if err != nil {
		return nil, err
	}
	return &ast.Interval{Start: first, End: second}, nil
}

func (p *Parser) parseTemporalBound() (any, error) {
	switch p.curToken.Type {
	case TokenDateTime:
		v, err := parseDateTime(p.curToken.Literal)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		p.nextToken()
		return v, nil
	case TokenIdent:
		d, err := temporal.ParseDuration(p.curToken.Literal)
		if err != nil {
			return nil, p.errorf("expected instant or duration, got %q", p.curToken.Literal)
		}
		p.nextToken()
		return d, nil
	default:
		return nil, p.errorf("expected temporal operand, got %q", p.curToken.Literal)
	}
}

// parseIn парсит список опций
func (p *Parser) parseIn(lhs any, not bool) (ast.Node, error) {
	if err := p.expectToken(TokenLParen, "("); err != nil {
		return nil, err
	}
	var options []any
	for {
		opt, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		options = append(options, opt)

		if p.curToken.Type == TokenRParen {
			p.nextToken()
			return &ast.In{LHS: lhs, Options: options, Not: not}, nil
		}
		if err := p.expectToken(TokenComma, ", or )"); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseSpatialComparison(op ast.SpatialOp) (ast.Node, error) {
	p.nextToken() // ключевое слово
	if err := p.expectToken(TokenLParen, "("); err != nil {
		return nil, err
	}
	lhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(TokenComma, ","); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return &ast.SpatialComparison{LHS: lhs, RHS: rhs, Op: op}, nil
}

func (p *Parser) parseRelate() (ast.Node, error) {
	p.nextToken()
	if err := p.expectToken(TokenLParen, "("); err != nil {
		return nil, err
	}
	lhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(TokenComma, ","); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(TokenComma, ","); err != nil {
		return nil, err
	}
	if p.curToken.Type != TokenString {
		return nil, p.errorf("expected DE-9IM pattern string")
	}
	pattern := p.curToken.Literal
	p.nextToken()
	if err := p.expectToken(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return &ast.Relate{LHS: lhs, RHS: rhs, Pattern: pattern}, nil
}

func (p *Parser) parseDistance(op ast.DistanceOp) (ast.Node, error) {
	p.nextToken()
	if err := p.expectToken(TokenLParen, "("); err != nil {
		return nil, err
	}
	lhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(TokenComma, ","); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(TokenComma, ","); err != nil {
		return nil, err
	}
	distance, err := p.parseSignedNumber()
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(TokenComma, ","); err != nil {
		return nil, err
	}
	if p.curToken.Type != TokenIdent && p.curToken.Type != TokenString {
		return nil, p.errorf("expected units, got %q", p.curToken.Literal)
	}
	units := p.curToken.Literal
	p.nextToken()
	if err := p.expectToken(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return &ast.SpatialDistance{LHS: lhs, RHS: rhs, Distance: distance, Units: units, Op: op}, nil
}

func (p *Parser) parseBBox() (ast.Node, error) {
	p.nextToken()
	if err := p.expectToken(TokenLParen, "("); err != nil {
		return nil, err
	}
	lhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	corners := make([]float64, 4)
	for i := range corners {
		if err := p.expectToken(TokenComma, ","); err != nil {
			return nil, err
		}
		corners[i], err = p.parseSignedNumber()
		if err != nil {
			return nil, err
		}
	}
	crs := ""
	if p.curToken.Type == TokenComma {
		p.nextToken()
		if p.curToken.Type != TokenString {
			return nil, p.errorf("expected CRS string")
		}
		crs = p.curToken.Literal
		p.nextToken()
	}
	if err := p.expectToken(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return &ast.BBox{
		LHS:  lhs,
		MinX: corners[0], MinY: corners[1], MaxX: corners[2], MaxY: corners[3],
		CRS: crs,
	}, nil
}

// parseExpression парсит арифметическое выражение: + и - ниже * и /
func (p *Parser) parseExpression() (any, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.curToken.Type == TokenPlus || p.curToken.Type == TokenMinus {
		op := ast.ArithmeticAdd
		if p.curToken.Type == TokenMinus {
			op = ast.ArithmeticSub
		}
		p.nextToken()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.Arithmetic{LHS: left, RHS: right, Op: op}
	}
	return left, nil
}

func (p *Parser) parseTerm() (any, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.curToken.Type == TokenStar || p.curToken.Type == TokenSlash {
		op := ast.ArithmeticMul
		if p.curToken.Type == TokenSlash {
			op = ast.ArithmeticDiv
		}
		p.nextToken()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.Arithmetic{LHS: left, RHS: right, Op: op}
	}
	return left, nil
}

func (p *Parser) parseFactor() (any, error) {
	switch p.curToken.Type {
	case TokenNumber, TokenMinus:
		return p.parseNumberFactor()
	case TokenString:
		s := p.curToken.Literal
		p.nextToken()
		return s, nil
	case TokenTrue:
		p.nextToken()
		return true, nil
	case TokenFalse:
		p.nextToken()
		return false, nil
	case TokenDateTime:
		v, err := parseDateTime(p.curToken.Literal)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		p.nextToken()
		return v, nil
	case TokenGeometry:
		g, err := wkt.Unmarshal(p.curToken.Literal)
		if err != nil {
			return nil, p.errorf("invalid geometry literal: %v", err)
		}
		p.nextToken()
		return &ast.Geometry{Geometry: g}, nil
	case TokenQuotedIdent:
		a := &ast.Attribute{Name: p.curToken.Literal}
		p.nextToken()
		return a, nil
	case TokenLParen:
		p.nextToken()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectToken(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case TokenIdent:
		name := p.curToken.Literal
		if strings.ToUpper(name) == "ENVELOPE" && p.peekToken.Type == TokenLParen {
			return p.parseEnvelope()
		}
		if p.peekToken.Type == TokenLParen {
			return p.parseFunction(name)
		}
		// идентификатор вида P... может быть длительностью ISO-8601
		if name[0] == 'P' {
			if d, err := temporal.ParseDuration(name); err == nil {
				p.nextToken()
				return d, nil
			}
		}
		p.nextToken()
		return &ast.Attribute{Name: name}, nil
	}
	return nil, p.errorf("unexpected token %q in expression", p.curToken.Literal)
}

func (p *Parser) parseNumberFactor() (any, error) {
	negative := false
	if p.curToken.Type == TokenMinus {
		negative = true
		p.nextToken()
	}
	if p.curToken.Type != TokenNumber {
		return nil, p.errorf("expected number, got %q", p.curToken.Literal)
	}
	literal := p.curToken.Literal
	p.nextToken()

	if strings.Contains(literal, ".") {
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", literal)
		}
		if negative {
			f = -f
		}
		return f, nil
	}
	i, err := strconv.ParseInt(literal, 10, 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", literal)
	}
	if negative {
		i = -i
	}
	return i, nil
}

func (p *Parser) parseSignedNumber() (float64, error) {
	v, err := p.parseNumberFactor()
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, p.errorf("expected number")
}

func (p *Parser) parseFunction(name string) (any, error) {
	p.nextToken() // имя
	p.nextToken() // (
	var args []any
	if p.curToken.Type == TokenRParen {
		p.nextToken()
		return &ast.Function{Name: name}, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.curToken.Type == TokenRParen {
			p.nextToken()
			return &ast.Function{Name: name, Arguments: args}, nil
		}
		if err := p.expectToken(TokenComma, ", or )"); err != nil {
			return nil, err
		}
	}
}

// parseEnvelope парсит ENVELOPE (x1 x2 y1 y2); запятые между числами
// допускаются
func (p *Parser) parseEnvelope() (any, error) {
	p.nextToken() // ENVELOPE
	p.nextToken() // (
	corners := make([]float64, 4)
	for i := range corners {
		if i > 0 && p.curToken.Type == TokenComma {
			p.nextToken()
		}
		v, err := p.parseSignedNumber()
		if err != nil {
			return nil, err
		}
		corners[i] = v
	}
	if err := p.expectToken(TokenRParen, ")"); err != nil {
		return nil, err
	}
	return &ast.Envelope{X1: corners[0], X2: corners[1], Y1: corners[2], Y2: corners[3]}, nil
}

// parseDateTime различает дату и момент времени
func parseDateTime(literal string) (any, error) {
	if len(literal) == len("2006-01-02") {
		t, err := temporal.ParseInstant(literal)
		if err != nil {
			return nil, err
		}
		return ast.DateOf(t), nil
	}
	return temporal.ParseInstant(literal)
}
