// Package like транслирует шаблоны подстановки LIKE с настраиваемыми
// токенами в регулярные выражения, glob-шаблоны и шаблоны LIKE других
// диалектов. "Неэкранированный" всюду означает "не стоящий сразу после
// токена экранирования" — сканирование ведётся с явным состоянием
// экранирования, без заглядывания назад.
package like

import (
	"regexp"
	"strings"
)

// Pattern шаблон подстановки с его токенами
type Pattern struct {
	Source     string
	Wildcard   string
	SingleChar string
	Escape     string
	NoCase     bool
}

// Regexp компилирует шаблон в заякоренное регулярное выражение,
// сопоставляющееся со строкой целиком. Метасимволы регулярных выражений
// экранируются; экранированные в источнике токены восстанавливаются
// литералами. Нечувствительность к регистру задаётся флагом (?i),
// а не правкой текста выражения.
func (p Pattern) Regexp() (*regexp.Regexp, error) {
	var sb strings.Builder
	if p.NoCase {
		sb.WriteString("(?i)")
	}
	sb.WriteString("^")

	escaped := false
	for _, r := range p.Source {
		ch := string(r)
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(ch))
			escaped = false
		case ch == p.Escape && p.Escape != "":
			escaped = true
		case ch == p.Wildcard:
			sb.WriteString(".*")
		case ch == p.SingleChar:
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(ch))
		}
	}
	// висячий токен экранирования трактуется литералом
	if escaped {
		sb.WriteString(regexp.QuoteMeta(p.Escape))
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

// Glob переводит шаблон на нативные glob-токены: неэкранированный
// wildcard → wildcard-цели, single-char → single-цели, всё остальное
// проходит литерально без экранирования метасимволов.
func (p Pattern) Glob(wildcard, single string) string {
	var sb strings.Builder
	escaped := false
	for _, r := range p.Source {
		ch := string(r)
		switch {
		case escaped:
			sb.WriteString(ch)
			escaped = false
		case ch == p.Escape && p.Escape != "":
			escaped = true
		case ch == p.Wildcard:
			sb.WriteString(wildcard)
		case ch == p.SingleChar:
			sb.WriteString(single)
		default:
			sb.WriteString(ch)
		}
	}
	if escaped {
		sb.WriteString(p.Escape)
	}
	return sb.String()
}

// Rewrite переводит шаблон на токены другого LIKE-диалекта, сохраняя
// клаузу экранирования: литеральные вхождения целевых токенов
// экранируются целевым escape, экранированные в источнике — остаются
// экранированными.
func (p Pattern) Rewrite(wildcard, single, escape string) string {
	isTargetToken := func(ch string) bool {
		return ch == wildcard || ch == single || ch == escape
	}

	var sb strings.Builder
	escaped := false
	for _, r := range p.Source {
		ch := string(r)
		switch {
		case escaped:
			if isTargetToken(ch) {
				sb.WriteString(escape)
			}
			sb.WriteString(ch)
			escaped = false
		case ch == p.Escape && p.Escape != "":
			escaped = true
		case ch == p.Wildcard:
			sb.WriteString(wildcard)
		case ch == p.SingleChar:
			sb.WriteString(single)
		case isTargetToken(ch):
			sb.WriteString(escape)
			sb.WriteString(ch)
		default:
			sb.WriteString(ch)
		}
	}
	if escaped {
		if isTargetToken(p.Escape) {
			sb.WriteString(escape)
		}
		sb.WriteString(p.Escape)
	}
	return sb.String()
}
