package wipe

import (
	"fmt"
	"strings"

	"mediawiper/internal/apperr"
)

// Method определяет метод затирания файла перед удалением
type Method string

const (
	MethodNone         Method = "none"
	MethodRandom       Method = "random"
	MethodDOD          Method = "dod"
	MethodRandom35Pass Method = "random_35pass"
)

// Methods все поддерживаемые методы
func Methods() []Method {
	return []Method{MethodNone, MethodRandom, MethodDOD, MethodRandom35Pass}
}

// PatternKind тип заполнения одного прохода
type PatternKind string

const (
	PatternZero       PatternKind = "zero"
	PatternOne        PatternKind = "one"
	PatternRandom     PatternKind = "random"
	PatternComplement PatternKind = "complement_of_previous"
)

// Pass описание одного прохода; Value значим для zero/one,
// для complement значение вычисляется от предыдущего фиксированного байта
type Pass struct {
	Kind  PatternKind
	Value byte
}

// Число проходов random_35pass
const gutmannPasses = 35

// Passes возвращает фиксированную последовательность проходов метода
func (m Method) Passes() []Pass {
	switch m {
	case MethodNone:
		return nil
	case MethodRandom:
		return []Pass{{Kind: PatternRandom}}
	case MethodDOD:
		// DoD 5220.22-M: фиксированный байт, его дополнение, случайные данные
		return []Pass{
			{Kind: PatternZero, Value: 0x00},
			{Kind: PatternComplement},
			{Kind: PatternRandom},
		}
	case MethodRandom35Pass:
		passes := make([]Pass, gutmannPasses)
		for i := range passes {
			passes[i] = Pass{Kind: PatternRandom}
		}
		return passes
	default:
		panic(fmt.Sprintf("wipe: метод без таблицы проходов: %q", string(m)))
	}
}

// PassCount возвращает количество проходов метода
func (m Method) PassCount() int {
	return len(m.Passes())
}

// Valid проверяет, что метод из закрытого набора
func (m Method) Valid() bool {
	switch m {
	case MethodNone, MethodRandom, MethodDOD, MethodRandom35Pass:
		return true
	}
	return false
}

func (m Method) String() string {
	return string(m)
}

// ParseMethod проверяет имя метода; пустая строка означает none
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(name)))
	if m == "" {
		return MethodNone, nil
	}
	if !m.Valid() {
		return "", apperr.Configf("неподдерживаемый метод затирания: %s", name)
	}
	return m, nil
}

// resolvePasses заменяет complement на конкретный байт.
// Дополнение без предшествующего фиксированного прохода считается дополнением 0x00.
func resolvePasses(passes []Pass) []Pass {
	out := make([]Pass, len(passes))
	var prev byte
	for i, p := range passes {
		switch p.Kind {
		case PatternZero:
			p.Value = 0x00
			prev = p.Value
		case PatternOne:
			p.Value = 0xFF
			prev = p.Value
		case PatternComplement:
			p.Value = ^prev
			prev = p.Value
		}
		out[i] = p
	}
	return out
}
