// Package naming defines how simulated objects are named.
//
// A name is hierarchical: elements are separated by dots, and elements of a
// series carry square-bracket indices, e.g. "Core[1].L1". Every element
// starts with a capital letter.
package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name.
func (b NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase
func MakeNamedBase(name string) NamedBase {
	return NamedBase{name: name}
}

// A Token is one element of a name.
type Token struct {
	ElemName string
	Index    []int
}

// Parse splits a name into its elements.
func Parse(name string) ([]Token, error) {
	parts := strings.Split(name, ".")
	tokens := make([]Token, len(parts))

	for i, part := range parts {
		token, err := parseToken(part)
		if err != nil {
			return nil, err
		}

		tokens[i] = token
	}

	return tokens, nil
}

func parseToken(s string) (Token, error) {
	if err := bracketsMustMatch(s); err != nil {
		return Token{}, err
	}

	parts := strings.Split(s, "[")
	token := Token{
		ElemName: parts[0],
		Index:    make([]int, len(parts)-1),
	}

	for i, p := range parts[1:] {
		if !strings.HasSuffix(p, "]") {
			return Token{}, fmt.Errorf("index of %q is not closed", s)
		}

		index, err := strconv.Atoi(strings.TrimSuffix(p, "]"))
		if err != nil {
			return Token{}, fmt.Errorf("index of %q must be an integer", s)
		}

		token.Index[i] = index
	}

	return token, nil
}

func bracketsMustMatch(s string) error {
	open := 0

	for _, c := range s {
		switch c {
		case '[':
			open++
		case ']':
			open--
		}

		if open < 0 || open > 1 {
			return fmt.Errorf("brackets of %q must match", s)
		}
	}

	if open != 0 {
		return fmt.Errorf("brackets of %q must match", s)
	}

	return nil
}

// Validate returns an error if the name does not follow the naming
// convention.
func Validate(name string) error {
	tokens, err := Parse(name)
	if err != nil {
		return err
	}

	for _, t := range tokens {
		if err := tokenMustBeValid(t); err != nil {
			return err
		}
	}

	return nil
}

func tokenMustBeValid(t Token) error {
	if t.ElemName == "" {
		return fmt.Errorf("name element must not be empty")
	}

	if i := strings.IndexAny(t.ElemName, "_\"'- "); i >= 0 {
		return fmt.Errorf("name element %q must not contain %q",
			t.ElemName, t.ElemName[i])
	}

	if t.ElemName[0] < 'A' || t.ElemName[0] > 'Z' {
		return fmt.Errorf("name element %q must start with a capital letter",
			t.ElemName)
	}

	return nil
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
