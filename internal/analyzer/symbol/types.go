// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symbol

import (
	"regexp"
)

// Type is the declared type of a Symbol.
type Type int

// The primitive types of the language.
const (
	Undef  Type = iota
	Number      // NUMERO
	String      // CADEIA
)

var (
	identRe  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	numberRe = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
	stringRe = regexp.MustCompile(`^".*"$`)
)

func (t Type) String() string {
	switch t {
	case Number:
		return "NUMERO"
	case String:
		return "CADEIA"
	default:
		return "undef"
	}
}

// TypeFromKeyword returns the Type named by a declaration keyword.
func TypeFromKeyword(kw string) (Type, bool) {
	switch kw {
	case "NUMERO":
		return Number, true
	case "CADEIA":
		return String, true
	}
	return Undef, false
}

// Zero returns the literal text a bare declaration of type t is initialized to.
func (t Type) Zero() string {
	switch t {
	case Number:
		return "0"
	case String:
		return `""`
	}
	return ""
}

// Accepts reports whether the literal text lit is a valid value of type t.
// Literals are checked by their textual form only, never evaluated.
func (t Type) Accepts(lit string) bool {
	switch t {
	case Number:
		return numberRe.MatchString(lit)
	case String:
		return stringRe.MatchString(lit)
	}
	return false
}

// IsIdentifier reports whether s has the form of a variable reference.
func IsIdentifier(s string) bool {
	return identRe.MatchString(s)
}
