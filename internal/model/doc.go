// Package model defines the parsed representation of a macroeconomic model:
// the interned symbol tables for variables, shocks and parameters, the
// algebraic expression tree used by identities and calibration statements,
// and evaluation/differentiation over that tree.
//
// A Model is immutable once the parser has produced it. Later pipeline
// stages reference symbols by their interned integer index, never by name.
package model
