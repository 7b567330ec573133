// Package model defines the normalized tracker-module representation the
// engine consumes. It is pure data: parsing lives in modfile, validation and
// timing in timeline.
package model
