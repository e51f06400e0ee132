package puzzle

import (
	"fmt"
	"strings"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/movetree"
)

const (
	errEmptyText  = "PGN text is empty"
	errNoPuzzles  = "no valid puzzles found"
	missingHeader = "Missing required header: "
)

var requiredHeaders = []string{"Event", "Site", "Date"}

type ValidateOptions struct {
	// RequireHeaders turns missing Event, Site or Date tags into errors.
	// Otherwise they are reported as warnings.
	RequireHeaders bool
	MainLineOnly   bool
	Rules          movetree.Rules
}

type Validation struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate parses text the same way Import does and reports whether it
// would import cleanly.
func Validate(text string, opts ValidateOptions) (v Validation) {
	if strings.TrimSpace(text) == "" {
		return Validation{Errors: []string{errEmptyText}, Warnings: []string{}}
	}

	defer func() {
		if r := recover(); r != nil {
			v = Validation{Errors: []string{fmt.Sprintf("internal error: %v", r)}, Warnings: []string{}}
		}
	}()

	games, errs := importGames(text, ImportOptions{MainLineOnly: opts.MainLineOnly, Rules: opts.Rules})
	v = Validation{Errors: errs, Warnings: []string{}}

	found := 0
	for _, g := range games {
		if g.puzzle != nil {
			found++
		}
		for _, tag := range requiredHeaders {
			if g.headers.Has(tag) {
				continue
			}
			msg := fmt.Sprintf("Game %d: %s%s", g.index, missingHeader, tag)
			if opts.RequireHeaders {
				v.Errors = append(v.Errors, msg)
			} else {
				v.Warnings = append(v.Warnings, msg)
			}
		}
	}
	if found == 0 {
		v.Errors = append(v.Errors, errNoPuzzles)
	}

	v.IsValid = len(v.Errors) == 0
	return v
}
