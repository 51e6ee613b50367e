package main

import "github.com/soarpm/soar/internal/errs"

// exitCodeForError classifies err into one of the exit codes spec.md §6's
// per-verb table names, following the teacher's classifyInstallError /
// exitcodes.go pattern: a typed error's Kind decides the code, everything
// else is a general failure.
func exitCodeForError(err error) int {
	kind, ok := errs.KindOf(err)
	if !ok {
		return ExitFailure
	}
	switch kind {
	case errs.Config:
		return ExitUsage
	default:
		return ExitFailure
	}
}
