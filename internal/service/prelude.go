package service

import _ "embed"

// preludeSource is prepended to every assembled run. The executor
// environment provides matplotlib and pandas; the prelude degrades
// gracefully when they are absent.
//
//go:embed prelude.py
var preludeSource string
