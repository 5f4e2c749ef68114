//go:build !windows

package main

// setConsoleCodePage is a no-op outside Windows, where consoles are
// UTF-8 by default.
func setConsoleCodePage() {}
