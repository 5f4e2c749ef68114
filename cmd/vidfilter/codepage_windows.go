//go:build windows

package main

import "syscall"

var kernel32 = syscall.NewLazyDLL("kernel32.dll")
var procSetConsoleOutputCP = kernel32.NewProc("SetConsoleOutputCP")

// setConsoleCodePage sets the console to UTF-8 (CP 65001) so shader
// paths and log output with non-ASCII characters render correctly,
// matching main.cpp's `system("chcp 65001")` call under Windows.
func setConsoleCodePage() {
	procSetConsoleOutputCP.Call(uintptr(65001))
}
