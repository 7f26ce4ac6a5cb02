//go:build mage

// Package main provides build targets for layoutdb using Mage.
//
// Usage:
//
//	mage build      Compile layoutdb to bin/
//	mage buildPure  Compile layoutdb without cgo (modernc sqlite only)
//	mage test       Run all tests
//	mage lint       Run golangci-lint
//	mage clean      Remove build artifacts
//	mage install    Install layoutdb to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "layoutdb"
	binaryDir  = "bin"
	cmdDir     = "./cmd/layoutdb"
)

// Build compiles the layoutdb binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// BuildPure compiles with CGO_ENABLED=0. The binary must be run with
// --driver sqlite.
func BuildPure() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	env := map[string]string{"CGO_ENABLED": "0"}
	return sh.RunWithV(env, binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName+"-pure"), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// Update regenerates golden files.
func Update() error {
	return sh.RunV(binGo, "test", "./...", "-update")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}
