// Package testsupport holds fixtures shared by package tests: a config
// rooted in temp directories, stub shell tools and a throwaway ledger.
package testsupport
