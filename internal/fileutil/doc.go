// Package fileutil collects the files a code reference scan should look at.
//
// Collect walks a directory tree, partitions ignore specifications
// (.gitignore, .ignore, .ccignore) from candidate files, and filters the
// candidates with nested-directory precedence:
//
//   - every specification whose directory contains the file is applicable
//   - applicable specifications are consulted deepest first
//   - the first Accept or Ignore decision wins
//   - a file nobody has an opinion about is accepted
//
// A negation in a nested specification therefore overrides an ignore rule of an
// ancestor directory, and a child rule overrides a conflicting parent rule.
//
// Errors on individual entries (permission denied, files vanishing mid-walk,
// unreadable specifications) never abort the walk. They are collected in
// CollectResult.Errors and the affected entries are left out.
//
// The output is sorted, so the same tree always yields the same file list.
package fileutil
