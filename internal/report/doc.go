// Package report formats the results of the localize, restructure and
// audit passes.
//
// Three writers are provided: SimpleWriter for the terminal, JSONWriter
// (and FullJSONWriter, which adds a version envelope) for tooling, and
// MarkdownWriter for documentation. New picks one by Format.
package report
