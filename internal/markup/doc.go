// Package markup rewrites references inside HTML documents without
// re-serializing them.
//
// Tags are located by a TagMatcher and edited as raw strings, so every
// byte outside an edited tag survives a pass unchanged. Two matchers are
// provided: RegexMatcher, which mirrors how the exported pages were
// originally post-processed, and TokenizerMatcher, which uses the
// golang.org/x/net/html tokenizer and is not fooled by markup inside
// comments or quoted attribute values.
//
// ImageRewriter and FileLinkRewriter are the two localize steps. Both
// satisfy pipeline.Step.
package markup
