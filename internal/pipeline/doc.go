// Package pipeline runs rewrite steps over the pages of a site.
//
// A Pipeline holds an ordered list of Steps and executes them on one
// model.Document. The localize pass uses two steps, the image rewriter
// followed by the file-link rewriter; LocalizePipeline wires them up.
//
// A Runner drives a Pipeline over every page of the site. It reads each
// page, executes the pipeline, writes the page back only when its content
// changed and streams asset records to an optional Recorder. Pages are
// processed strictly in order, one at a time.
package pipeline
