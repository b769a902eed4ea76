// Package audit checks a migrated site before it is published.
//
// Pages are parsed with goquery and checked for images and file links
// that still point at the hosted site builder, and for local asset
// references whose file is missing. Mirrored JPEG and TIFF images are then
// read in parallel and their EXIF metadata is checked for GPS positions,
// serial numbers, author names and camera details.
package audit
