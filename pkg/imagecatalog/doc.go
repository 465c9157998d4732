// Package imagecatalog keeps whiteboard images in two independent stores and
// joins them back together on read.
//
// Image bytes live in an object store, one blob per image, grouped into a
// container per user. Descriptive records (owner, category, display name)
// live in a document store. Nothing ties the two writes together, so every
// read reconciles them: the blob store decides whether an image exists and
// the metadata store decides who owns it and how it is classified.
//
// Backends are pluggable. Blob stores (memory, filesystem, S3) live under
// storage/ and metadata stores (memory, Postgres, SQLite, Badger, MongoDB)
// live under repo/. The config subpackage builds a Service from options or
// environment variables, and api exposes the Service over HTTP.
package imagecatalog
