// Package store keeps uploaded list reports on disk under content-addressed
// names. A report's id is the hex BLAKE2b-256 digest of its bytes, so
// uploading the same report twice yields the same id and one stored copy.
//
// Each report is stored as <id>.lis in the uploads directory with a small
// <id>.meta.yaml sidecar recording its original name and upload time.
package store
