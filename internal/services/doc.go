// Package services implements the application layer between the HTTP
// handlers and the report store and extractor.
//
// ExtractionService owns every report operation: uploads go to the
// content-addressed store, and table, listing and batch requests open the
// stored report as a lis.Source and run the extractor over it. Errors are
// returned as typed application errors so the transport layer can map them to
// problem responses without inspecting messages.
//
// HealthService answers liveness, readiness and version probes.
package services
