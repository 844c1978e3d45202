// Package handler implements HTTP request handlers for the snappy API.
//
// This package provides the HTTP layer over the topology document: CRUD for
// amplifiers, speakers, rooms, zones, streams, and stream targets, artifact
// previews, deployment triggers, and a thin passthrough to the live snapcast
// server.
//
// # API Design
//
// All handlers follow REST conventions:
// - GET for retrieval
// - PUT for upserts keyed by the path identifier
// - DELETE for removal
// - POST for actions (deploy, snapcast commands)
//
// Every document mutation is validated against the full topology before it
// is saved; an edit that would leave the document uncompilable is rejected
// with the validation issues in the response body.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure.
package handler
