// Package generation submits content to the external generation service and
// stages the resulting artifacts for upload.
package generation
