// Package services holds cross-cutting helpers shared by pipeline stages and
// transport handlers: the error taxonomy used to classify failures, and
// context annotation helpers for correlation fields.
package services
