// Package resources provides MCP resources backed by the email index.
// Resources are read-only data sources that MCP clients can fetch without
// going through a tool call: the index status and single indexed messages.
package resources
