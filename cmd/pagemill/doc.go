// Command pagemill is the CLI for the pagemill page-scanning pipeline:
// importing source files, processing pages through recognition and artifact
// generation, and inspecting the durable queue.
package main
