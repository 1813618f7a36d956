// Command shortcast is the CLI for submitting jobs and inspecting the
// publish queue. It operates directly on the shared stores; the shortcastd
// daemon runs the background pipeline.
package main
