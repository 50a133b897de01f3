// Command lectern is the command-line front end for the lecture pipeline.
//
// Queue and daemon commands talk to lecternd over its Unix socket and fall
// back to the queue database when the daemon is down. The transcribe,
// paraphrase, synthesize, live and record commands run the same services in
// the foreground without a daemon.
package main
