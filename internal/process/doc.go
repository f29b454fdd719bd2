// Package process runs ffmpeg subprocesses for exports and minimap renders.
//
// A Process wraps os/exec for a single run:
//   - argv is passed directly, never through a shell
//   - stdout and stderr are split into lines (or carriage-return records)
//     and forwarded to an OutputHandler and the module logger
//   - an optional stdin pipe feeds raw frames to the encoder
//   - Terminate sends SIGTERM once; there is no kill escalation
//
// Example:
//
//	proc := process.NewProcessWithOutput(jobID, argv, logger,
//	    process.OutputHandlerFunc(func(source, line string) {
//	        // scan for progress
//	    }))
//	proc.SetSplit(ffmpeg.ScanLinesOrCR)
//	if err := proc.Start(); err != nil {
//	    return err
//	}
//	code := proc.Wait()
package process
