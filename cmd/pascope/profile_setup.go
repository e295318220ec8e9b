package main

import (
	"fmt"
	"os"

	"pascope/internal/prof"
)

var profSession *prof.Session

// setupProfiling starts the runtime profilers named by the profile flags.
func setupProfiling() error {
	pc := prof.Config{
		CPU:   cfg.GetString("cpu-profile"),
		Mem:   cfg.GetString("mem-profile"),
		Trace: cfg.GetString("runtime-trace"),
	}
	if !pc.Enabled() {
		return nil
	}
	s, err := prof.Start(pc)
	if err != nil {
		return err
	}
	profSession = s
	return nil
}

func stopProfiling() {
	if err := profSession.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "profile: %v\n", err)
	}
}
