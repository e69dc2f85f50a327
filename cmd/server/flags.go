package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"highlight-ai/config"
	"highlight-ai/internal/appdirs"
	"highlight-ai/internal/deps"
	"highlight-ai/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// handleCLIFlags handles informational flags. handled reports that the
// process should exit with exitCode instead of starting the server.
func handleCLIFlags(args []string, out io.Writer) (handled bool, exitCode int) {
	flags := flag.NewFlagSet("highlight-ai", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	showVersion := flags.Bool("version", false, "print version information")
	showDiagnose := flags.Bool("diagnose", false, "print runtime diagnostics")

	if err := flags.Parse(args); err != nil {
		return true, 2
	}

	if !*showVersion && !*showDiagnose {
		return false, 0
	}

	if *showVersion {
		printVersion(out)
	}

	if *showDiagnose {
		if *showVersion {
			fmt.Fprintln(out)
		}
		printDiagnose(out)
	}

	return true, 0
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(out io.Writer) {
	fmt.Fprintf(out, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "version: %s\n", version)

	if exePath, err := os.Executable(); err == nil {
		fmt.Fprintf(out, "executable: %s\n", exePath)
	} else {
		fmt.Fprintf(out, "executable: <error: %v>\n", err)
	}

	if configPath, err := config.ResolveConfigPath(); err == nil {
		printPath(out, "config", configPath)
	} else {
		fmt.Fprintf(out, "path.config: <error: %v>\n", err)
	}
	if logDir, err := log.ResolveLogDir(); err == nil {
		printPath(out, "log_dir", logDir)
	} else {
		fmt.Fprintf(out, "path.log_dir: <error: %v>\n", err)
	}
	if dirs, err := appdirs.Resolve(); err == nil {
		printPath(out, "clips", appdirs.ClipsDirFor(dirs))
		printPath(out, "outputs", appdirs.MergedDirFor(dirs))
		printPath(out, "published", appdirs.PublishedDirFor(dirs))
		printPath(out, "database", appdirs.DBPathFor(dirs))
	} else {
		fmt.Fprintf(out, "path.output: <error: %v>\n", err)
	}

	for _, state := range deps.ResolveDependencyInventory(config.Conf.Ffmpeg.FfmpegPath, config.Conf.Ffmpeg.FfprobePath) {
		if state.Status == deps.DependencyStatusOK {
			fmt.Fprintf(out, "dependency.%s: found (%s)\n", state.ID, state.ResolvedPath)
		} else {
			fmt.Fprintf(out, "dependency.%s: %s (%s)\n", state.ID, state.Status, state.Error)
		}
	}
}

func printPath(out io.Writer, name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Fprintf(out, "path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Fprintf(out, "path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(out, "path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Fprintf(out, "path.%s: %s (error=%v)\n", name, absPath, err)
}
