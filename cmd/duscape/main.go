// Command duscape is the CLI entry point (§6.3): scan/scan-all-local
// run an interactive progress readout, then write the optional JSON
// snapshot and print the text report to stdout; refresh
// and export-report are headless, scripting-friendly subcommands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/briarlane/duscape/internal/engine"
	"github.com/briarlane/duscape/internal/errs"
	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/node"
	"github.com/briarlane/duscape/internal/progressui"
	"github.com/briarlane/duscape/internal/remote"
	"github.com/briarlane/duscape/internal/scanner"
	"github.com/briarlane/duscape/internal/watcher"
)

const (
	exitOK              = 0
	exitOther           = 1
	exitRootUnavailable = 2
	exitCancelled       = 3
	exitInvariant       = 4
)

// scanFlags is the flag set shared by scan and scan-all-local: the
// scanner-behavior knobs from §6.3's table plus --snapshot for the
// supplemented JSON-export path.
type scanFlags struct {
	threads           int
	followJunctions   bool
	followMountPoints bool
	followSymlinks    bool
	computeOwner      bool
	dupes             bool
	useLongPaths      bool
	useLogical        bool
	top               int
	sshPort           int
	sshBatch          bool
	snapshot          string
}

func registerScanFlags(fs *flag.FlagSet) *scanFlags {
	sf := &scanFlags{}
	fs.IntVar(&sf.threads, "threads", 0, "scanner pool size (default = CPU count)")
	fs.BoolVar(&sf.followJunctions, "follow-junctions", false, "descend into junction reparse points")
	fs.BoolVar(&sf.followMountPoints, "follow-mount-points", false, "descend into mount points")
	fs.BoolVar(&sf.followSymlinks, "follow-symlinks", false, "descend into symbolic-link reparse points")
	fs.BoolVar(&sf.computeOwner, "compute-owner", false, "resolve owner SID per file")
	fs.BoolVar(&sf.dupes, "dupes", false, "enable duplicate detection")
	fs.BoolVar(&sf.useLongPaths, "use-long-paths", false, "use long-path form for OS calls")
	fs.BoolVar(&sf.useLogical, "use-logical", false, "treemap sizes use logical bytes")
	fs.IntVar(&sf.top, "top", 10, "largest-files N")
	fs.IntVar(&sf.sshPort, "ssh-port", 22, "SSH port for remote scan targets")
	fs.BoolVar(&sf.sshBatch, "ssh-batch", false, "disable SSH password prompts (key/agent auth only)")
	fs.StringVar(&sf.snapshot, "snapshot", "", "write a JSON tree snapshot to this path after scanning")
	return sf
}

func (sf *scanFlags) options() scanner.Options {
	o := scanner.DefaultOptions()
	o.Concurrency = sf.threads
	if o.Concurrency == 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	o.FollowJunctions = sf.followJunctions
	o.FollowMountPoints = sf.followMountPoints
	o.FollowSymlinks = sf.followSymlinks
	o.ComputeOwner = sf.computeOwner
	o.ScanForDuplicates = sf.dupes
	o.UseLongPaths = sf.useLongPaths
	return o
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitOther
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "scan":
		return runScan(rest, false)
	case "scan-all-local":
		return runScan(rest, true)
	case "refresh":
		return runRefresh(rest)
	case "export-report":
		return runExportReport(rest)
	case "-h", "--help", "help":
		usage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "duscape: unknown command %q\n", cmd)
		usage()
		return exitOther
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `duscape - disk usage scanner and treemap layout engine

Usage:
  duscape scan [flags] <path|user@host[:path]>...
  duscape scan-all-local [flags]
  duscape refresh --from <snapshot.json> [flags] <path>
  duscape export-report [flags] <path> <out>

Flags (scan / scan-all-local / refresh):
  --threads N              scanner pool size (default = CPU count)
  --follow-junctions       descend into junction reparse points
  --follow-mount-points    descend into mount points
  --follow-symlinks        descend into symbolic-link reparse points
  --compute-owner          resolve owner SID per file
  --dupes                  enable duplicate detection
  --use-long-paths         use long-path form for OS calls
  --use-logical            treemap sizes use logical bytes
  --top N                  largest-files N
  --ssh-port N             SSH port for remote scan targets (default 22)
  --ssh-batch              disable SSH password prompts
  --snapshot PATH          write a JSON tree snapshot after scanning
  --from PATH              (refresh only) load the tree from a JSON snapshot first

Exit codes: 0 success, 2 root inaccessible, 3 cancelled, 4 invariant violation, 1 other.
`)
}

// runScan handles both `scan <path...>` and `scan-all-local`. Each
// positional argument is resolved independently: a local path, or a
// user@host[:path] remote target (§SUPPLEMENTED FEATURES). Multiple
// remote targets aren't supported in one invocation since each needs
// its own Enumerator; a mix of exactly one remote target (alone) or any
// number of local paths is accepted.
func runScan(args []string, allLocal bool) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	sf := registerScanFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitOther
	}

	var roots []string
	if allLocal {
		if fs.NArg() != 0 {
			fmt.Fprintln(os.Stderr, "duscape: scan-all-local takes no path arguments")
			return exitOther
		}
		roots = localRoots()
	} else {
		if fs.NArg() == 0 {
			fmt.Fprintln(os.Stderr, "duscape: scan requires at least one path")
			return exitOther
		}
		roots = fs.Args()
	}

	if len(roots) == 1 {
		if user, host, remotePath, ok := parseRemoteTarget(roots[0]); ok {
			return runRemoteScan(user, host, remotePath, sf)
		}
	}

	for i, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "duscape: %v\n", err)
			return exitOther
		}
		roots[i] = abs
	}

	enum := &fsiface.LocalEnumerator{UseLongPaths: sf.useLongPaths}
	eng := engine.New(engine.Config{
		Enumerator:   enum,
		ChangeStream: &watcher.FSNotifyStream{},
		Options:      sf.options(),
		TopNCapacity: sf.top,
		UsePhysical:  !sf.useLogical,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sc := eng.NewScanner()
	root, err := progressui.RunScan(ctx, sc, roots)
	eng.Adopt(root, roots)
	return finishScan(eng, err, sf)
}

func runRemoteScan(user, host, path string, sf *scanFlags) int {
	enum := remote.New(remote.Config{
		Target:    user + "@" + host,
		Port:      sf.sshPort,
		BatchMode: sf.sshBatch,
	})
	defer enum.Close()

	eng := engine.New(engine.Config{
		Enumerator:   enum,
		Options:      sf.options(),
		TopNCapacity: sf.top,
		UsePhysical:  !sf.useLogical,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sc := eng.NewScanner()
	root, err := progressui.RunScan(ctx, sc, []string{path})
	eng.Adopt(root, []string{path})
	return finishScan(eng, err, sf)
}

func finishScan(eng *engine.Engine, scanErr error, sf *scanFlags) int {
	if scanErr != nil {
		// A partial tree from a cancelled/root-unavailable scan is still
		// worth reporting and snapshotting (§5: readers never block on a
		// fully clean tree).
		fmt.Fprintf(os.Stderr, "duscape: %v\n", scanErr)
	}

	if sf.snapshot != "" {
		if err := eng.ExportNCDU(sf.snapshot, "1"); err != nil {
			fmt.Fprintf(os.Stderr, "duscape: snapshot export failed: %v\n", err)
			return exitOther
		}
	}

	if err := eng.ExportText(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", err)
		return exitOther
	}

	return exitCodeForErr(scanErr)
}

func runRefresh(args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	sf := registerScanFlags(fs)
	from := fs.String("from", "", "load the tree from a JSON snapshot before refreshing")
	if err := fs.Parse(args); err != nil {
		return exitOther
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "duscape: refresh requires exactly one path")
		return exitOther
	}
	if *from == "" {
		fmt.Fprintln(os.Stderr, "duscape: refresh requires --from <snapshot.json>")
		return exitOther
	}
	path := fs.Arg(0)

	enum := &fsiface.LocalEnumerator{UseLongPaths: sf.useLongPaths}
	eng := engine.New(engine.Config{
		Enumerator:   enum,
		Options:      sf.options(),
		TopNCapacity: sf.top,
		UsePhysical:  !sf.useLogical,
	})

	if err := eng.ImportSnapshot(*from); err != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", err)
		return exitOther
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", err)
		return exitOther
	}

	refreshErr := eng.RefreshPath(absPath)
	if refreshErr != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", refreshErr)
	}

	if sf.snapshot != "" {
		if err := eng.ExportNCDU(sf.snapshot, "1"); err != nil {
			fmt.Fprintf(os.Stderr, "duscape: snapshot export failed: %v\n", err)
			return exitOther
		}
	}

	if err := eng.ExportText(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", err)
		return exitOther
	}

	return exitCodeForErr(refreshErr)
}

func runExportReport(args []string) int {
	fs := flag.NewFlagSet("export-report", flag.ContinueOnError)
	sf := registerScanFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitOther
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "duscape: export-report requires <path> <out>")
		return exitOther
	}
	path, out := fs.Arg(0), fs.Arg(1)

	absPath, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", err)
		return exitOther
	}

	enum := &fsiface.LocalEnumerator{UseLongPaths: sf.useLongPaths}
	eng := engine.New(engine.Config{
		Enumerator:   enum,
		Options:      sf.options(),
		TopNCapacity: sf.top,
		UsePhysical:  !sf.useLogical,
	})

	scanErr := eng.Scan(context.Background(), []string{absPath})
	if scanErr != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", scanErr)
	}

	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", err)
		return exitOther
	}
	defer f.Close()

	if err := eng.ExportText(f); err != nil {
		fmt.Fprintf(os.Stderr, "duscape: %v\n", err)
		return exitOther
	}

	return exitCodeForErr(scanErr)
}

// parseRemoteTarget splits "user@host[:path]" into its parts. ok is
// false for anything that isn't shaped like a remote target (a bare
// local path, which the caller then resolves with filepath.Abs).
func parseRemoteTarget(raw string) (user, host, path string, ok bool) {
	head := raw
	if colon := strings.IndexByte(raw, ':'); colon >= 0 {
		head = raw[:colon]
	}
	if strings.ContainsAny(head, `/\`) {
		return "", "", "", false
	}
	if strings.Count(head, "@") != 1 {
		return "", "", "", false
	}
	target := raw
	path = "."
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		hostPart := raw[at+1:]
		if colon := strings.IndexByte(hostPart, ':'); colon >= 0 {
			target = raw[:at+1+colon]
			if rest := hostPart[colon+1:]; rest != "" {
				path = rest
			}
		}
	}
	u, h, err := remote.ParseTarget(target)
	if err != nil {
		return "", "", "", false
	}
	return u, h, path, true
}

// classify tags a collaborator error with its §7 taxonomy Kind by
// wrapping it with errs.Wrap, so a caller with several possible error
// sources can switch on errs.KindOf with one call instead of a type
// switch per source.
func classify(err error) error {
	if errors.Is(err, scanner.ErrRootUnavailable) {
		return errs.Wrap(errs.KindRootUnavailable, err)
	}
	var cancelled *scanner.CancelReason
	if errors.As(err, &cancelled) {
		return errs.Wrap(errs.KindCancelled, err)
	}
	var invariant *node.ErrInvariantViolation
	if errors.As(err, &invariant) {
		return errs.Wrap(errs.KindInvariantViolation, err)
	}
	return errs.Wrap(errs.KindOther, err)
}

// exitCodeForErr maps err to a §6.3 process exit status: 0 on success,
// otherwise the code for its classified taxonomy Kind.
func exitCodeForErr(err error) int {
	if err == nil {
		return exitOK
	}
	switch errs.KindOf(classify(err)) {
	case errs.KindRootUnavailable:
		return exitRootUnavailable
	case errs.KindCancelled:
		return exitCancelled
	case errs.KindInvariantViolation:
		return exitInvariant
	default:
		return exitOther
	}
}
