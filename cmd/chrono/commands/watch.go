package commands

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/tmln/lexer"
)

// WatchCmd re-lexes a program whenever it changes on disk
var WatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-lex a program whenever it changes",
	Long: `Watch a timeline program and report lexical errors with their line and
column after each save. Unchanged leading spans are reused between runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	WatchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "Wait this long after the last change before re-lexing")
}

// relexer keeps the last tokenization of a file so edits can reuse its prefix
type relexer struct {
	text  string
	spans []lexer.Span
}

// update re-tokenizes text, reusing the spans before the first changed byte
func (r *relexer) update(text string) ([]lexer.Span, error) {
	edit := firstDifference(r.text, text)
	spans, err := lexer.Relex(text, r.spans, edit)
	r.text = text
	r.spans = spans
	if err != nil {
		// The reusable prefix ends at the error; keep only what is known good
		r.text = ""
		r.spans = nil
	}
	return spans, err
}

func firstDifference(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return errors.Wrapf(err, "invalid path %s", args[0])
	}
	log := logger.Logger.Named("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	// Editors often replace files on save, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(path))
	}

	r := &relexer{}
	check := func() {
		text, err := readSource(path)
		if err != nil {
			pterm.Warning.Println(err.Error())
			return
		}
		start := time.Now()
		spans, err := r.update(text)
		elapsed := time.Since(start)
		if lexErr, ok := lexer.AsLexicalError(err); ok {
			pt := lexer.NewPositionTracker(text)
			pt.AdvanceTo(lexErr.Offset)
			pos := pt.Mark()
			pterm.Error.Printfln("%s:%d:%d: unexpected %q", args[0], pos.Line, pos.Character+1, lexErr.Char)
			return
		}
		pterm.Success.Printfln("%s: %d spans (%s)", args[0], len(spans), elapsed.Round(time.Microsecond))
	}
	check()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var debounce *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debugw("File changed", logger.FieldFile, event.Name, "op", event.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			check()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("Watcher error", logger.FieldError, err)
		case <-sigChan:
			return nil
		}
	}
}
