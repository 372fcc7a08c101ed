package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/pflag"

	"github.com/dshills/tangled/internal/random"
	"github.com/dshills/tangled/internal/reload"
	"github.com/dshills/tangled/internal/settings"
	"github.com/dshills/tangled/internal/watcher"
)

// loadOptions are the flags shared by commands that load settings.
type loadOptions struct {
	Section    string
	Meta       bool
	Delimiters string `validate:"required"`
}

func (o *loadOptions) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Section, "section", "s", "", "Only read the unnamed section and [SECTION]")
	fs.BoolVar(&o.Meta, "meta", false, "Inject __file__, __base__, __bases__ and env")
	fs.StringVar(&o.Delimiters, "delimiters", settings.DefaultDelimiters, "Characters separating keys from values")
}

func (o *loadOptions) loader(e *env) *settings.Loader {
	opts := []settings.Option{
		settings.WithSection(o.Section),
		settings.WithDelimiters(o.Delimiters),
		settings.WithLogger(e.logger),
	}
	if o.Meta {
		opts = append(opts, settings.WithMetaSettings())
	}
	return settings.NewLoader(opts...)
}

func newFlagSet(e *env, name, args string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: tangled %s [options] %s\n\nOptions:\n", name, args)
		fmt.Fprint(e.stderr, fs.FlagUsages())
	}
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

type showOptions struct {
	loadOptions
	Format string   `validate:"oneof=json yaml toml env"`
	Typed  bool
	Query  string
	Files  []string `validate:"min=1,dive,required"`
}

func runShow(e *env, args []string) error {
	var opts showOptions
	fs := newFlagSet(e, "show", "FILE...")
	opts.register(fs)
	fs.StringVarP(&opts.Format, "format", "f", "json", "Output format (json, yaml, toml, env)")
	fs.BoolVar(&opts.Typed, "typed", false, "Decode values as JSON and apply key:type converters")
	fs.StringVarP(&opts.Query, "query", "q", "", "Print only the value at this gjson path (escape dots in keys with \\)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts.Files = fs.Args()
	if err := e.validate.Struct(opts); err != nil {
		return validationError(err)
	}

	loaded, err := opts.loader(e).LoadAll(context.Background(), opts.Files...)
	if err != nil {
		return err
	}

	docs := make([]document, 0, len(loaded))
	for _, s := range loaded {
		values, err := settingsValues(s, opts.Typed)
		if err != nil {
			return err
		}
		docs = append(docs, document{file: s.File(), values: values})
	}

	if opts.Query != "" {
		return writeQuery(e.stdout, docs, opts.Query)
	}
	return writeDocuments(e.stdout, opts.Format, docs)
}

type getOptions struct {
	loadOptions
	File     string   `validate:"required"`
	Patterns []string `validate:"min=1,dive,required"`
}

func runGet(e *env, args []string) error {
	var opts getOptions
	fs := newFlagSet(e, "get", "FILE PATTERN...")
	opts.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if rest := fs.Args(); len(rest) > 0 {
		opts.File = rest[0]
		opts.Patterns = rest[1:]
	}
	if err := e.validate.Struct(opts); err != nil {
		return validationError(err)
	}

	s, err := opts.loader(e).Load(opts.File)
	if err != nil {
		return err
	}

	keys, err := matchKeys(s.Keys(), opts.Patterns)
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Fprintf(e.stdout, "%s = %s\n", key, s.Get(key))
	}
	return nil
}

// matchKeys returns the sorted keys matching any pattern. Every pattern must
// match at least one key.
func matchKeys(keys, patterns []string) ([]string, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: bad pattern %q", errUsage, p)
		}
	}

	matched := make(map[string]bool)
	for _, p := range patterns {
		found := false
		for _, key := range keys {
			if ok, _ := doublestar.Match(p, key); ok {
				matched[key] = true
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("no settings match %q", p)
		}
	}

	out := make([]string, 0, len(matched))
	for key := range matched {
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

type watchOptions struct {
	loadOptions
	Debounce time.Duration `validate:"gte=0"`
	File     string        `validate:"required"`
}

func runWatch(e *env, args []string) error {
	var opts watchOptions
	fs := newFlagSet(e, "watch", "FILE")
	opts.register(fs)
	fs.DurationVar(&opts.Debounce, "debounce", watcher.DefaultDebounce, "Quiet period before reloading")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if rest := fs.Args(); len(rest) == 1 {
		opts.File = rest[0]
	} else if len(rest) > 1 {
		return fmt.Errorf("%w: watch takes one file", errUsage)
	}
	if err := e.validate.Struct(opts); err != nil {
		return validationError(err)
	}

	r, err := reload.New(opts.File,
		reload.WithLoader(opts.loader(e)),
		reload.WithDebounce(opts.Debounce),
		reload.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	r.Subscribe(func(c reload.Change) {
		writeChange(e.stdout, c)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.Start(ctx); err != nil {
		return err
	}
	e.logger.Info("watching settings", "files", r.WatchedFiles())

	<-ctx.Done()
	return nil
}

var alphabets = map[string]string{
	"alnum":  random.ASCIIAlphanumeric,
	"base64": random.Base64URL,
	"hex":    random.Hex,
}

type randomOptions struct {
	Length   int    `validate:"gte=1,lte=4096"`
	Alphabet string `validate:"oneof=alnum base64 hex"`
}

func runRandom(e *env, args []string) error {
	var opts randomOptions
	fs := newFlagSet(e, "random", "")
	fs.IntVarP(&opts.Length, "length", "n", 32, "Number of characters")
	fs.StringVarP(&opts.Alphabet, "alphabet", "a", "base64", "Alphabet (alnum, base64, hex)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: random takes no arguments", errUsage)
	}
	if err := e.validate.Struct(opts); err != nil {
		return validationError(err)
	}

	s, err := random.String(opts.Length, alphabets[opts.Alphabet])
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, s)
	return nil
}
