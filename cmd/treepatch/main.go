package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/treepatch/dom"
	"github.com/wippyai/treepatch/patch"
	"github.com/wippyai/treepatch/schema"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: treepatch encode -in ops.json [-out log.bin] [-id TPLG]")
	fmt.Fprintln(os.Stderr, "       treepatch dump -in log.bin [-json]")
	fmt.Fprintln(os.Stderr, "       treepatch apply -in log.bin [-root body] [-strict] [-i]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Every command accepts -config file.toml, -v and -log-json.")
	fmt.Fprintln(os.Stderr, "Inputs may be binary change logs or JSON operation arrays; - reads stdin.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "dump":
		err = runDump(os.Args[2:])
	case "apply":
		err = runApply(os.Args[2:])
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type commonFlags struct {
	config  *string
	verbose *bool
	logJSON *bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config:  fs.String("config", "", "TOML configuration file"),
		verbose: fs.Bool("v", false, "Debug logging"),
		logJSON: fs.Bool("log-json", false, "Log as JSON"),
	}
}

// setup loads the configuration, applies flag overrides and installs the
// logger into every package.
func (c *commonFlags) setup() (config, *zap.Logger, error) {
	cfg := defaultConfig()
	if *c.config != "" {
		var err error
		if cfg, err = loadConfig(*c.config); err != nil {
			return config{}, nil, err
		}
	}
	if *c.verbose {
		cfg.LogLevel = "debug"
	}
	if *c.logJSON {
		cfg.LogJSON = true
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return config{}, nil, err
	}
	installLogger(logger)
	return cfg, logger, nil
}

func newLogger(cfg config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	if cfg.LogJSON {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	return zc.Build()
}

func installLogger(l *zap.Logger) {
	schema.SetLogger(l.Named("schema"))
	patch.SetLogger(l.Named("patch"))
	dom.SetLogger(l.Named("dom"))
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// readOps accepts both encodings: a JSON operation array or a binary
// change log.
func readOps(path string, limits schema.Limits) ([]schema.Op, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	if isJSON(data) {
		return schema.UnmarshalOps(data)
	}
	return schema.NewReader(limits).Decode(data)
}

func isJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	common := addCommonFlags(fs)
	var (
		in  = fs.String("in", "-", "JSON operations to encode")
		out = fs.String("out", "-", "Output file")
		id  = fs.String("id", "", "File identifier (4 bytes), e.g. "+schema.FileIdentifier)
	)
	fs.Parse(args)

	_, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := readInput(*in)
	if err != nil {
		return err
	}
	ops, err := schema.UnmarshalOps(data)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	enc := schema.NewEncoder()
	var buf []byte
	if *id != "" {
		buf, err = enc.EncodeWithIdentifier(ops, *id)
	} else {
		buf, err = enc.Encode(ops)
	}
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	logger.Info("encoded change log", zap.Int("changes", len(ops)), zap.Int("bytes", len(buf)))

	if *out == "-" {
		_, err = os.Stdout.Write(buf)
		return err
	}
	return os.WriteFile(*out, buf, 0o644)
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	common := addCommonFlags(fs)
	var (
		in     = fs.String("in", "-", "Change log to print")
		asJSON = fs.Bool("json", false, "Print as a JSON operation array")
	)
	fs.Parse(args)

	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := readInput(*in)
	if err != nil {
		return err
	}
	var ops []schema.Op
	if isJSON(data) {
		ops, err = schema.UnmarshalOps(data)
	} else {
		if schema.HasIdentifier(data) {
			fmt.Printf("Identifier: %s\n", schema.FileIdentifier)
		}
		ops, err = schema.NewReader(cfg.Limits).Decode(data)
	}
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if *asJSON {
		out, err := schema.MarshalOps(ops)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	width := 0
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
	}

	fmt.Printf("Changes: %d\n", len(ops))
	for i, op := range ops {
		fmt.Println(clip(fmt.Sprintf("%5d  %s", i, op), width))
	}
	return nil
}

func clip(line string, width int) string {
	r := []rune(line)
	if width <= 1 || len(r) <= width {
		return line
	}
	return string(r[:width-1]) + "…"
}

func runApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	common := addCommonFlags(fs)
	var (
		in          = fs.String("in", "-", "Change log to apply")
		rootName    = fs.String("root", "body", "Local name of the root element the cursor starts on")
		strict      = fs.Bool("strict", false, "Fail on stash overwrites and missing discards")
		interactive = fs.Bool("i", false, "Step through the log in a TUI")
	)
	fs.Parse(args)

	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if *strict {
		cfg.StrictStash = true
	}

	ops, err := readOps(*in, cfg.Limits)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	doc := dom.NewDocument()
	root, err := doc.CreateElement(*rootName)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	if err := doc.AppendChild(root); err != nil {
		return err
	}

	mailbox := patch.NewMailbox(func(v any) {
		patch.Logger().Info("listener value", zap.Any("value", v))
	})
	state := patch.NewState(root, mailbox)
	p := patch.New(doc).WithLimits(cfg.Limits).WithStrictStash(cfg.StrictStash)

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(*in, cfg, p, state, doc, ops)
	}

	applyErr := p.Apply(state, ops)
	fmt.Println(dom.Render(root))
	if leaked := state.Leaked(); len(leaked) > 0 {
		fmt.Printf("Leaked stash addresses: %v\n", leaked)
	}
	if applyErr != nil {
		return fmt.Errorf("apply: %w", applyErr)
	}
	return nil
}
